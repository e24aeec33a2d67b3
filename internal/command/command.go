// Package command holds the built-in commands shipped with the bot.
package command

import "gatebot/internal/core"

// All returns the built-in command set in registration order.
func All() []core.Command {
	return []core.Command{
		&PingCommand{},
		&HelpCommand{},
		&UptimeCommand{},
		&PrefixCommand{},
		&PermCommand{},
	}
}
