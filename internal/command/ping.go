package command

import (
	"fmt"
	"time"

	"gatebot/internal/core"
)

type PingCommand struct{}

func (c *PingCommand) Name() string             { return "ping" }
func (c *PingCommand) Description() string      { return "Check that the bot is alive" }
func (c *PingCommand) Aliases() []string        { return []string{"p"} }
func (c *PingCommand) Category() string         { return "🕯️ Information" }
func (c *PingCommand) UserPermissions() []int64 { return nil }
func (c *PingCommand) Cooldown() time.Duration  { return 3 * time.Second }
func (c *PingCommand) GuildOnly() bool          { return false }

func (c *PingCommand) Run(ctx *core.Context) error {
	if ctx.Session == nil {
		return nil
	}
	return ctx.Reply(fmt.Sprintf("Pong! Heartbeat: %s", ctx.Session.HeartbeatLatency().Round(time.Millisecond)))
}
