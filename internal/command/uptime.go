package command

import (
	"fmt"
	"time"

	"gatebot/internal/core"
)

type UptimeCommand struct{}

func (c *UptimeCommand) Name() string             { return "uptime" }
func (c *UptimeCommand) Description() string      { return "Show how long the bot has been running" }
func (c *UptimeCommand) Aliases() []string        { return nil }
func (c *UptimeCommand) Category() string         { return "🕯️ Information" }
func (c *UptimeCommand) UserPermissions() []int64 { return nil }
func (c *UptimeCommand) Cooldown() time.Duration  { return 5 * time.Second }
func (c *UptimeCommand) GuildOnly() bool          { return false }

func (c *UptimeCommand) Run(ctx *core.Context) error {
	return ctx.Reply(fmt.Sprintf("Up for %s", ctx.Manager.Uptime().Round(time.Second)))
}
