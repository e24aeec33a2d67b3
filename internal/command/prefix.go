package command

import (
	"fmt"
	"time"

	"gatebot/internal/core"

	"github.com/bwmarrin/discordgo"
)

// PrefixCommand shows or changes the guild's command prefix.
type PrefixCommand struct{}

func (c *PrefixCommand) Name() string        { return "prefix" }
func (c *PrefixCommand) Description() string { return "Show or set this server's command prefix" }
func (c *PrefixCommand) Aliases() []string   { return nil }
func (c *PrefixCommand) Category() string    { return "⚙️ Settings" }
func (c *PrefixCommand) UserPermissions() []int64 {
	return []int64{discordgo.PermissionManageServer}
}
func (c *PrefixCommand) Cooldown() time.Duration { return 2 * time.Second }
func (c *PrefixCommand) GuildOnly() bool         { return true }

func (c *PrefixCommand) Run(ctx *core.Context) error {
	if len(ctx.Args) == 0 {
		return ctx.Reply(fmt.Sprintf("Current prefix: `%s`", ctx.Manager.ServerPrefix(ctx.Event.GuildID)))
	}

	prefix := ctx.Args[0]
	if len(prefix) > 5 {
		return ctx.Reply("Prefix must be 5 characters or fewer.")
	}
	if err := ctx.Manager.SetServerPrefix(ctx.Event.GuildID, prefix); err != nil {
		return fmt.Errorf("set prefix: %w", err)
	}
	return ctx.Reply(fmt.Sprintf("Prefix set to `%s`", prefix))
}
