package command

import (
	"fmt"
	"strings"
	"time"

	"gatebot/internal/core"

	"github.com/bwmarrin/discordgo"
)

// PermCommand manages per-role command overrides for the guild:
//
//	perm allow <command> <roleID>
//	perm deny <command> <roleID>
//	perm clear <command> <roleID>
//	perm list
type PermCommand struct{}

func (c *PermCommand) Name() string        { return "perm" }
func (c *PermCommand) Description() string { return "Manage per-role command permissions" }
func (c *PermCommand) Aliases() []string   { return []string{"perms"} }
func (c *PermCommand) Category() string    { return "⚙️ Settings" }
func (c *PermCommand) UserPermissions() []int64 {
	return []int64{discordgo.PermissionManageServer, discordgo.PermissionManageRoles}
}
func (c *PermCommand) Cooldown() time.Duration { return 2 * time.Second }
func (c *PermCommand) GuildOnly() bool         { return true }

func (c *PermCommand) Run(ctx *core.Context) error {
	if len(ctx.Args) == 0 {
		return ctx.Reply("Usage: `perm allow|deny|clear <command> <roleID>` or `perm list`")
	}

	perms := ctx.Manager.Permissions()
	guildID := ctx.Event.GuildID
	actorID := ctx.Event.UserID

	switch strings.ToLower(ctx.Args[0]) {
	case "list":
		snapshot, err := perms.GuildPermissions(guildID)
		if err != nil {
			return fmt.Errorf("load permissions: %w", err)
		}
		if len(snapshot) == 0 {
			return ctx.Reply("No overrides set; all commands use their defaults.")
		}
		var b strings.Builder
		for command, roles := range snapshot {
			for roleID, allowed := range roles {
				verdict := "deny"
				if allowed {
					verdict = "allow"
				}
				b.WriteString(fmt.Sprintf("`%s` <@&%s>: %s\n", command, roleID, verdict))
			}
		}
		return ctx.Reply(b.String())

	case "allow", "deny":
		if len(ctx.Args) < 3 {
			return ctx.Reply("Usage: `perm allow|deny <command> <roleID>`")
		}
		allowed := strings.EqualFold(ctx.Args[0], "allow")
		if err := perms.SetRolePermission(actorID, guildID, strings.ToLower(ctx.Args[1]), ctx.Args[2], allowed); err != nil {
			return fmt.Errorf("set permission: %w", err)
		}
		return ctx.Reply("Override saved.")

	case "clear":
		if len(ctx.Args) < 3 {
			return ctx.Reply("Usage: `perm clear <command> <roleID>`")
		}
		if err := perms.RemoveRolePermission(actorID, guildID, strings.ToLower(ctx.Args[1]), ctx.Args[2]); err != nil {
			return fmt.Errorf("remove permission: %w", err)
		}
		return ctx.Reply("Override removed.")

	default:
		return ctx.Reply("Unknown subcommand. Use `allow`, `deny`, `clear` or `list`.")
	}
}
