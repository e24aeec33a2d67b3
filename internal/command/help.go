package command

import (
	"fmt"
	"strings"
	"time"

	"gatebot/internal/core"
)

type HelpCommand struct{}

func (c *HelpCommand) Name() string             { return "help" }
func (c *HelpCommand) Description() string      { return "List available commands by category" }
func (c *HelpCommand) Aliases() []string        { return []string{"h", "commands"} }
func (c *HelpCommand) Category() string         { return "🕯️ Information" }
func (c *HelpCommand) UserPermissions() []int64 { return nil }
func (c *HelpCommand) Cooldown() time.Duration  { return 5 * time.Second }
func (c *HelpCommand) GuildOnly() bool          { return false }

func (c *HelpCommand) Run(ctx *core.Context) error {
	prefix := ctx.Manager.ServerPrefix(ctx.Event.GuildID)

	var b strings.Builder
	for _, category := range ctx.Manager.Categories() {
		b.WriteString(fmt.Sprintf("**%s**\n", category))
		for _, cmd := range ctx.Manager.Registry().ListByCategory(category) {
			line := fmt.Sprintf("`%s%s`", prefix, cmd.Name())
			if aliases := cmd.Aliases(); len(aliases) > 0 {
				line += fmt.Sprintf(" (%s)", strings.Join(aliases, ", "))
			}
			b.WriteString(fmt.Sprintf("%s - %s\n", line, cmd.Description()))
		}
		b.WriteString("\n")
	}

	return ctx.Reply(b.String())
}
