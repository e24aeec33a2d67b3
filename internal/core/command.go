package core

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// Command is anything registrable with the dispatcher: static metadata plus
// a Run entry point. No hierarchy required.
type Command interface {
	Name() string
	Description() string
	Aliases() []string
	Category() string

	// UserPermissions returns the permission bits required by default.
	// Empty = open command. Any-of semantics; Administrator always passes.
	UserPermissions() []int64

	// Cooldown is the base per-user cooldown. Zero disables it.
	Cooldown() time.Duration

	// GuildOnly reports whether the command is usable only inside a guild.
	GuildOnly() bool

	Run(ctx *Context) error
}

// Event is the inbound message contract from the chat-platform listener.
type Event struct {
	Raw       string
	UserID    string
	Username  string
	GuildID   string // empty outside a guild
	ChannelID string
	RoleIDs   []string
	// Perms carries the actor's resolved permission bits; the
	// Administrator bit marks the always-allow capability.
	Perms int64
}

// HasAdministrator reports whether the actor carries the administer
// capability.
func (e Event) HasAdministrator() bool {
	return e.Perms&discordgo.PermissionAdministrator != 0
}

// Context is what the runtime hands a command on execution. Session is nil
// when dispatching outside a live Discord connection (tests, CLI drivers).
type Context struct {
	Session *discordgo.Session
	Event   Event
	Args    []string
	Manager *Manager
}

// Reply sends plain text back to the channel the event came from. No-op
// without a live session.
func (c *Context) Reply(msg string) error {
	if c.Session == nil || c.Event.ChannelID == "" {
		return nil
	}
	_, err := c.Session.ChannelMessageSend(c.Event.ChannelID, msg)
	return err
}
