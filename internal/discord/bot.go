// Package discord hosts the chat-platform boundary: session management and
// the translation of inbound messages into dispatcher events.
package discord

import (
	"context"
	"fmt"
	"log"
	"time"

	"gatebot/internal/config"
	"gatebot/internal/core"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// Bot is the Discord listener in front of the dispatch core.
type Bot struct {
	dg      *discordgo.Session
	cfg     *config.Config
	sys     *core.System
	limiter *rate.Limiter
}

func NewBot(cfg *config.Config, sys *core.System) *Bot {
	return &Bot{
		cfg:     cfg,
		sys:     sys,
		limiter: rate.NewLimiter(rate.Limit(cfg.FloodRate), cfg.FloodBurst),
	}
}

// Run opens the session and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	dg, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	b.dg = dg

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onMessageCreate)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer dg.Close()

	<-ctx.Done()
	log.Println("[INFO] Shutdown signal received. Closing Discord session...")
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Printf("[INFO] Logged in as %s#%s, %d guilds", r.User.Username, r.User.Discriminator, len(r.Guilds))
}

// onMessageCreate translates a message into a dispatcher event. Messages
// beyond the flood rate are dropped before admission control runs.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	if !b.limiter.Allow() {
		log.Printf("[WARN] Flood guard dropped message from user %s", m.Author.ID)
		return
	}

	ev := core.Event{
		Raw:       m.Content,
		UserID:    m.Author.ID,
		Username:  m.Author.Username,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Perms:     b.memberPermissions(s, m),
	}
	if m.Member != nil {
		ev.RoleIDs = m.Member.Roles
	}

	record, matched := b.sys.HandleMessage(s, ev)
	if !matched {
		return
	}

	switch record.Outcome {
	case core.OutcomeDeniedPermission:
		b.reply(s, m.ChannelID, "You are not allowed to run that command here.")
	case core.OutcomeDeniedCooldown:
		b.reply(s, m.ChannelID, fmt.Sprintf("Slow down, try again in %s.", record.Remaining.Round(time.Second)))
	case core.OutcomeFault:
		b.reply(s, m.ChannelID, "Something went wrong running that command.")
	}
	// Unknown commands stay silent; typos should not produce noise.
}

// memberPermissions resolves the author's permission bits in the message's
// channel. Outside a guild there are none.
func (b *Bot) memberPermissions(s *discordgo.Session, m *discordgo.MessageCreate) int64 {
	if m.GuildID == "" {
		return 0
	}
	perms, err := s.State.MessagePermissions(m.Message)
	if err == nil {
		return perms
	}
	perms, err = s.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		log.Printf("[WARN] Failed to resolve permissions for user %s in channel %s: %v", m.Author.ID, m.ChannelID, err)
		return 0
	}
	return perms
}

func (b *Bot) reply(s *discordgo.Session, channelID, msg string) {
	if _, err := s.ChannelMessageSend(channelID, msg); err != nil {
		log.Printf("[WARN] Failed to send reply to channel %s: %v", channelID, err)
	}
}
