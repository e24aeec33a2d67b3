package core

import (
	"log"
	"strings"
	"sync"
	"time"

	"gatebot/internal/config"
	"gatebot/internal/storage"

	"github.com/bwmarrin/discordgo"
)

// System is the external API of the dispatch core: the chat-event listener
// feeds it messages, the dashboard backend reads its projections, and the
// administrative surface mutates it. One instance per process, constructed
// and wired explicitly.
type System struct {
	cfg   *config.Config
	store *storage.Storage
	mgr   *Manager

	mu       sync.Mutex
	commands []Command
	inited   bool
}

// DashboardCommand is the read-only projection of one command for the
// dashboard backend.
type DashboardCommand struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Aliases     []string        `json:"aliases,omitempty"`
	Category    string          `json:"category"`
	GuildOnly   bool            `json:"guild_only"`
	Cooldown    time.Duration   `json:"cooldown"`
	Overrides   map[string]bool `json:"overrides,omitempty"` // role id -> allowed
}

// HealthStatus is a liveness snapshot for ops tooling.
type HealthStatus struct {
	Healthy          bool          `json:"healthy"`
	Uptime           time.Duration `json:"uptime"`
	Commands         int           `json:"commands"`
	ActiveExecutions int           `json:"active_executions"`
	TrackedCooldowns int           `json:"tracked_cooldowns"`
	HistorySize      int           `json:"history_size"`
	AuditSize        int           `json:"audit_size"`
	Guilds           int           `json:"guilds"`
}

func NewSystem(cfg *config.Config, store *storage.Storage, commands []Command) *System {
	return &System{
		cfg:      cfg,
		store:    store,
		mgr:      NewManager(cfg, store),
		commands: commands,
	}
}

// Init registers the command set. Safe to call once; Reload covers later
// refreshes.
func (s *System) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inited {
		return nil
	}
	s.mgr.Reload(s.commands)
	s.inited = true
	return nil
}

// Shutdown flushes persisted state. The dispatcher itself holds no
// goroutines; in-flight handlers finish on their own.
func (s *System) Shutdown() {
	if err := s.store.Close(); err != nil {
		log.Printf("[ERR] system: storage close: %v", err)
	}
}

func (s *System) Manager() *Manager { return s.mgr }

// HandleMessage is the inbound entry point. It parses prefix + identifier +
// argument tail and drives the executor. The second return is false when the
// message is not addressed to the dispatcher at all.
func (s *System) HandleMessage(session *discordgo.Session, ev Event) (Record, bool) {
	prefix := s.mgr.ServerPrefix(ev.GuildID)
	if !strings.HasPrefix(ev.Raw, prefix) {
		return Record{}, false
	}

	fields := strings.Fields(strings.TrimPrefix(ev.Raw, prefix))
	if len(fields) == 0 {
		return Record{}, false
	}
	identifier, args := fields[0], fields[1:]

	ctx := &Context{
		Session: session,
		Event:   ev,
		Args:    args,
		Manager: s.mgr,
	}

	record := s.mgr.Executor().Dispatch(ctx, identifier)
	if record.Outcome == OutcomeSuccess {
		s.mgr.RecordUsage(ev.GuildID, storage.UsageRecord{
			ChannelID: ev.ChannelID,
			UserID:    ev.UserID,
			Username:  ev.Username,
			Command:   record.Command,
			Datetime:  record.Time,
		})
	}
	return record, true
}

// ────────────────────────────────────────────────────────────────
// ADMINISTRATIVE MUTATION API
// Every call returns success as a boolean and logs failure detail; callers
// (dashboard, chat commands) stay responsive regardless of internal faults.
// ────────────────────────────────────────────────────────────────

func (s *System) RegisterCommand(cmd Command) bool {
	if err := s.mgr.Registry().Register(cmd); err != nil {
		log.Printf("[ERR] system: register command %s: %v", cmd.Name(), err)
		return false
	}
	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	s.mu.Unlock()
	return true
}

func (s *System) UnregisterCommand(name string) bool {
	if err := s.mgr.Registry().Unregister(name); err != nil {
		log.Printf("[ERR] system: unregister command %s: %v", name, err)
		return false
	}
	s.mu.Lock()
	kept := s.commands[:0]
	for _, c := range s.commands {
		if !strings.EqualFold(c.Name(), name) {
			kept = append(kept, c)
		}
	}
	s.commands = kept
	s.mu.Unlock()
	return true
}

func (s *System) SetRolePermission(actorID, guildID, command, roleID string, allowed bool) bool {
	if err := s.mgr.Permissions().SetRolePermission(actorID, guildID, command, roleID, allowed); err != nil {
		log.Printf("[ERR] system: set role permission %s/%s/%s: %v", guildID, command, roleID, err)
		return false
	}
	return true
}

func (s *System) RemoveRolePermission(actorID, guildID, command, roleID string) bool {
	if err := s.mgr.Permissions().RemoveRolePermission(actorID, guildID, command, roleID); err != nil {
		log.Printf("[ERR] system: remove role permission %s/%s/%s: %v", guildID, command, roleID, err)
		return false
	}
	return true
}

func (s *System) SetCooldown(userID, command string, d time.Duration) bool {
	s.mgr.Cooldowns().SetCooldown(userID, command, d)
	return true
}

func (s *System) SetGlobalCooldown(command string, d time.Duration) bool {
	s.mgr.Cooldowns().SetGlobalCooldown(command, d)
	return true
}

func (s *System) ReloadCommands() bool {
	s.mu.Lock()
	commands := make([]Command, len(s.commands))
	copy(commands, s.commands)
	s.mu.Unlock()
	return s.mgr.Reload(commands) == len(commands)
}

// ClearAllData wipes persisted guild records and in-memory cooldown state.
// Execution history and the audit log keep their entries; they are the
// operator's trail of what happened, including this call.
func (s *System) ClearAllData() bool {
	if err := s.store.ClearAll(); err != nil {
		log.Printf("[ERR] system: clear data: %v", err)
		return false
	}
	s.mgr.Permissions().InvalidateAll()
	s.mgr.Cooldowns().Reset()
	return true
}

// ────────────────────────────────────────────────────────────────
// DASHBOARD-FACING READ API
// ────────────────────────────────────────────────────────────────

// CommandsForDashboard projects every registered command plus the guild's
// overrides, grouped in category order.
func (s *System) CommandsForDashboard(guildID string) []DashboardCommand {
	overrides, err := s.mgr.Permissions().GuildPermissions(guildID)
	if err != nil {
		log.Printf("[WARN] system: dashboard overrides for guild %s: %v", guildID, err)
		overrides = nil
	}

	var out []DashboardCommand
	for _, category := range s.mgr.Categories() {
		for _, cmd := range s.mgr.Registry().ListByCategory(category) {
			out = append(out, DashboardCommand{
				Name:        cmd.Name(),
				Description: cmd.Description(),
				Aliases:     cmd.Aliases(),
				Category:    cmd.Category(),
				GuildOnly:   cmd.GuildOnly(),
				Cooldown:    cmd.Cooldown(),
				Overrides:   overrides[cmd.Name()],
			})
		}
	}
	return out
}

func (s *System) Stats() Stats {
	return s.mgr.Executor().Stats()
}

func (s *System) ExecutionHistory(filter HistoryFilter) []Record {
	return s.mgr.Executor().History(filter)
}

func (s *System) ActiveExecutions() []Execution {
	return s.mgr.Executor().ActiveExecutions()
}

func (s *System) PermissionAuditLog(filter AuditFilter) []AuditEntry {
	return s.mgr.Permissions().AuditLog(filter)
}

func (s *System) HealthStatus() HealthStatus {
	return HealthStatus{
		Healthy:          true,
		Uptime:           s.mgr.Uptime(),
		Commands:         s.mgr.Registry().Len(),
		ActiveExecutions: len(s.mgr.Executor().ActiveExecutions()),
		TrackedCooldowns: s.mgr.Cooldowns().Entries(),
		HistorySize:      s.mgr.Executor().HistoryLen(),
		AuditSize:        s.mgr.Permissions().AuditLen(),
		Guilds:           s.store.GuildCount(),
	}
}
