package core

import (
	"errors"
	"log"
	"sort"
	"time"

	"gatebot/internal/config"
	"gatebot/internal/storage"
)

// Manager is the facade over the dispatch pipeline. It owns the registry,
// the permission and cooldown managers and the executor, plus the per-guild
// prefix configuration.
type Manager struct {
	cfg       *config.Config
	store     *storage.Storage
	registry  *Registry
	perms     *PermissionManager
	cooldowns *CooldownManager
	exec      *Executor

	started time.Time
}

func NewManager(cfg *config.Config, store *storage.Storage) *Manager {
	registry := NewRegistry()
	perms := NewPermissionManager(store, cfg.AuditCapacity)
	cooldowns := NewCooldownManager(cfg.CooldownMaxEntries)

	m := &Manager{
		cfg:       cfg,
		store:     store,
		registry:  registry,
		perms:     perms,
		cooldowns: cooldowns,
		exec:      NewExecutor(registry, perms, cooldowns, cfg.HistoryCapacity),
		started:   time.Now(),
	}

	// Default requirements come from descriptor metadata; an unregistered
	// name reads as "no requirement on file".
	perms.SetRequirementsFunc(func(command string) []int64 {
		cmd, err := registry.Resolve(command)
		if err != nil {
			return nil
		}
		return cmd.UserPermissions()
	})

	return m
}

func (m *Manager) Registry() *Registry             { return m.registry }
func (m *Manager) Permissions() *PermissionManager { return m.perms }
func (m *Manager) Cooldowns() *CooldownManager     { return m.cooldowns }
func (m *Manager) Executor() *Executor             { return m.exec }
func (m *Manager) Uptime() time.Duration           { return time.Since(m.started) }

// ServerPrefix returns the guild's configured prefix, falling back to the
// process default when unset or when the guild cannot be read.
func (m *Manager) ServerPrefix(guildID string) string {
	if guildID == "" {
		return m.cfg.DefaultPrefix
	}
	prefix, err := m.store.Prefix(guildID)
	if err != nil {
		log.Printf("[WARN] manager: prefix lookup for guild %s: %v", guildID, err)
		return m.cfg.DefaultPrefix
	}
	if prefix == "" {
		return m.cfg.DefaultPrefix
	}
	return prefix
}

// SetServerPrefix stores a guild prefix. Empty resets the guild to the
// process default.
func (m *Manager) SetServerPrefix(guildID, prefix string) error {
	if guildID == "" {
		return errors.New("manager: guild id required")
	}
	return m.store.SetPrefix(guildID, prefix)
}

// Categories returns every category with at least one registered command,
// ordered by config.CategoryWeights, unknown categories last by name.
func (m *Manager) Categories() []string {
	seen := map[string]bool{}
	var categories []string
	for _, cmd := range m.registry.All() {
		if c := cmd.Category(); c != "" && !seen[c] {
			seen[c] = true
			categories = append(categories, c)
		}
	}

	sort.Slice(categories, func(i, j int) bool {
		wi, oki := config.CategoryWeights[categories[i]]
		wj, okj := config.CategoryWeights[categories[j]]
		switch {
		case oki && okj:
			return wi < wj
		case oki:
			return true
		case okj:
			return false
		default:
			return categories[i] < categories[j]
		}
	})
	return categories
}

// Reload re-registers the given command set from scratch. Registration
// errors are logged and skipped so one bad descriptor cannot block the
// rest.
func (m *Manager) Reload(commands []Command) int {
	m.registry.Clear()
	registered := 0
	for _, cmd := range commands {
		if err := m.registry.Register(cmd); err != nil {
			log.Printf("[ERR] manager: register %s: %v", cmd.Name(), err)
			continue
		}
		registered++
	}
	log.Printf("[INFO] manager: registered %d/%d commands", registered, len(commands))
	return registered
}

// RecordUsage persists a successful invocation into the guild's usage log.
func (m *Manager) RecordUsage(guildID string, usage storage.UsageRecord) {
	if guildID == "" {
		return
	}
	if err := m.store.AppendUsage(guildID, usage); err != nil {
		log.Printf("[WARN] manager: append usage for guild %s: %v", guildID, err)
	}
}
