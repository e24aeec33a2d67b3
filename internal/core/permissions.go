package core

import (
	"log"
	"sync"
	"time"

	"gatebot/pkg/ring"

	"github.com/bwmarrin/discordgo"
)

// Reason codes attached to permission decisions for auditing and user-facing
// denial messages.
type Reason string

const (
	ReasonAdministrator     Reason = "administrator"
	ReasonRoleDenied        Reason = "role_override_deny"
	ReasonRoleAllowed       Reason = "role_override_allow"
	ReasonOpenCommand       Reason = "open_command"
	ReasonDefaultCapability Reason = "default_capability"
	ReasonMissingCapability Reason = "missing_capability"
	ReasonGuildOnly         Reason = "guild_only"
	ReasonStoreError        Reason = "store_error"
)

// Decision is the outcome of one admission-control evaluation.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// AuditEntry records one permission-mutation call. Every set/remove is
// audited, successful or not, changed or not.
type AuditEntry struct {
	Time    time.Time `json:"time"`
	ActorID string    `json:"actor_id"`
	GuildID string    `json:"guild_id"`
	Command string    `json:"command"`
	RoleID  string    `json:"role_id"`
	Action  string    `json:"action"` // "set" or "remove"
	Allowed bool      `json:"allowed"`
	Changed bool      `json:"changed"`
	Error   string    `json:"error,omitempty"`
}

// AuditFilter narrows PermissionManager.AuditLog output. Zero values match
// everything.
type AuditFilter struct {
	GuildID string
	Command string
	ActorID string
	Since   time.Time
	Until   time.Time
}

// OverrideStore is the persisted override collection the manager reads
// through. Implemented by internal/storage.
type OverrideStore interface {
	GuildOverrides(guildID string) (map[string]map[string]bool, error)
	SetOverride(guildID, command, roleID string, allowed bool) error
	RemoveOverride(guildID, command, roleID string) error
}

// PermissionManager decides whether an actor may invoke a command. Override
// state is cached in memory per guild and written through to the store, so
// the hot admission path never waits on disk.
type PermissionManager struct {
	store OverrideStore

	mu             sync.RWMutex
	cache          map[string]map[string]map[string]bool // guild -> command -> role -> allowed
	requirementsFn func(command string) []int64

	audit *ring.Buffer[AuditEntry]
	now   func() time.Time
}

func NewPermissionManager(store OverrideStore, auditCapacity int) *PermissionManager {
	return &PermissionManager{
		store: store,
		cache: make(map[string]map[string]map[string]bool),
		audit: ring.New[AuditEntry](auditCapacity),
		now:   time.Now,
	}
}

// IsAllowed evaluates, in order: administrator bypass, per-role overrides
// (an explicit deny on any of the actor's roles beats any explicit allow),
// then the command's default requirement against the actor's permission
// bits. A store failure denies; absence of information never grants access.
func (p *PermissionManager) IsAllowed(guildID, command string, roleIDs []string, perms int64) Decision {
	if perms&discordgo.PermissionAdministrator != 0 {
		return Decision{Allowed: true, Reason: ReasonAdministrator}
	}

	if guildID != "" {
		overrides, err := p.guildOverrides(guildID)
		if err != nil {
			log.Printf("[ERR] permissions: override lookup for guild %s: %v", guildID, err)
			return Decision{Allowed: false, Reason: ReasonStoreError}
		}

		// The cached map is shared with writers; walk it under the lock.
		p.mu.RLock()
		sawAllow, sawDeny := false, false
		if roles, ok := overrides[command]; ok {
			for _, roleID := range roleIDs {
				allowed, ok := roles[roleID]
				if !ok {
					continue
				}
				if allowed {
					sawAllow = true
				} else {
					sawDeny = true
				}
			}
		}
		p.mu.RUnlock()

		// An explicit deny on any role beats any explicit allow.
		if sawDeny {
			return Decision{Allowed: false, Reason: ReasonRoleDenied}
		}
		if sawAllow {
			return Decision{Allowed: true, Reason: ReasonRoleAllowed}
		}
	}

	return p.defaultDecision(command, perms)
}

// defaultDecision applies the command's declared requirement: empty = open,
// otherwise any-of over the actor's permission bits. An unknown command has
// no requirement on file and stays open here; resolution failures are the
// registry's call, not the permission manager's.
func (p *PermissionManager) defaultDecision(command string, perms int64) Decision {
	required := p.requirements(command)
	if len(required) == 0 {
		return Decision{Allowed: true, Reason: ReasonOpenCommand}
	}

	for _, bit := range required {
		if perms&bit != 0 {
			return Decision{Allowed: true, Reason: ReasonDefaultCapability}
		}
	}
	return Decision{Allowed: false, Reason: ReasonMissingCapability}
}

// requirements reads the injected default-requirement lookup. Without one,
// or for an unknown command, there is simply no requirement on file.
func (p *PermissionManager) requirements(command string) []int64 {
	p.mu.RLock()
	fn := p.requirementsFn
	p.mu.RUnlock()
	if fn == nil {
		return nil
	}
	return fn(command)
}

// SetRequirementsFunc wires the default-requirement lookup, normally the
// registry's descriptor metadata.
func (p *PermissionManager) SetRequirementsFunc(fn func(command string) []int64) {
	p.mu.Lock()
	p.requirementsFn = fn
	p.mu.Unlock()
}

// SetRolePermission stores one override, write-through. Setting the same
// value twice is a no-op for effect but is still audited.
func (p *PermissionManager) SetRolePermission(actorID, guildID, command, roleID string, allowed bool) error {
	overrides, err := p.guildOverrides(guildID)
	changed := true
	if err == nil {
		p.mu.RLock()
		if prev, ok := overrides[command][roleID]; ok && prev == allowed {
			changed = false
		}
		p.mu.RUnlock()
	}

	err = p.store.SetOverride(guildID, command, roleID, allowed)
	p.appendAudit(AuditEntry{
		Time: p.now(), ActorID: actorID, GuildID: guildID, Command: command,
		RoleID: roleID, Action: "set", Allowed: allowed, Changed: changed && err == nil,
		Error: errString(err),
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	if guild, ok := p.cache[guildID]; ok {
		roles, ok := guild[command]
		if !ok {
			roles = map[string]bool{}
			guild[command] = roles
		}
		roles[roleID] = allowed
	}
	p.mu.Unlock()
	return nil
}

// RemoveRolePermission drops one override, write-through. Removing an absent
// override is a no-op for effect but is still audited.
func (p *PermissionManager) RemoveRolePermission(actorID, guildID, command, roleID string) error {
	overrides, err := p.guildOverrides(guildID)
	changed := false
	if err == nil {
		p.mu.RLock()
		_, changed = overrides[command][roleID]
		p.mu.RUnlock()
	}

	err = p.store.RemoveOverride(guildID, command, roleID)
	p.appendAudit(AuditEntry{
		Time: p.now(), ActorID: actorID, GuildID: guildID, Command: command,
		RoleID: roleID, Action: "remove", Changed: changed && err == nil,
		Error: errString(err),
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	if guild, ok := p.cache[guildID]; ok {
		if roles, ok := guild[command]; ok {
			delete(roles, roleID)
			if len(roles) == 0 {
				delete(guild, command)
			}
		}
	}
	p.mu.Unlock()
	return nil
}

// GuildPermissions returns a copy of the guild's full override snapshot for
// display purposes.
func (p *PermissionManager) GuildPermissions(guildID string) (map[string]map[string]bool, error) {
	overrides, err := p.guildOverrides(guildID)
	if err != nil {
		return nil, err
	}

	snapshot := make(map[string]map[string]bool, len(overrides))
	p.mu.RLock()
	defer p.mu.RUnlock()
	for command, roles := range overrides {
		rc := make(map[string]bool, len(roles))
		for role, allowed := range roles {
			rc[role] = allowed
		}
		snapshot[command] = rc
	}
	return snapshot, nil
}

// AuditLog returns audit entries matching the filter, oldest first.
func (p *PermissionManager) AuditLog(filter AuditFilter) []AuditEntry {
	var out []AuditEntry
	for _, e := range p.audit.Snapshot() {
		if filter.GuildID != "" && e.GuildID != filter.GuildID {
			continue
		}
		if filter.Command != "" && e.Command != filter.Command {
			continue
		}
		if filter.ActorID != "" && e.ActorID != filter.ActorID {
			continue
		}
		if !filter.Since.IsZero() && e.Time.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && e.Time.After(filter.Until) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// AuditLen returns the number of buffered audit entries.
func (p *PermissionManager) AuditLen() int {
	return p.audit.Len()
}

// guildOverrides serves the cached override map for a guild, loading it from
// the store on first access.
func (p *PermissionManager) guildOverrides(guildID string) (map[string]map[string]bool, error) {
	p.mu.RLock()
	cached, ok := p.cache[guildID]
	p.mu.RUnlock()
	if ok {
		return cached, nil
	}

	loaded, err := p.store.GuildOverrides(guildID)
	if err != nil {
		return nil, err
	}
	if loaded == nil {
		loaded = map[string]map[string]bool{}
	}

	p.mu.Lock()
	// Another reader may have populated the guild meanwhile; keep theirs.
	if cached, ok := p.cache[guildID]; ok {
		p.mu.Unlock()
		return cached, nil
	}
	p.cache[guildID] = loaded
	p.mu.Unlock()
	return loaded, nil
}

// InvalidateGuild drops a guild from the cache; the next lookup reloads it
// from the store.
func (p *PermissionManager) InvalidateGuild(guildID string) {
	p.mu.Lock()
	delete(p.cache, guildID)
	p.mu.Unlock()
}

// InvalidateAll drops the whole cache, forcing reloads from the store.
func (p *PermissionManager) InvalidateAll() {
	p.mu.Lock()
	p.cache = make(map[string]map[string]map[string]bool)
	p.mu.Unlock()
}

func (p *PermissionManager) appendAudit(e AuditEntry) {
	p.audit.Push(e)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
