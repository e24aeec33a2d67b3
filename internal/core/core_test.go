package core

import (
	"errors"
	"time"
)

// fakeCommand is the test double used across the core tests.
type fakeCommand struct {
	name      string
	aliases   []string
	category  string
	perms     []int64
	cooldown  time.Duration
	guildOnly bool
	run       func(*Context) error
}

func (f *fakeCommand) Name() string             { return f.name }
func (f *fakeCommand) Description() string      { return "test command " + f.name }
func (f *fakeCommand) Aliases() []string        { return f.aliases }
func (f *fakeCommand) Category() string         { return f.category }
func (f *fakeCommand) UserPermissions() []int64 { return f.perms }
func (f *fakeCommand) Cooldown() time.Duration  { return f.cooldown }
func (f *fakeCommand) GuildOnly() bool          { return f.guildOnly }

func (f *fakeCommand) Run(ctx *Context) error {
	if f.run != nil {
		return f.run(ctx)
	}
	return nil
}

// stubStore is an in-memory OverrideStore with error injection.
type stubStore struct {
	overrides map[string]map[string]map[string]bool // guild -> command -> role
	failReads bool
}

var errStoreDown = errors.New("store down")

func newStubStore() *stubStore {
	return &stubStore{overrides: map[string]map[string]map[string]bool{}}
}

func (s *stubStore) GuildOverrides(guildID string) (map[string]map[string]bool, error) {
	if s.failReads {
		return nil, errStoreDown
	}
	guild := s.overrides[guildID]
	out := map[string]map[string]bool{}
	for command, roles := range guild {
		rc := map[string]bool{}
		for role, allowed := range roles {
			rc[role] = allowed
		}
		out[command] = rc
	}
	return out, nil
}

func (s *stubStore) SetOverride(guildID, command, roleID string, allowed bool) error {
	guild, ok := s.overrides[guildID]
	if !ok {
		guild = map[string]map[string]bool{}
		s.overrides[guildID] = guild
	}
	roles, ok := guild[command]
	if !ok {
		roles = map[string]bool{}
		guild[command] = roles
	}
	roles[roleID] = allowed
	return nil
}

func (s *stubStore) RemoveOverride(guildID, command, roleID string) error {
	if roles, ok := s.overrides[guildID][command]; ok {
		delete(roles, roleID)
	}
	return nil
}
