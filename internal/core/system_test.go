package core

import (
	"path/filepath"
	"testing"
	"time"

	"gatebot/internal/config"
	"gatebot/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSystem(t *testing.T, commands ...Command) *System {
	t.Helper()

	cfg := &config.Config{
		DiscordToken:       "test-token",
		DefaultPrefix:      "!",
		HistoryCapacity:    64,
		AuditCapacity:      64,
		CooldownMaxEntries: 64,
	}

	store, err := storage.New(filepath.Join(t.TempDir(), "datastore.json"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sys := NewSystem(cfg, store, commands)
	require.NoError(t, sys.Init())
	return sys
}

func TestSystem_HandleMessage_DispatchesPrefixedCommand(t *testing.T) {
	ran := false
	sys := newTestSystem(t, &fakeCommand{
		name: "ping",
		run:  func(*Context) error { ran = true; return nil },
	})

	record, matched := sys.HandleMessage(nil, Event{Raw: "!ping", UserID: "u1", GuildID: "g1"})

	require.True(t, matched)
	assert.True(t, ran)
	assert.Equal(t, OutcomeSuccess, record.Outcome)
}

func TestSystem_HandleMessage_IgnoresUnprefixedText(t *testing.T) {
	sys := newTestSystem(t, &fakeCommand{name: "ping"})

	_, matched := sys.HandleMessage(nil, Event{Raw: "hello there", UserID: "u1"})
	assert.False(t, matched)

	_, matched = sys.HandleMessage(nil, Event{Raw: "!", UserID: "u1"})
	assert.False(t, matched, "bare prefix carries no identifier")
}

func TestSystem_HandleMessage_PassesArguments(t *testing.T) {
	var gotArgs []string
	sys := newTestSystem(t, &fakeCommand{
		name: "echo",
		run:  func(ctx *Context) error { gotArgs = ctx.Args; return nil },
	})

	_, matched := sys.HandleMessage(nil, Event{Raw: "!echo hello   world", UserID: "u1"})

	require.True(t, matched)
	assert.Equal(t, []string{"hello", "world"}, gotArgs)
}

func TestSystem_HandleMessage_GuildPrefixApplies(t *testing.T) {
	sys := newTestSystem(t, &fakeCommand{name: "ping"})
	require.NoError(t, sys.Manager().SetServerPrefix("g1", "?"))

	record, matched := sys.HandleMessage(nil, Event{Raw: "?ping", UserID: "u1", GuildID: "g1"})
	require.True(t, matched)
	assert.Equal(t, OutcomeSuccess, record.Outcome)

	// The old default no longer matches in that guild.
	_, matched = sys.HandleMessage(nil, Event{Raw: "!ping", UserID: "u1", GuildID: "g1"})
	assert.False(t, matched)

	// Other guilds keep the default.
	_, matched = sys.HandleMessage(nil, Event{Raw: "!ping", UserID: "u1", GuildID: "g2"})
	assert.True(t, matched)
}

func TestSystem_HandleMessage_SuccessPersistsUsage(t *testing.T) {
	sys := newTestSystem(t, &fakeCommand{name: "ping"})

	sys.HandleMessage(nil, Event{Raw: "!ping", UserID: "u1", Username: "alice", GuildID: "g1"})
	sys.HandleMessage(nil, Event{Raw: "!ghost", UserID: "u1", GuildID: "g1"})

	// Only the success lands in the persisted usage log.
	stats := sys.Stats()
	assert.Equal(t, uint64(1), stats.Succeeded)
	assert.Equal(t, uint64(1), stats.Denied)
}

func TestSystem_RegisterCommand_Booleans(t *testing.T) {
	sys := newTestSystem(t, &fakeCommand{name: "ping"})

	assert.True(t, sys.RegisterCommand(&fakeCommand{name: "roll"}))
	assert.False(t, sys.RegisterCommand(&fakeCommand{name: "ping"}), "duplicate must report failure, not panic")

	assert.True(t, sys.UnregisterCommand("roll"))
	assert.False(t, sys.UnregisterCommand("roll"))
}

func TestSystem_ReloadCommands_RestoresRegistry(t *testing.T) {
	sys := newTestSystem(t, &fakeCommand{name: "ping"}, &fakeCommand{name: "help"})

	require.True(t, sys.UnregisterCommand("ping"))
	_, err := sys.Manager().Registry().Resolve("ping")
	require.Error(t, err)

	assert.True(t, sys.ReloadCommands())
	_, err = sys.Manager().Registry().Resolve("help")
	assert.NoError(t, err)
}

func TestSystem_SetRolePermission_EndToEnd(t *testing.T) {
	sys := newTestSystem(t, &fakeCommand{
		name:  "purge",
		perms: []int64{discordgo.PermissionManageMessages},
	})
	ev := Event{Raw: "!purge", UserID: "u1", GuildID: "g1", RoleIDs: []string{"mods"}}

	record, _ := sys.HandleMessage(nil, ev)
	require.Equal(t, OutcomeDeniedPermission, record.Outcome)

	require.True(t, sys.SetRolePermission("admin", "g1", "purge", "mods", true))

	record, _ = sys.HandleMessage(nil, ev)
	assert.Equal(t, OutcomeSuccess, record.Outcome)

	audit := sys.PermissionAuditLog(AuditFilter{GuildID: "g1"})
	require.Len(t, audit, 1)
	assert.Equal(t, "admin", audit[0].ActorID)
}

func TestSystem_Cooldown_AdminOverride(t *testing.T) {
	sys := newTestSystem(t, &fakeCommand{name: "ping"})

	require.True(t, sys.SetGlobalCooldown("ping", time.Minute))

	record, _ := sys.HandleMessage(nil, Event{Raw: "!ping", UserID: "u1", GuildID: "g1"})
	require.Equal(t, OutcomeSuccess, record.Outcome)

	record, _ = sys.HandleMessage(nil, Event{Raw: "!ping", UserID: "u2", GuildID: "g1"})
	assert.Equal(t, OutcomeDeniedCooldown, record.Outcome)
	assert.Greater(t, record.Remaining, time.Duration(0))
}

func TestSystem_CommandsForDashboard(t *testing.T) {
	sys := newTestSystem(t,
		&fakeCommand{name: "ping", aliases: []string{"p"}, category: "🕯️ Information"},
		&fakeCommand{name: "prefix", category: "⚙️ Settings", guildOnly: true},
	)
	require.True(t, sys.SetRolePermission("admin", "g1", "ping", "r1", false))

	cmds := sys.CommandsForDashboard("g1")
	require.Len(t, cmds, 2)

	// Information sorts before Settings per category weights.
	assert.Equal(t, "ping", cmds[0].Name)
	assert.Equal(t, map[string]bool{"r1": false}, cmds[0].Overrides)
	assert.True(t, cmds[1].GuildOnly)
}

func TestSystem_HealthStatus(t *testing.T) {
	sys := newTestSystem(t, &fakeCommand{name: "ping"})
	sys.HandleMessage(nil, Event{Raw: "!ping", UserID: "u1", GuildID: "g1"})

	h := sys.HealthStatus()
	assert.True(t, h.Healthy)
	assert.Equal(t, 1, h.Commands)
	assert.Equal(t, 1, h.HistorySize)
	assert.Zero(t, h.ActiveExecutions)
}

func TestSystem_ClearAllData(t *testing.T) {
	sys := newTestSystem(t, &fakeCommand{name: "ping"})
	require.True(t, sys.SetRolePermission("admin", "g1", "ping", "r1", false))

	record, _ := sys.HandleMessage(nil, Event{Raw: "!ping", UserID: "u1", GuildID: "g1", RoleIDs: []string{"r1"}})
	require.Equal(t, OutcomeDeniedPermission, record.Outcome)

	require.True(t, sys.ClearAllData())

	record, _ = sys.HandleMessage(nil, Event{Raw: "!ping", UserID: "u1", GuildID: "g1", RoleIDs: []string{"r1"}})
	assert.Equal(t, OutcomeSuccess, record.Outcome, "cleared overrides must stop applying")
}
