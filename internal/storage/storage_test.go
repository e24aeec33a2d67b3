package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "datastore.json"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorage_Overrides_RoundTrip(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.SetOverride("g1", "purge", "r1", true))
	require.NoError(t, s.SetOverride("g1", "purge", "r2", false))
	require.NoError(t, s.SetOverride("g1", "ping", "r1", false))

	overrides, err := s.GuildOverrides("g1")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"r1": true, "r2": false}, overrides["purge"])
	assert.Equal(t, map[string]bool{"r1": false}, overrides["ping"])
}

func TestStorage_RemoveOverride_DropsEmptyCommands(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.SetOverride("g1", "purge", "r1", true))

	require.NoError(t, s.RemoveOverride("g1", "purge", "r1"))

	overrides, err := s.GuildOverrides("g1")
	require.NoError(t, err)
	assert.NotContains(t, overrides, "purge")

	// Removing again is harmless.
	assert.NoError(t, s.RemoveOverride("g1", "purge", "r1"))
}

func TestStorage_Prefix(t *testing.T) {
	s := newTestStorage(t)

	prefix, err := s.Prefix("g1")
	require.NoError(t, err)
	assert.Empty(t, prefix, "unset prefix reads as empty")

	require.NoError(t, s.SetPrefix("g1", "?"))
	prefix, err = s.Prefix("g1")
	require.NoError(t, err)
	assert.Equal(t, "?", prefix)
}

func TestStorage_Persistence_AcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datastore.json")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.SetOverride("g1", "purge", "r1", false))
	require.NoError(t, s.SetPrefix("g1", "?"))
	require.NoError(t, s.Close())

	s2, err := New(path)
	require.NoError(t, err)
	defer s2.Close()

	overrides, err := s2.GuildOverrides("g1")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"r1": false}, overrides["purge"])

	prefix, err := s2.Prefix("g1")
	require.NoError(t, err)
	assert.Equal(t, "?", prefix)
}

func TestStorage_UsageLog_CapHolds(t *testing.T) {
	s := newTestStorage(t)

	for i := 0; i < usageLogLimit+10; i++ {
		require.NoError(t, s.AppendUsage("g1", UsageRecord{
			UserID:   "u1",
			Command:  "ping",
			Datetime: time.Now(),
		}))
	}

	usage, err := s.UsageLog("g1")
	require.NoError(t, err)
	assert.Len(t, usage, usageLogLimit)
}

func TestStorage_TrimUsageBefore(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()

	require.NoError(t, s.AppendUsage("g1", UsageRecord{Command: "old", Datetime: now.Add(-48 * time.Hour)}))
	require.NoError(t, s.AppendUsage("g1", UsageRecord{Command: "new", Datetime: now}))

	trimmed, err := s.TrimUsageBefore("g1", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, trimmed)

	usage, err := s.UsageLog("g1")
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, "new", usage[0].Command)
}

func TestStorage_ClearAll(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.SetOverride("g1", "purge", "r1", true))
	require.NoError(t, s.SetPrefix("g2", "?"))
	require.Equal(t, 2, s.GuildCount())

	require.NoError(t, s.ClearAll())
	assert.Zero(t, s.GuildCount())
}
