package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Resolve_NameAndAliasesSameCommand(t *testing.T) {
	r := NewRegistry()
	cmd := &fakeCommand{name: "purge", aliases: []string{"clean", "sweep"}}
	require.NoError(t, r.Register(cmd))

	byName, err := r.Resolve("purge")
	require.NoError(t, err)

	for _, alias := range []string{"clean", "sweep", "PURGE", "Clean"} {
		got, err := r.Resolve(alias)
		require.NoError(t, err, "resolve %q", alias)
		assert.Same(t, byName, got, "resolve %q", alias)
	}
}

func TestRegistry_Register_DuplicateNameRejected(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeCommand{name: "ping"}))

	err := r.Register(&fakeCommand{name: "Ping"})
	require.ErrorIs(t, err, ErrDuplicateIdentity)
	assert.Equal(t, 1, r.Len(), "registry must be unchanged after a rejected registration")
}

func TestRegistry_Register_DuplicateAliasRejected(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeCommand{name: "ping", aliases: []string{"p"}}))

	err := r.Register(&fakeCommand{name: "purge", aliases: []string{"P"}})
	require.ErrorIs(t, err, ErrDuplicateIdentity)

	// No partial registration: neither the new name nor its other keys exist.
	_, err = r.Resolve("purge")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Unregister_RemovesAllAliases(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeCommand{name: "roll", aliases: []string{"dice", "d"}}))

	require.NoError(t, r.Unregister("roll"))

	for _, id := range []string{"roll", "dice", "d"} {
		_, err := r.Resolve(id)
		assert.ErrorIs(t, err, ErrNotFound, "identifier %q", id)
	}
}

func TestRegistry_Unregister_UnknownReturnsNotFound(t *testing.T) {
	r := NewRegistry()
	assert.ErrorIs(t, r.Unregister("ghost"), ErrNotFound)
}

func TestRegistry_ListByCategory(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeCommand{name: "ping", category: "info"}))
	require.NoError(t, r.Register(&fakeCommand{name: "help", category: "info"}))
	require.NoError(t, r.Register(&fakeCommand{name: "prefix", category: "settings"}))

	names := map[string]bool{}
	for _, cmd := range r.ListByCategory("info") {
		names[cmd.Name()] = true
	}
	assert.Equal(t, map[string]bool{"ping": true, "help": true}, names)
	assert.Empty(t, r.ListByCategory("music"))
}
