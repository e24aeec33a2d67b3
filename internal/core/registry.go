package core

import (
	"fmt"
	"strings"
	"sync"
)

// Registry maps command identities to commands. The lookup map is keyed by
// the lowercased name and every lowercased alias, all pointing at the same
// command, so Resolve stays O(1) regardless of alias count.
type Registry struct {
	mu     sync.RWMutex
	lookup map[string]Command // name and aliases -> command
	names  map[string]Command // canonical name -> command
}

func NewRegistry() *Registry {
	return &Registry{
		lookup: make(map[string]Command),
		names:  make(map[string]Command),
	}
}

// Register adds a command under its name and all aliases. Registration is
// all-or-nothing: any collision leaves the registry untouched.
func (r *Registry) Register(cmd Command) error {
	keys := identityKeys(cmd)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, k := range keys {
		if existing, ok := r.lookup[k]; ok {
			return fmt.Errorf("%w: %q already taken by %q", ErrDuplicateIdentity, k, existing.Name())
		}
	}

	for _, k := range keys {
		r.lookup[k] = cmd
	}
	r.names[strings.ToLower(cmd.Name())] = cmd
	return nil
}

// Unregister removes a command and all of its aliases atomically.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmd, ok := r.names[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	for _, k := range identityKeys(cmd) {
		delete(r.lookup, k)
	}
	delete(r.names, strings.ToLower(cmd.Name()))
	return nil
}

// Resolve finds a command by name or alias, case-insensitive.
func (r *Registry) Resolve(identifier string) (Command, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmd, ok := r.lookup[strings.ToLower(identifier)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, identifier)
	}
	return cmd, nil
}

// ListByCategory returns all commands tagged with the category.
func (r *Registry) ListByCategory(category string) []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var list []Command
	for _, cmd := range r.names {
		if cmd.Category() == category {
			list = append(list, cmd)
		}
	}
	return list
}

// All returns every registered command, one entry per command.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Command, 0, len(r.names))
	for _, cmd := range r.names {
		list = append(list, cmd)
	}
	return list
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Clear drops every registered command.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookup = make(map[string]Command)
	r.names = make(map[string]Command)
}

// identityKeys returns the deduplicated lowercase name + alias set.
func identityKeys(cmd Command) []string {
	seen := map[string]bool{}
	var keys []string
	for _, k := range append([]string{cmd.Name()}, cmd.Aliases()...) {
		k = strings.ToLower(k)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}
