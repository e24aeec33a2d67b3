package core

import (
	"sync"
	"time"
)

type cooldownKey struct {
	userID  string
	command string
}

// CooldownManager tracks invocation cooldowns per (user, command) and per
// command globally. Entries carry expiry timestamps and are evicted lazily:
// an expired entry reads as absent and is overwritten on the next start.
type CooldownManager struct {
	mu sync.Mutex

	user   map[cooldownKey]time.Time // expiry per user+command
	global map[string]time.Time      // expiry per command

	// Administrative duration overrides, consulted before a command's base
	// cooldown on the next check.
	userDur   map[cooldownKey]time.Duration
	globalDur map[string]time.Duration

	maxEntries int
	now        func() time.Time
}

func NewCooldownManager(maxEntries int) *CooldownManager {
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	return &CooldownManager{
		user:       make(map[cooldownKey]time.Time),
		global:     make(map[string]time.Time),
		userDur:    make(map[cooldownKey]time.Duration),
		globalDur:  make(map[string]time.Duration),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// CheckAndStart atomically checks for an active cooldown and, when none is
// active, records the new expiry. Returns false plus the remaining wait when
// the invocation is still cooling down. Two near-simultaneous calls for the
// same key cannot both pass.
func (c *CooldownManager) CheckAndStart(userID, command string, base time.Duration) (bool, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	key := cooldownKey{userID: userID, command: command}

	if expiry, ok := c.user[key]; ok && now.Before(expiry) {
		return false, expiry.Sub(now)
	}
	if expiry, ok := c.global[command]; ok && now.Before(expiry) {
		return false, expiry.Sub(now)
	}

	userDur := base
	if d, ok := c.userDur[key]; ok {
		userDur = d
	}
	if userDur > 0 {
		c.evictIfFullLocked(now)
		c.user[key] = now.Add(userDur)
	}

	// The global scope only engages when a global duration is configured
	// for the command; otherwise one user would lock out all others.
	if d, ok := c.globalDur[command]; ok && d > 0 {
		c.global[command] = now.Add(d)
	}

	return true, 0
}

// SetCooldown overrides the cooldown duration for one (user, command),
// effective on the next check. Zero or negative disables the cooldown for
// that pair.
func (c *CooldownManager) SetCooldown(userID, command string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userDur[cooldownKey{userID: userID, command: command}] = d
}

// SetGlobalCooldown configures a command-wide cooldown shared by all users,
// effective on the next check. Zero or negative removes it.
func (c *CooldownManager) SetGlobalCooldown(command string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d <= 0 {
		delete(c.globalDur, command)
		delete(c.global, command)
		return
	}
	c.globalDur[command] = d
}

// Remaining returns the active remaining wait for (user, command), covering
// both the per-user and the global scope. ok is false when nothing is
// active.
func (c *CooldownManager) Remaining(userID, command string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var remaining time.Duration

	if expiry, ok := c.user[cooldownKey{userID: userID, command: command}]; ok && now.Before(expiry) {
		remaining = expiry.Sub(now)
	}
	if expiry, ok := c.global[command]; ok && now.Before(expiry) {
		if g := expiry.Sub(now); g > remaining {
			remaining = g
		}
	}

	return remaining, remaining > 0
}

// Entries returns the number of tracked per-user entries, expired included.
func (c *CooldownManager) Entries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.user)
}

// Reset drops all tracked cooldowns and duration overrides.
func (c *CooldownManager) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = make(map[cooldownKey]time.Time)
	c.global = make(map[string]time.Time)
	c.userDur = make(map[cooldownKey]time.Duration)
	c.globalDur = make(map[string]time.Duration)
}

// evictIfFullLocked keeps the per-user map under the cap: expired entries go
// first, then the entry with the oldest expiry. Caller holds the lock.
func (c *CooldownManager) evictIfFullLocked(now time.Time) {
	if len(c.user) < c.maxEntries {
		return
	}

	var (
		victim      cooldownKey
		victimSet   bool
		oldest      cooldownKey
		oldestSet   bool
		oldestUntil time.Time
	)
	for key, expiry := range c.user {
		if !now.Before(expiry) {
			// Expired entries are candidates in any order; take the
			// longest-expired one seen.
			if !victimSet || expiry.Before(c.user[victim]) {
				victim = key
				victimSet = true
			}
			continue
		}
		if !oldestSet || expiry.Before(oldestUntil) {
			oldest = key
			oldestUntil = expiry
			oldestSet = true
		}
	}

	switch {
	case victimSet:
		delete(c.user, victim)
	case oldestSet:
		delete(c.user, oldest)
	}
}
