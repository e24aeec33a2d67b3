// Package retention ages out persisted per-guild usage data on a timer.
package retention

import (
	"context"
	"log"
	"sync"
	"time"

	"gatebot/internal/storage"
)

// Sweeper periodically trims usage-log entries older than MaxAge from every
// persisted guild record.
type Sweeper struct {
	store    *storage.Storage
	maxAge   time.Duration
	interval time.Duration

	mu      sync.Mutex
	runs    int
	trimmed int
	lastRun time.Time

	now func() time.Time
}

// SweepStats is the sweeper's bookkeeping for ops tooling.
type SweepStats struct {
	Runs         int       `json:"runs"`
	TotalTrimmed int       `json:"total_trimmed"`
	LastRun      time.Time `json:"last_run"`
}

func NewSweeper(store *storage.Storage, maxAge, interval time.Duration) *Sweeper {
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		store:    store,
		maxAge:   maxAge,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps in a loop until ctx is done. Call from main or app lifecycle.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if trimmed := s.ProcessDue(); trimmed > 0 {
				log.Printf("[INFO] retention: trimmed %d usage entries", trimmed)
			}
		}
	}
}

// ProcessDue performs one sweep over all guild records and returns how many
// entries were trimmed. Per-guild failures are logged and skipped.
func (s *Sweeper) ProcessDue() int {
	cutoff := s.now().Add(-s.maxAge)

	total := 0
	for _, guildID := range s.store.GuildIDs() {
		trimmed, err := s.store.TrimUsageBefore(guildID, cutoff)
		if err != nil {
			log.Printf("[ERR] retention: trim guild %s: %v", guildID, err)
			continue
		}
		total += trimmed
	}

	s.mu.Lock()
	s.runs++
	s.trimmed += total
	s.lastRun = s.now()
	s.mu.Unlock()

	return total
}

// Stats returns the sweeper's run counters.
func (s *Sweeper) Stats() SweepStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SweepStats{
		Runs:         s.runs,
		TotalTrimmed: s.trimmed,
		LastRun:      s.lastRun,
	}
}
