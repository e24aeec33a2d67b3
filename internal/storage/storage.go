// Package storage holds the per-guild persisted records: the configured
// prefix, the command permission overrides, and a short command usage log.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"gatebot/datastore"
)

const usageLogLimit = 50

type Storage struct {
	ds *datastore.DataStore
}

// UsageRecord is one persisted command invocation, kept per guild for the
// retention sweeper to age out.
type UsageRecord struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	Datetime  time.Time `json:"datetime"`
}

// Record is everything persisted for one guild.
type Record struct {
	Prefix string `json:"prefix,omitempty"`
	// command name -> role id -> allowed
	Overrides map[string]map[string]bool `json:"command_overrides,omitempty"`
	UsageLog  []UsageRecord              `json:"usage_log,omitempty"`
}

func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

func NewWithDataStore(ds *datastore.DataStore) *Storage {
	return &Storage{ds: ds}
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// getOrCreateGuildRecord loads a guild's record, creating an empty one the
// first time the guild is seen.
func (s *Storage) getOrCreateGuildRecord(guildID string) (*Record, error) {
	data, exists := s.ds.Get(guildID)
	if !exists {
		newRecord := &Record{Overrides: map[string]map[string]bool{}}
		s.ds.Add(guildID, newRecord)
		return newRecord, nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("storage: marshal record: %w", err)
	}

	var record Record
	if err := json.Unmarshal(jsonData, &record); err != nil {
		return nil, fmt.Errorf("storage: unmarshal record: %w", err)
	}

	if record.Overrides == nil {
		record.Overrides = map[string]map[string]bool{}
	}
	if len(record.UsageLog) > usageLogLimit {
		record.UsageLog = record.UsageLog[len(record.UsageLog)-usageLogLimit:]
	}

	return &record, nil
}

// GuildOverrides returns the full override map for a guild:
// command name -> role id -> allowed.
func (s *Storage) GuildOverrides(guildID string) (map[string]map[string]bool, error) {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.Overrides, nil
}

// SetOverride stores one role override for a command in a guild.
func (s *Storage) SetOverride(guildID, command, roleID string, allowed bool) error {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}

	roles, ok := record.Overrides[command]
	if !ok {
		roles = map[string]bool{}
		record.Overrides[command] = roles
	}
	roles[roleID] = allowed

	s.ds.Add(guildID, record)
	return nil
}

// RemoveOverride drops one role override. Removing an absent override is not
// an error.
func (s *Storage) RemoveOverride(guildID, command, roleID string) error {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}

	if roles, ok := record.Overrides[command]; ok {
		delete(roles, roleID)
		if len(roles) == 0 {
			delete(record.Overrides, command)
		}
	}

	s.ds.Add(guildID, record)
	return nil
}

// SetPrefix stores the guild's command prefix. An empty prefix clears the
// guild back to the process default.
func (s *Storage) SetPrefix(guildID, prefix string) error {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}

	record.Prefix = prefix
	s.ds.Add(guildID, record)
	return nil
}

// Prefix returns the guild's configured prefix, empty when unset.
func (s *Storage) Prefix(guildID string) (string, error) {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return "", err
	}
	return record.Prefix, nil
}

// AppendUsage records a command invocation in the guild's usage log, trimming
// to the per-guild cap.
func (s *Storage) AppendUsage(guildID string, usage UsageRecord) error {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}

	record.UsageLog = append(record.UsageLog, usage)
	if len(record.UsageLog) > usageLogLimit {
		record.UsageLog = record.UsageLog[len(record.UsageLog)-usageLogLimit:]
	}

	s.ds.Add(guildID, record)
	return nil
}

// UsageLog returns the guild's persisted usage log, oldest first.
func (s *Storage) UsageLog(guildID string) ([]UsageRecord, error) {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.UsageLog, nil
}

// TrimUsageBefore drops usage entries older than cutoff and returns how many
// were removed.
func (s *Storage) TrimUsageBefore(guildID string, cutoff time.Time) (int, error) {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return 0, err
	}

	kept := record.UsageLog[:0]
	for _, u := range record.UsageLog {
		if !u.Datetime.Before(cutoff) {
			kept = append(kept, u)
		}
	}
	trimmed := len(record.UsageLog) - len(kept)
	if trimmed == 0 {
		return 0, nil
	}

	record.UsageLog = kept
	s.ds.Add(guildID, record)
	return trimmed, nil
}

// GuildIDs lists every guild with a persisted record.
func (s *Storage) GuildIDs() []string {
	return s.ds.Keys()
}

// GuildCount returns the number of persisted guild records.
func (s *Storage) GuildCount() int {
	return s.ds.Len()
}

// ClearAll wipes every persisted record.
func (s *Storage) ClearAll() error {
	s.ds.Clear()
	return s.ds.Save()
}
