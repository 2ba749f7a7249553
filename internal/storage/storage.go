// Package storage persists per-guild chat settings and cooldowns.
package storage

import (
	"fmt"
	"sync"
	"time"

	"domme-chat/datastore"
)

// globalKey holds cooldowns that are not bound to a guild.
const globalKey = "_global"

type Storage struct {
	ds  *datastore.DataStore
	mu  sync.Mutex // serializes read-modify-write of records
	now func() time.Time
}

// Record is everything stored for one guild.
type Record struct {
	Chat      *ChatSettings        `json:"chat,omitempty"`
	Cooldowns map[string]time.Time `json:"cooldowns,omitempty"` // key = CooldownKey(...), value = expiry
}

func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds, now: time.Now}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// getOrCreateGuildRecord must be called with s.mu held.
func (s *Storage) getOrCreateGuildRecord(guildID string) (*Record, error) {
	var record Record
	if _, err := s.ds.Decode(guildID, &record); err != nil {
		return nil, fmt.Errorf("load record %s: %w", guildID, err)
	}
	if record.Cooldowns == nil {
		record.Cooldowns = make(map[string]time.Time)
	}
	return &record, nil
}

func (s *Storage) putRecord(guildID string, record *Record) error {
	return s.ds.Set(guildID, record)
}

func recordKey(guildID string) string {
	if guildID == "" {
		return globalKey
	}
	return guildID
}
