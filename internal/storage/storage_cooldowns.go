package storage

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"domme-chat/internal/chat"
)

// Cooldown is one active cooldown entry.
type Cooldown struct {
	GuildID string
	Key     string
	Until   time.Time
}

// CooldownKey builds the stored key for a scope: user:<guild>:<user>,
// channel:<guild>:<channel>, guild:<guild> or global.
func CooldownKey(scope chat.CooldownScope, guildID, subjectID string) (string, error) {
	switch scope {
	case chat.ScopeUser, chat.ScopeChannel:
		if subjectID == "" {
			return "", fmt.Errorf("%s cooldown needs a subject id", scope)
		}
		return fmt.Sprintf("%s:%s:%s", scope, guildID, subjectID), nil
	case chat.ScopeGuild:
		return fmt.Sprintf("%s:%s", scope, guildID), nil
	case chat.ScopeGlobal:
		return string(chat.ScopeGlobal), nil
	default:
		return "", fmt.Errorf("unknown cooldown scope %q", scope)
	}
}

// recordFor picks the record a scope lives in: global cooldowns live outside any guild.
func recordFor(scope chat.CooldownScope, guildID string) string {
	if scope == chat.ScopeGlobal {
		return globalKey
	}
	return recordKey(guildID)
}

// CheckCooldown reports whether the subject is cooling down and for how much longer.
func (s *Storage) CheckCooldown(scope chat.CooldownScope, guildID, subjectID string) (bool, time.Duration, error) {
	key, err := CooldownKey(scope, guildID, subjectID)
	if err != nil {
		return false, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(recordFor(scope, guildID))
	if err != nil {
		return false, 0, err
	}
	until, ok := record.Cooldowns[key]
	if !ok {
		return false, 0, nil
	}
	left := until.Sub(s.now())
	if left <= 0 {
		return false, 0, nil
	}
	return true, left, nil
}

// SetCooldown starts a cooldown of d. A non-positive d clears it.
func (s *Storage) SetCooldown(scope chat.CooldownScope, guildID, subjectID string, d time.Duration) error {
	if d <= 0 {
		return s.ClearCooldown(scope, guildID, subjectID)
	}
	key, err := CooldownKey(scope, guildID, subjectID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rk := recordFor(scope, guildID)
	record, err := s.getOrCreateGuildRecord(rk)
	if err != nil {
		return err
	}
	record.Cooldowns[key] = s.now().Add(d)
	return s.putRecord(rk, record)
}

func (s *Storage) ClearCooldown(scope chat.CooldownScope, guildID, subjectID string) error {
	key, err := CooldownKey(scope, guildID, subjectID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rk := recordFor(scope, guildID)
	record, err := s.getOrCreateGuildRecord(rk)
	if err != nil {
		return err
	}
	if _, ok := record.Cooldowns[key]; !ok {
		return nil
	}
	delete(record.Cooldowns, key)
	return s.putRecord(rk, record)
}

// ListCooldowns returns active cooldowns of a guild, or of every record when
// guildID is empty, soonest expiry first.
func (s *Storage) ListCooldowns(guildID string) ([]Cooldown, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.ds.Keys()
	if guildID != "" {
		keys = []string{guildID}
	}
	now := s.now()
	var out []Cooldown
	for _, rk := range keys {
		record, err := s.getOrCreateGuildRecord(rk)
		if err != nil {
			return nil, err
		}
		for k, until := range record.Cooldowns {
			if until.After(now) {
				out = append(out, Cooldown{GuildID: strings.TrimPrefix(rk, globalKey), Key: k, Until: until})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Until.Equal(out[j].Until) {
			return out[i].Until.Before(out[j].Until)
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// ClearExpiredCooldowns drops every expired entry and returns how many were removed.
func (s *Storage) ClearExpiredCooldowns() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for _, rk := range s.ds.Keys() {
		record, err := s.getOrCreateGuildRecord(rk)
		if err != nil {
			return removed, fmt.Errorf("error fetching record for guild %s: %w", rk, err)
		}

		changed := false
		for key, until := range record.Cooldowns {
			if !until.After(now) {
				delete(record.Cooldowns, key)
				changed = true
				removed++
			}
		}
		if changed {
			if err := s.putRecord(rk, record); err != nil {
				return removed, err
			}
		}
	}
	if removed > 0 {
		log.Printf("[STORAGE] cleared %d expired cooldown(s)", removed)
	}
	return removed, nil
}
