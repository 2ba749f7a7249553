package storage

import "domme-chat/internal/chat"

// ChatSettings is the stored form of chat.GuildSettings.
type ChatSettings = chat.GuildSettings

// GetChatSettings returns the guild's settings, or the defaults when none were saved.
func (s *Storage) GetChatSettings(guildID string) (chat.GuildSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(recordKey(guildID))
	if err != nil {
		return chat.DefaultGuildSettings(), err
	}
	if record.Chat == nil {
		return chat.DefaultGuildSettings(), nil
	}
	return *record.Chat, nil
}

func (s *Storage) SetChatSettings(guildID string, settings chat.GuildSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rk := recordKey(guildID)
	record, err := s.getOrCreateGuildRecord(rk)
	if err != nil {
		return err
	}
	record.Chat = &settings
	return s.putRecord(rk, record)
}

// ResetChatSettings forgets the guild's settings so defaults apply again.
func (s *Storage) ResetChatSettings(guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rk := recordKey(guildID)
	record, err := s.getOrCreateGuildRecord(rk)
	if err != nil {
		return err
	}
	if record.Chat == nil {
		return nil
	}
	record.Chat = nil
	return s.putRecord(rk, record)
}
