package chat

import (
	"context"
	"time"
)

// Platform is the subset of the chat platform the core drives.
type Platform interface {
	SendTyping(ctx context.Context, channelID string) error
	Send(ctx context.Context, channelID, content string) (SentMessage, error)
	Reply(ctx context.Context, channelID, replyToID, content string) (SentMessage, error)
	Edit(ctx context.Context, channelID, messageID, content string) error
	Delete(ctx context.Context, channelID, messageID string) error
	React(ctx context.Context, channelID, messageID, emoji string) error
	// RecentMessages returns up to limit messages, newest first.
	RecentMessages(ctx context.Context, channelID string, limit int) ([]ChatMessage, error)
}

// RelevanceScorer judges whether an un-addressed message is worth engaging.
type RelevanceScorer interface {
	ScoreRelevance(ctx context.Context, msg InboundMessage, recent []ChatMessage) (Relevance, error)
}

// Generator is the generative text service.
type Generator interface {
	RelevanceScorer
	GenerateReply(ctx context.Context, msg InboundMessage, recent []ChatMessage) (string, error)
}

// CooldownStore is the persisted rate-limit state.
type CooldownStore interface {
	CheckCooldown(scope CooldownScope, guildID, subjectID string) (bool, time.Duration, error)
	SetCooldown(scope CooldownScope, guildID, subjectID string, d time.Duration) error
}

// SettingsSource loads per-guild chat settings.
type SettingsSource interface {
	GetChatSettings(guildID string) (GuildSettings, error)
}
