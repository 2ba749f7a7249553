// Package chat holds the platform-neutral types shared by admission, delivery and the responder.
package chat

import (
	"errors"
	"time"
)

// ErrMessageNotFound is returned by a Platform when the target message no longer exists.
var ErrMessageNotFound = errors.New("message not found")

// InboundMessage is an immutable snapshot of a message received from the platform.
type InboundMessage struct {
	ID           string
	AuthorID     string
	AuthorName   string
	AuthorIsBot  bool
	ChannelID    string
	GuildID      string
	Content      string
	MentionedIDs []string
	IsReplyToBot bool
	Timestamp    time.Time
}

// ChatMessage is a message read back from channel history.
type ChatMessage struct {
	ID         string
	AuthorID   string
	AuthorName string
	AuthorBot  bool
	Content    string
	Timestamp  time.Time
}

// SentMessage is a handle to a message the bot posted.
type SentMessage struct {
	ID        string
	ChannelID string
	Content   string
}

// BotIdentity is how the bot is known in a guild.
type BotIdentity struct {
	ID          string
	Username    string
	DisplayName string
	GlobalName  string
	Aliases     []string
}

// GuildSettings is the per-guild chat configuration.
type GuildSettings struct {
	AllowedMentions     bool     `json:"allowed_mentions"`
	AllowedReplies      bool     `json:"allowed_replies"`
	CooldownSeconds     int      `json:"cooldown_seconds"`
	WhitelistedChannels []string `json:"whitelisted_channels"`
	BlacklistedChannels []string `json:"blacklisted_channels"`
}

// DefaultGuildSettings is used for guilds that never configured chat.
func DefaultGuildSettings() GuildSettings {
	return GuildSettings{
		AllowedMentions: true,
		AllowedReplies:  true,
		CooldownSeconds: 30,
	}
}

// Cooldown returns the cooldown as a duration.
func (g GuildSettings) Cooldown() time.Duration {
	if g.CooldownSeconds <= 0 {
		return 0
	}
	return time.Duration(g.CooldownSeconds) * time.Second
}

// Relevance is the scorer's judgement of an un-addressed message.
type Relevance struct {
	Talking    bool    `json:"talking"`
	Relevancy  float64 `json:"relevancy"`
	Confidence float64 `json:"confidence"`
}

// CooldownScope namespaces cooldown keys.
type CooldownScope string

const (
	ScopeUser    CooldownScope = "user"
	ScopeChannel CooldownScope = "channel"
	ScopeGuild   CooldownScope = "guild"
	ScopeGlobal  CooldownScope = "global"
)

// Valid reports whether s is a known scope.
func (s CooldownScope) Valid() bool {
	switch s {
	case ScopeUser, ScopeChannel, ScopeGuild, ScopeGlobal:
		return true
	}
	return false
}
