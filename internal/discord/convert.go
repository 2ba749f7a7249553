package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"domme-chat/internal/chat"
)

func toInbound(m *discordgo.Message, botID string) chat.InboundMessage {
	in := chat.InboundMessage{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Content:   strings.TrimSpace(m.Content),
		Timestamp: m.Timestamp,
	}
	if m.Author != nil {
		in.AuthorID = m.Author.ID
		in.AuthorIsBot = m.Author.Bot
		in.AuthorName = authorName(m)
	}
	for _, u := range m.Mentions {
		if u != nil {
			in.MentionedIDs = append(in.MentionedIDs, u.ID)
		}
	}
	if ref := m.ReferencedMessage; ref != nil && ref.Author != nil && botID != "" {
		in.IsReplyToBot = ref.Author.ID == botID
	}
	return in
}

func toChatMessage(m *discordgo.Message) chat.ChatMessage {
	cm := chat.ChatMessage{ID: m.ID, Content: m.Content, Timestamp: m.Timestamp}
	if m.Author != nil {
		cm.AuthorID = m.Author.ID
		cm.AuthorBot = m.Author.Bot
		cm.AuthorName = authorName(m)
	}
	return cm
}

func toSent(m *discordgo.Message) chat.SentMessage {
	if m == nil {
		return chat.SentMessage{}
	}
	return chat.SentMessage{ID: m.ID, ChannelID: m.ChannelID, Content: m.Content}
}

// authorName prefers the guild nickname, then the global display name.
func authorName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	return m.Author.DisplayName()
}

func toIdentity(u *discordgo.User, aliases []string) chat.BotIdentity {
	return chat.BotIdentity{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName(),
		GlobalName:  u.GlobalName,
		Aliases:     aliases,
	}
}
