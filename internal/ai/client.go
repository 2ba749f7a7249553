package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"domme-chat/internal/chat"
)

const defaultIdentity = "You are a helpful character."

const directiveGuide = `You speak in a chat channel. Write your answer as plain chat text.
Separate messages with a blank line; each paragraph is sent as its own message.
You may add these commands, each alone on its own line, between messages:
::long_pause                 wait a moment before continuing
::delete_last_messages <N>   delete your last N messages
::edit_last_message <text>   replace your last message with <text>
::reaction <emoji>           react to the message you are answering
Use them rarely. Never explain them.`

const relevancePrompt = `You watch a group chat for a participant named %s.
Given the recent conversation and the newest message, judge whether %s would naturally join in.
Answer with JSON only: {"talking": true|false, "relevancy": 0..1, "confidence": 0..1}
"talking" means people are actively conversing; "relevancy" is how much the newest message invites %s; "confidence" is how sure you are.`

// Client turns chat context into model prompts. It implements chat.Generator.
type Client struct {
	provider Provider

	// IdentityPath is the character prompt. A file named <guildID>_chat.prompt.md
	// in GuildPromptDir overrides it for that guild.
	IdentityPath   string
	GuildPromptDir string

	mu      sync.RWMutex
	botName string // how the scoring prompt refers to the bot
}

func NewClient(p Provider, identityPath, guildPromptDir string) *Client {
	return &Client{provider: p, IdentityPath: identityPath, GuildPromptDir: guildPromptDir, botName: "the bot"}
}

// SetIdentity names the bot in prompts after its platform identity.
// Configured aliases win over the account's display name.
func (c *Client) SetIdentity(id chat.BotIdentity) {
	name := ""
	for _, n := range append(slices.Clone(id.Aliases), id.DisplayName, id.GlobalName, id.Username) {
		if n = strings.TrimSpace(n); n != "" {
			name = n
			break
		}
	}
	if name == "" {
		return
	}
	c.mu.Lock()
	c.botName = name
	c.mu.Unlock()
}

// BotName returns how prompts refer to the bot.
func (c *Client) BotName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.botName
}

func (c *Client) ScoreRelevance(ctx context.Context, msg chat.InboundMessage, recent []chat.ChatMessage) (chat.Relevance, error) {
	name := c.BotName()
	messages := []Message{
		{Role: "system", Content: fmt.Sprintf(relevancePrompt, name, name, name)},
		{Role: "user", Content: transcript(msg, recent) + "\n\nJSON:"},
	}
	LogLLMCall("relevance", messages, map[string]string{"guild": msg.GuildID, "channel": msg.ChannelID})

	raw, err := c.provider.Generate(ctx, messages)
	if err != nil {
		return chat.Relevance{}, err
	}
	return parseRelevance(raw)
}

func (c *Client) GenerateReply(ctx context.Context, msg chat.InboundMessage, recent []chat.ChatMessage) (string, error) {
	messages := []Message{
		{Role: "system", Content: c.identity(msg.GuildID) + "\n\n" + directiveGuide},
		{Role: "user", Content: transcript(msg, recent)},
	}
	LogLLMCall("reply", messages, map[string]string{"guild": msg.GuildID, "channel": msg.ChannelID, "author": msg.AuthorName})

	reply, err := c.provider.Generate(ctx, messages)
	if err != nil {
		return "", err
	}
	return cleanReply(reply), nil
}

func (c *Client) identity(guildID string) string {
	var paths []string
	if c.GuildPromptDir != "" && guildID != "" {
		paths = append(paths, filepath.Join(c.GuildPromptDir, guildID+"_chat.prompt.md"))
	}
	if c.IdentityPath != "" {
		paths = append(paths, c.IdentityPath)
	}
	for _, p := range paths {
		body, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if s := strings.TrimSpace(string(body)); s != "" {
			return s
		}
	}
	return defaultIdentity
}

// transcript renders history oldest first, then the message being answered.
func transcript(msg chat.InboundMessage, recent []chat.ChatMessage) string {
	var b strings.Builder
	if len(recent) > 0 {
		b.WriteString("Recent conversation:\n")
		for i := len(recent) - 1; i >= 0; i-- {
			m := recent[i]
			if m.ID == msg.ID {
				continue
			}
			name := m.AuthorName
			if m.AuthorBot {
				name += " (bot)"
			}
			fmt.Fprintf(&b, "%s: %s\n", name, strings.TrimSpace(m.Content))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Newest message from %s: %s", msg.AuthorName, strings.TrimSpace(msg.Content))
	return b.String()
}

func parseRelevance(raw string) (chat.Relevance, error) {
	obj, ok := firstJSONObject(raw)
	if !ok {
		return chat.Relevance{}, fmt.Errorf("no JSON object in relevance answer: %q", truncate([]byte(raw)))
	}
	var r chat.Relevance
	if err := json.Unmarshal([]byte(obj), &r); err != nil {
		return chat.Relevance{}, fmt.Errorf("decode relevance: %w", err)
	}
	r.Relevancy = clamp01(r.Relevancy)
	r.Confidence = clamp01(r.Confidence)
	return r, nil
}

func clamp01(f float64) float64 {
	return max(0, min(1, f))
}
