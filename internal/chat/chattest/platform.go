// Package chattest provides in-memory fakes of the chat collaborators for tests.
package chattest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"domme-chat/internal/chat"
)

// Call is one recorded platform operation.
type Call struct {
	Op      string // typing, send, reply, edit, delete, react, recent
	Channel string
	Target  string // replied/edited/deleted/reacted message id
	Content string
}

// Platform records every call and keeps a simple channel history.
type Platform struct {
	BotID string

	// FailPost makes the n-th post attempt (1-based, send or reply) fail.
	FailPost map[int]error
	// DeleteErr overrides every delete. Without it, deleting an id twice
	// returns chat.ErrMessageNotFound.
	DeleteErr error
	EditErr   error
	ReactErr  error
	RecentErr error
	// Interject, when set, is consulted on every history read with the number of posts
	// so far; a non-empty author id is appended to history as if that user just spoke.
	Interject func(posts int) string

	mu      sync.Mutex
	calls   []Call
	history []chat.ChatMessage
	posts   int
	nextID  int
	deleted map[string]bool
}

// NewPlatform returns a Platform whose own messages are authored by botID.
func NewPlatform(botID string) *Platform {
	return &Platform{BotID: botID, deleted: make(map[string]bool)}
}

// Calls returns recorded calls, optionally filtered to the given ops.
func (p *Platform) Calls(ops ...string) []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(ops) == 0 {
		return append([]Call(nil), p.calls...)
	}
	var out []Call
	for _, c := range p.calls {
		for _, op := range ops {
			if c.Op == op {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// AddHistory appends a message to the channel history.
func (p *Platform) AddHistory(m chat.ChatMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = append(p.history, m)
}

func (p *Platform) record(c Call) {
	p.calls = append(p.calls, c)
}

func (p *Platform) SendTyping(_ context.Context, channelID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(Call{Op: "typing", Channel: channelID})
	return nil
}

func (p *Platform) Send(_ context.Context, channelID, content string) (chat.SentMessage, error) {
	return p.post("send", channelID, "", content)
}

func (p *Platform) Reply(_ context.Context, channelID, replyToID, content string) (chat.SentMessage, error) {
	return p.post("reply", channelID, replyToID, content)
}

func (p *Platform) post(op, channelID, target, content string) (chat.SentMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts++
	p.record(Call{Op: op, Channel: channelID, Target: target, Content: content})
	if err := p.FailPost[p.posts]; err != nil {
		return chat.SentMessage{}, err
	}
	p.nextID++
	id := fmt.Sprintf("b%d", p.nextID)
	p.history = append(p.history, chat.ChatMessage{ID: id, AuthorID: p.BotID, AuthorBot: true, Content: content, Timestamp: time.Now()})
	return chat.SentMessage{ID: id, ChannelID: channelID, Content: content}, nil
}

func (p *Platform) Edit(_ context.Context, channelID, messageID, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(Call{Op: "edit", Channel: channelID, Target: messageID, Content: content})
	return p.EditErr
}

func (p *Platform) Delete(_ context.Context, channelID, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(Call{Op: "delete", Channel: channelID, Target: messageID})
	if p.DeleteErr != nil {
		return p.DeleteErr
	}
	if p.deleted[messageID] {
		return chat.ErrMessageNotFound
	}
	p.deleted[messageID] = true
	return nil
}

func (p *Platform) React(_ context.Context, channelID, messageID, emoji string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(Call{Op: "react", Channel: channelID, Target: messageID, Content: emoji})
	return p.ReactErr
}

func (p *Platform) RecentMessages(_ context.Context, channelID string, limit int) ([]chat.ChatMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(Call{Op: "recent", Channel: channelID})
	if p.Interject != nil {
		if author := p.Interject(p.posts); author != "" {
			p.history = append(p.history, chat.ChatMessage{ID: fmt.Sprintf("u%d", len(p.history)), AuthorID: author, Content: "..."})
		}
	}
	if p.RecentErr != nil {
		return nil, p.RecentErr
	}
	var out []chat.ChatMessage
	for i := len(p.history) - 1; i >= 0 && len(out) < limit; i-- {
		if p.deleted[p.history[i].ID] {
			continue
		}
		out = append(out, p.history[i])
	}
	return out, nil
}

// Clock advances only when slept on, and records every sleep.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewClock starts at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

// Advance moves the clock without recording a sleep.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Sleeps returns recorded sleeps.
func (c *Clock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}
