package delivery

import (
	"domme-chat/internal/chat"

	"github.com/google/uuid"
)

// Session is the record of messages posted while delivering one sequence.
// It belongs to a single Deliver call and is not safe for concurrent use.
type Session struct {
	ID        string
	ChannelID string

	messages []chat.SentMessage
	sent     int // total posts, including ones later deleted
	visited  []string
}

func newSession(channelID string) *Session {
	return &Session{ID: uuid.NewString(), ChannelID: channelID}
}

// Messages returns the messages still standing, oldest first.
func (s *Session) Messages() []chat.SentMessage {
	out := make([]chat.SentMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len is the number of messages still standing.
func (s *Session) Len() int { return len(s.messages) }

// Sent is how many messages were posted in total.
func (s *Session) Sent() int { return s.sent }

// Visited lists the items executed, in order.
func (s *Session) Visited() []string { return s.visited }

func (s *Session) push(m chat.SentMessage) {
	s.messages = append(s.messages, m)
	s.sent++
}

// popLast removes and returns up to n newest messages, newest first.
func (s *Session) popLast(n int) []chat.SentMessage {
	n = min(max(n, 0), len(s.messages))
	tail := s.messages[len(s.messages)-n:]
	out := make([]chat.SentMessage, 0, n)
	for i := len(tail) - 1; i >= 0; i-- {
		out = append(out, tail[i])
	}
	s.messages = s.messages[:len(s.messages)-n]
	return out
}
