// Package guard keeps two deliveries from overlapping on the same message or channel.
package guard

import (
	"log"
	"sync"
)

// Guard is a registry of in-flight message keys and channel ids. Safe for concurrent use.
type Guard struct {
	mu       sync.Mutex
	messages map[string]struct{}
	channels map[string]struct{}
}

// New creates an empty Guard.
func New() *Guard {
	return &Guard{
		messages: make(map[string]struct{}),
		channels: make(map[string]struct{}),
	}
}

// MessageKey builds the composite key for one inbound event.
func MessageKey(messageID, authorID string) string {
	return messageID + ":" + authorID
}

// Acquire claims both keys or neither. On success the returned release func frees them;
// it is safe to call more than once and should be deferred right away.
func (g *Guard) Acquire(messageKey, channelID string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.messages[messageKey]; held {
		return func() {}, false
	}
	if _, held := g.channels[channelID]; held {
		return func() {}, false
	}
	g.messages[messageKey] = struct{}{}
	g.channels[channelID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.messages, messageKey)
			delete(g.channels, channelID)
			g.mu.Unlock()
		})
	}, true
}

// ChannelBusy reports whether a delivery is in flight in channelID.
func (g *Guard) ChannelBusy(channelID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, held := g.channels[channelID]
	return held
}

// MessageBusy reports whether messageKey is being processed.
func (g *Guard) MessageBusy(messageKey string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, held := g.messages[messageKey]
	return held
}

// Active returns the number of channels with a delivery in flight.
func (g *Guard) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.channels) != len(g.messages) {
		log.Printf("[GUARD] set sizes diverged: channels=%d messages=%d", len(g.channels), len(g.messages))
	}
	return len(g.channels)
}
