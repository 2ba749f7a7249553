package mind

import (
	"sync"
	"time"
)

// LLMRateLimiter enforces global and per-guild limits on relevance-scoring calls.
type LLMRateLimiter struct {
	mu               sync.Mutex
	perMinute        []time.Time
	perHour          []time.Time
	maxPerMinute     int
	maxPerHour       int
	minGuildCooldown time.Duration
	lastByGuild      map[string]time.Time
}

// NewLLMLimiter returns a limiter; zero or negative limits disable that window.
func NewLLMLimiter(maxPerMinute, maxPerHour int, guildGap time.Duration) *LLMRateLimiter {
	return &LLMRateLimiter{
		maxPerMinute:     maxPerMinute,
		maxPerHour:       maxPerHour,
		minGuildCooldown: guildGap,
		lastByGuild:      make(map[string]time.Time),
	}
}

// DefaultLLMLimiter returns a limiter: 12/min, 120/hour, 5s per-guild gap.
func DefaultLLMLimiter() *LLMRateLimiter {
	return NewLLMLimiter(12, 120, 5*time.Second)
}

// Allow returns true if a call is allowed for this guild at now.
func (l *LLMRateLimiter) Allow(guildID string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allow(guildID, now)
}

// AllowAndRecord checks the budget and, when allowed, records the call under the same lock.
func (l *LLMRateLimiter) AllowAndRecord(guildID string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.allow(guildID, now) {
		return false
	}
	l.record(guildID, now)
	return true
}

func (l *LLMRateLimiter) allow(guildID string, now time.Time) bool {
	if last, ok := l.lastByGuild[guildID]; ok && now.Sub(last) < l.minGuildCooldown {
		return false
	}

	l.perMinute = trimBefore(l.perMinute, now.Add(-time.Minute))
	l.perHour = trimBefore(l.perHour, now.Add(-time.Hour))

	if l.maxPerMinute > 0 && len(l.perMinute) >= l.maxPerMinute {
		return false
	}
	if l.maxPerHour > 0 && len(l.perHour) >= l.maxPerHour {
		return false
	}
	return true
}

// Record records that a call was made for guildID at now.
func (l *LLMRateLimiter) Record(guildID string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record(guildID, now)
}

func (l *LLMRateLimiter) record(guildID string, now time.Time) {
	l.perMinute = append(l.perMinute, now)
	l.perHour = append(l.perHour, now)
	l.lastByGuild[guildID] = now
}

func trimBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}
