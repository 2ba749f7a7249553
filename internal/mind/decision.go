package mind

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"domme-chat/internal/chat"
)

// DecisionConfig holds thresholds for Decide.
type DecisionConfig struct {
	DenyAuthorIDs      []string
	MinRelevance       float64 // scores below this never speak
	SaturateRelevance  float64 // scores at or above this always speak
	NeutralProbability float64 // used when the scorer fails
}

// DefaultDecisionConfig returns the production thresholds.
func DefaultDecisionConfig() DecisionConfig {
	return DecisionConfig{
		MinRelevance:       0.4,
		SaturateRelevance:  0.7,
		NeutralProbability: 0.5,
	}
}

// Decision is the outcome of one admission.
type Decision struct {
	ShouldRespond bool
	Weight        float64 // probability the draw was taken against, 0..1
	DirectAddress bool
	ReplyToBot    bool
	Reason        string
}

// Rand is the randomness Decide samples from. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Controller decides whether the bot engages with an inbound message.
type Controller struct {
	cfg       DecisionConfig
	scorer    chat.RelevanceScorer
	cooldowns chat.CooldownStore
	limiter   *LLMRateLimiter

	mu  sync.Mutex
	rng Rand
	now func() time.Time
}

// NewController wires a Controller. limiter may be nil to leave scoring unbudgeted.
func NewController(cfg DecisionConfig, scorer chat.RelevanceScorer, cooldowns chat.CooldownStore, limiter *LLMRateLimiter, rng Rand) *Controller {
	return &Controller{
		cfg:       cfg,
		scorer:    scorer,
		cooldowns: cooldowns,
		limiter:   limiter,
		rng:       rng,
		now:       time.Now,
	}
}

// Decide runs filters, direct-address detection, cooldown gating and relevance scoring,
// then samples the resulting probability. It always returns a decision.
func (c *Controller) Decide(ctx context.Context, msg chat.InboundMessage, settings chat.GuildSettings, id chat.BotIdentity, recent []chat.ChatMessage) Decision {
	if reason := c.filter(msg, settings, id); reason != "" {
		return Decision{Reason: reason}
	}

	d := Decision{
		DirectAddress: settings.AllowedMentions && IsDirectAddress(msg, id),
		ReplyToBot:    settings.AllowedReplies && msg.IsReplyToBot,
	}

	if d.DirectAddress || d.ReplyToBot {
		d.Weight = 1
		d.Reason = "addressed"
	} else {
		if reason := c.onCooldown(msg); reason != "" {
			d.Reason = reason
			return d
		}
		d.Weight, d.Reason = c.relevance(ctx, msg, recent)
	}

	draw := c.draw()
	d.ShouldRespond = draw < d.Weight
	log.Printf("[MIND] admission guild=%s channel=%s msg=%s p=%.2f draw=%.2f respond=%v reason=%s",
		msg.GuildID, msg.ChannelID, msg.ID, d.Weight, draw, d.ShouldRespond, d.Reason)
	return d
}

func (c *Controller) filter(msg chat.InboundMessage, settings chat.GuildSettings, id chat.BotIdentity) string {
	switch {
	case msg.AuthorIsBot || (id.ID != "" && msg.AuthorID == id.ID):
		return "bot author"
	case slices.Contains(c.cfg.DenyAuthorIDs, msg.AuthorID):
		return "denied author"
	case !ChannelAllowed(msg.ChannelID, settings):
		return "channel excluded"
	}
	return ""
}

// ChannelAllowed applies the whitelist/blacklist pair. A non-empty whitelist wins outright.
func ChannelAllowed(channelID string, settings chat.GuildSettings) bool {
	if len(settings.WhitelistedChannels) > 0 {
		return slices.Contains(settings.WhitelistedChannels, channelID)
	}
	return !slices.Contains(settings.BlacklistedChannels, channelID)
}

func (c *Controller) onCooldown(msg chat.InboundMessage) string {
	if c.cooldowns == nil {
		return ""
	}
	checks := []struct {
		scope chat.CooldownScope
		id    string
	}{
		{chat.ScopeUser, msg.AuthorID},
		{chat.ScopeChannel, msg.ChannelID},
	}
	for _, ch := range checks {
		on, left, err := c.cooldowns.CheckCooldown(ch.scope, msg.GuildID, ch.id)
		if err != nil {
			log.Printf("[MIND] cooldown check %s/%s failed: %v", ch.scope, ch.id, err)
			continue
		}
		if on {
			log.Printf("[MIND] %s %s on cooldown for %s", ch.scope, ch.id, left.Round(time.Second))
			return string(ch.scope) + " cooldown"
		}
	}
	return ""
}

func (c *Controller) relevance(ctx context.Context, msg chat.InboundMessage, recent []chat.ChatMessage) (float64, string) {
	if c.scorer == nil {
		return c.cfg.NeutralProbability, "no scorer"
	}
	if c.limiter != nil && !c.limiter.AllowAndRecord(msg.GuildID, c.now()) {
		return 0, "scoring budget exhausted"
	}
	rel, err := c.score(ctx, msg, recent)
	if err != nil {
		log.Printf("[MIND] relevance scoring failed, using neutral %.2f: %v", c.cfg.NeutralProbability, err)
		return c.cfg.NeutralProbability, "scorer failed"
	}
	return RelevanceProbability(c.cfg, rel), "relevance"
}

// score turns a scorer panic into an error so admission always completes.
func (c *Controller) score(ctx context.Context, msg chat.InboundMessage, recent []chat.ChatMessage) (rel chat.Relevance, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("scorer panic: %v", p)
		}
	}()
	return c.scorer.ScoreRelevance(ctx, msg, recent)
}

// RelevanceProbability folds a scorer verdict into a speaking probability.
func RelevanceProbability(cfg DecisionConfig, rel chat.Relevance) float64 {
	if !rel.Talking {
		return 0
	}
	p := clamp01(rel.Relevancy) * clamp01(rel.Confidence)
	if p < cfg.MinRelevance {
		return 0
	}
	if p >= cfg.SaturateRelevance {
		return 1
	}
	return p
}

func (c *Controller) draw() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Float64()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
