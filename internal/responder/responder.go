// Package responder runs one conversational turn: admission, generation and delivery.
package responder

import (
	"context"
	"log"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"domme-chat/internal/chat"
	"domme-chat/internal/delivery"
	"domme-chat/internal/guard"
	"domme-chat/internal/mind"
	"domme-chat/internal/sequence"
)

// Config tunes the turn around generation.
type Config struct {
	HistoryLimit   int
	ApologyText    string
	TypingInterval time.Duration // typing indicator refresh while generating
}

func DefaultConfig() Config {
	return Config{
		HistoryLimit:   20,
		ApologyText:    "Something broke on my side. Try me again in a bit.",
		TypingInterval: 8 * time.Second,
	}
}

// Deps are the collaborators of a Responder.
type Deps struct {
	Platform  chat.Platform
	Settings  chat.SettingsSource
	Cooldowns chat.CooldownStore
	Generator chat.Generator
	Decider   *mind.Controller
	Engine    *delivery.Engine
	Guard     *guard.Guard
	Clock     delivery.Clock // nil means wall clock
}

type Responder struct {
	deps Deps
	cfg  Config

	mu       sync.RWMutex
	identity chat.BotIdentity
}

func New(deps Deps, cfg Config) *Responder {
	if deps.Clock == nil {
		deps.Clock = delivery.RealClock{}
	}
	if deps.Guard == nil {
		deps.Guard = guard.New()
	}
	return &Responder{deps: deps, cfg: cfg}
}

// identitySetter is implemented by generators that name the bot in their prompts.
type identitySetter interface {
	SetIdentity(id chat.BotIdentity)
}

// SetIdentity updates how the bot is known. Called once the platform session is ready.
func (r *Responder) SetIdentity(id chat.BotIdentity) {
	r.mu.Lock()
	r.identity = id
	r.mu.Unlock()
	if g, ok := r.deps.Generator.(identitySetter); ok {
		g.SetIdentity(id)
	}
}

func (r *Responder) Identity() chat.BotIdentity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.identity
}

// HandleMessage is the entry point for every inbound message. It never returns
// an error; failures are logged and, once the bot has committed to answer,
// turned into an apology.
func (r *Responder) HandleMessage(ctx context.Context, msg chat.InboundMessage) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("[ERR] panic while admitting %s in %s: %v\n%s", msg.ID, msg.ChannelID, p, debug.Stack())
		}
	}()

	settings, err := r.deps.Settings.GetChatSettings(msg.GuildID)
	if err != nil {
		log.Printf("[CHAT] settings for guild %s unavailable, using defaults: %v", msg.GuildID, err)
		settings = chat.DefaultGuildSettings()
	}

	if r.deps.Guard.ChannelBusy(msg.ChannelID) {
		log.Printf("[CHAT] channel %s busy, dropping message %s", msg.ChannelID, msg.ID)
		return
	}

	recent, err := r.deps.Platform.RecentMessages(ctx, msg.ChannelID, r.cfg.HistoryLimit)
	if err != nil {
		log.Printf("[CHAT] history for channel %s unavailable: %v", msg.ChannelID, err)
		recent = nil
	}

	id := r.Identity()
	decision := r.deps.Decider.Decide(ctx, msg, settings, id, recent)
	if !decision.ShouldRespond {
		return
	}

	release, ok := r.deps.Guard.Acquire(guard.MessageKey(msg.ID, msg.AuthorID), msg.ChannelID)
	if !ok {
		log.Printf("[CHAT] channel %s taken while deciding, dropping message %s", msg.ChannelID, msg.ID)
		return
	}
	defer release()
	defer func() {
		if p := recover(); p != nil {
			log.Printf("[ERR] panic while answering %s in %s: %v\n%s", msg.ID, msg.ChannelID, p, debug.Stack())
			r.apologize(ctx, msg)
		}
	}()

	r.respond(ctx, msg, settings, recent, id)
}

func (r *Responder) respond(ctx context.Context, msg chat.InboundMessage, settings chat.GuildSettings, recent []chat.ChatMessage, id chat.BotIdentity) {
	started := r.deps.Clock.Now()
	log.Printf("[CHAT] %s (%s) @ %s: %s", msg.AuthorName, msg.AuthorID, msg.ChannelID, truncateLog(msg.Content, 120))

	stop := r.keepTyping(ctx, msg.ChannelID)
	defer stop()
	reply, err := r.deps.Generator.GenerateReply(ctx, msg, recent)
	stop()

	if err != nil {
		log.Printf("[ERR] AI request failed for %s: %v", msg.ID, err)
		r.apologize(ctx, msg)
		return
	}
	if strings.TrimSpace(reply) == "" {
		log.Printf("[ERR] AI returned an empty reply for %s", msg.ID)
		r.apologize(ctx, msg)
		return
	}
	log.Printf("[CHAT] reply to %s @ %s: %s", msg.AuthorName, msg.ChannelID, truncateLog(reply, 120))

	r.deps.Engine.Deliver(ctx, delivery.Request{
		Source:    msg,
		Items:     sequence.Parse(reply),
		BotID:     id.ID,
		StartedAt: started,
	})

	r.startCooldowns(msg, settings)
}

func (r *Responder) startCooldowns(msg chat.InboundMessage, settings chat.GuildSettings) {
	d := settings.Cooldown()
	if d <= 0 || r.deps.Cooldowns == nil {
		return
	}
	if err := r.deps.Cooldowns.SetCooldown(chat.ScopeUser, msg.GuildID, msg.AuthorID, d); err != nil {
		log.Printf("[ERR] set user cooldown: %v", err)
	}
	if err := r.deps.Cooldowns.SetCooldown(chat.ScopeChannel, msg.GuildID, msg.ChannelID, d); err != nil {
		log.Printf("[ERR] set channel cooldown: %v", err)
	}
}

// apologize is best effort; its own failure is only logged.
func (r *Responder) apologize(ctx context.Context, msg chat.InboundMessage) {
	if r.cfg.ApologyText == "" {
		return
	}
	if _, err := r.deps.Platform.Reply(ctx, msg.ChannelID, msg.ID, r.cfg.ApologyText); err != nil {
		log.Printf("[WARN] apology to %s failed: %v", msg.ID, err)
	}
}

// keepTyping shows the typing indicator now and refreshes it until stop is called.
func (r *Responder) keepTyping(ctx context.Context, channelID string) (stop func()) {
	_ = r.deps.Platform.SendTyping(ctx, channelID)
	if r.cfg.TypingInterval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(r.cfg.TypingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = r.deps.Platform.SendTyping(ctx, channelID)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

func truncateLog(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
