// Package delivery plays a parsed sequence against the chat platform with humanlike timing.
package delivery

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"
	"unicode/utf8"

	"domme-chat/internal/chat"
	"domme-chat/internal/sequence"
)

// Config tunes the engine's pacing.
type Config struct {
	TypingSpeed        float64 // characters per second
	MinTypingDelay     time.Duration
	MaxTypingDelay     time.Duration
	Jitter             float64 // fraction, 0.2 = ±20%
	LongPause          time.Duration
	DeleteDelayMin     time.Duration
	DeleteDelayMax     time.Duration
	EditDelayMin       time.Duration
	EditDelayMax       time.Duration
	CorrectionDelayMin time.Duration
	CorrectionDelayMax time.Duration
	TypoChance         float64
	ChunkLimit         int
	FallbackText       string
}

// DefaultConfig returns production pacing.
func DefaultConfig() Config {
	return Config{
		TypingSpeed:        15,
		MinTypingDelay:     time.Second,
		MaxTypingDelay:     6 * time.Second,
		Jitter:             0.2,
		LongPause:          1500 * time.Millisecond,
		DeleteDelayMin:     800 * time.Millisecond,
		DeleteDelayMax:     2200 * time.Millisecond,
		EditDelayMin:       1200 * time.Millisecond,
		EditDelayMax:       2000 * time.Millisecond,
		CorrectionDelayMin: 600 * time.Millisecond,
		CorrectionDelayMax: 1400 * time.Millisecond,
		TypoChance:         0.04,
		ChunkLimit:         sequence.DefaultChunkLimit,
		FallbackText:       "I have nothing to say to that.",
	}
}

// Request is one sequence to deliver in answer to Source.
type Request struct {
	Source    chat.InboundMessage
	Items     []sequence.Item
	BotID     string
	StartedAt time.Time // when the turn began; shortens the first typing delay
}

// Engine executes sequences. One Engine serves all channels; each Deliver call owns its Session.
type Engine struct {
	platform chat.Platform
	clock    Clock
	rng      Rand
	cfg      Config
}

// NewEngine creates an Engine. rng may be shared; access to it is serialized.
func NewEngine(platform chat.Platform, clock Clock, rng Rand, cfg Config) *Engine {
	if clock == nil {
		clock = RealClock{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		platform: platform,
		clock:    clock,
		rng:      &lockedRand{src: rng},
		cfg:      cfg,
	}
}

// Deliver runs items strictly in order. Individual platform failures are logged and skipped;
// a failed send only abandons the rest of its own text item. A sequence with no text and no
// reaction is replaced by the fallback reply.
func (e *Engine) Deliver(ctx context.Context, req Request) *Session {
	s := newSession(req.Source.ChannelID)

	if sequence.IsBlank(req.Items) {
		e.fallback(ctx, s, req)
		return s
	}

	steps, touched := plan(req.Items, e.cfg.ChunkLimit)
	log.Printf("[DELIVERY] session=%s channel=%s items=%d", s.ID, s.ChannelID, len(steps))

	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			log.Printf("[DELIVERY] session=%s stopped: %v", s.ID, err)
			break
		}
		s.visited = append(s.visited, st.item.String())

		switch op := st.item.(type) {
		case sequence.TextChunk:
			e.typeOut(ctx, s, req, st, touched)
		case sequence.PauseOp:
			e.sleep(ctx, e.cfg.LongPause)
		case sequence.DeleteOp:
			e.deleteLast(ctx, s, op.Count)
		case sequence.EditOp:
			e.editFromEnd(ctx, s, op)
		case sequence.ReactionOp:
			if err := e.platform.React(ctx, req.Source.ChannelID, req.Source.ID, op.Emoji); err != nil {
				log.Printf("[DELIVERY] session=%s reaction %s failed: %v", s.ID, op.Emoji, err)
			}
		}
	}

	log.Printf("[DELIVERY] session=%s done sent=%d standing=%d", s.ID, s.Sent(), s.Len())
	return s
}

func (e *Engine) typeOut(ctx context.Context, s *Session, req Request, st step, touched map[int]bool) {
	for i, part := range st.parts {
		content, correction := part, ""
		if !touched[st.first+i] && e.cfg.TypoChance > 0 && e.rng.Float64() < e.cfg.TypoChance {
			if typoed, fix, ok := injectTypo(part, e.rng); ok {
				content, correction = typoed, fix
			}
		}

		if err := e.platform.SendTyping(ctx, s.ChannelID); err != nil {
			log.Printf("[DELIVERY] session=%s typing indicator failed: %v", s.ID, err)
		}
		delay := TypingDelay(e.cfg, utf8.RuneCountInString(content), e.rng)
		if s.Sent() == 0 && !req.StartedAt.IsZero() {
			delay -= e.clock.Now().Sub(req.StartedAt)
		}
		e.sleep(ctx, delay)

		if err := e.post(ctx, s, req, content); err != nil {
			log.Printf("[DELIVERY] session=%s send failed, dropping %d remaining part(s): %v", s.ID, len(st.parts)-i-1, err)
			return
		}

		if correction != "" {
			e.sleep(ctx, between(e.rng, e.cfg.CorrectionDelayMin, e.cfg.CorrectionDelayMax))
			if err := e.post(ctx, s, req, correction); err != nil {
				log.Printf("[DELIVERY] session=%s typo correction failed: %v", s.ID, err)
			}
		}
	}
}

// post replies to the source for the first message, and afterwards whenever someone else
// spoke last in the channel; otherwise it posts plainly.
func (e *Engine) post(ctx context.Context, s *Session, req Request, content string) error {
	var (
		msg chat.SentMessage
		err error
	)
	if e.shouldReply(ctx, s, req) {
		msg, err = e.platform.Reply(ctx, s.ChannelID, req.Source.ID, content)
	} else {
		msg, err = e.platform.Send(ctx, s.ChannelID, content)
	}
	if err != nil {
		return err
	}
	if msg.ChannelID == "" {
		msg.ChannelID = s.ChannelID
	}
	if msg.Content == "" {
		msg.Content = content
	}
	s.push(msg)
	return nil
}

func (e *Engine) shouldReply(ctx context.Context, s *Session, req Request) bool {
	if s.Sent() == 0 {
		return true
	}
	recent, err := e.platform.RecentMessages(ctx, s.ChannelID, 1)
	if err != nil {
		log.Printf("[DELIVERY] session=%s interruption check failed: %v", s.ID, err)
		return false
	}
	if len(recent) == 0 {
		return false
	}
	return recent[0].AuthorID != req.BotID
}

func (e *Engine) deleteLast(ctx context.Context, s *Session, count int) {
	if count <= 0 || s.Len() == 0 {
		log.Printf("[DELIVERY] session=%s delete %d: nothing to delete", s.ID, count)
		return
	}
	e.sleep(ctx, between(e.rng, e.cfg.DeleteDelayMin, e.cfg.DeleteDelayMax))
	for _, m := range s.popLast(count) {
		err := e.platform.Delete(ctx, m.ChannelID, m.ID)
		if err != nil && !errors.Is(err, chat.ErrMessageNotFound) {
			log.Printf("[DELIVERY] session=%s delete %s failed: %v", s.ID, m.ID, err)
		}
	}
}

func (e *Engine) editFromEnd(ctx context.Context, s *Session, op sequence.EditOp) {
	i := s.Len() - op.FromEnd
	if i < 0 || i >= s.Len() {
		log.Printf("[DELIVERY] session=%s edit -%d out of range (len=%d)", s.ID, op.FromEnd, s.Len())
		return
	}
	e.sleep(ctx, between(e.rng, e.cfg.EditDelayMin, e.cfg.EditDelayMax))

	content := truncateRunes(op.NewContent, e.cfg.ChunkLimit)
	target := s.messages[i]
	if err := e.platform.Edit(ctx, target.ChannelID, target.ID, content); err != nil {
		log.Printf("[DELIVERY] session=%s edit %s failed: %v", s.ID, target.ID, err)
		return
	}
	s.messages[i].Content = content
}

func (e *Engine) fallback(ctx context.Context, s *Session, req Request) {
	msg, err := e.platform.Reply(ctx, s.ChannelID, req.Source.ID, e.cfg.FallbackText)
	if err != nil {
		log.Printf("[DELIVERY] session=%s fallback reply failed: %v", s.ID, err)
		return
	}
	if msg.Content == "" {
		msg.Content = e.cfg.FallbackText
	}
	s.push(msg)
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	_ = e.clock.Sleep(ctx, d)
}

// TypingDelay is how long typing n characters takes: n/speed clamped to
// [MinTypingDelay, MaxTypingDelay], then jittered by ±Jitter.
func TypingDelay(cfg Config, n int, r Rand) time.Duration {
	speed := cfg.TypingSpeed
	if speed <= 0 {
		speed = DefaultConfig().TypingSpeed
	}
	d := time.Duration(float64(n) * float64(time.Second) / speed)
	d = max(cfg.MinTypingDelay, min(cfg.MaxTypingDelay, d))
	if cfg.Jitter > 0 {
		d = time.Duration(float64(d) * (1 + cfg.Jitter*(2*r.Float64()-1)))
	}
	return d
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
