package delivery

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"time"

	"domme-chat/internal/chat"
	"domme-chat/internal/chat/chattest"
	"domme-chat/internal/sequence"
)

var source = chat.InboundMessage{ID: "src", AuthorID: "u1", ChannelID: "c1", GuildID: "g1", Content: "hey"}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TypoChance = 0
	cfg.Jitter = 0
	return cfg
}

func newTestEngine(cfg Config) (*Engine, *chattest.Platform, *chattest.Clock) {
	p := chattest.NewPlatform("bot")
	clock := chattest.NewClock()
	return NewEngine(p, clock, rand.New(rand.NewSource(1)), cfg), p, clock
}

func deliver(e *Engine, blob string) *Session {
	return e.Deliver(context.Background(), Request{Source: source, Items: sequence.Parse(blob), BotID: "bot"})
}

func posts(p *chattest.Platform) []chattest.Call {
	return p.Calls("send", "reply")
}

func TestDeliverParagraphsReplyThenPost(t *testing.T) {
	e, p, _ := newTestEngine(testConfig())
	s := deliver(e, "hello\n\nworld")

	want := []chattest.Call{
		{Op: "reply", Channel: "c1", Target: "src", Content: "hello"},
		{Op: "send", Channel: "c1", Content: "world"},
	}
	if got := posts(p); !reflect.DeepEqual(got, want) {
		t.Fatalf("posts = %+v, want %+v", got, want)
	}
	if n := len(p.Calls("typing")); n != 2 {
		t.Fatalf("typing indicators = %d, want 2", n)
	}
	if s.Len() != 2 || s.Sent() != 2 {
		t.Fatalf("session len=%d sent=%d", s.Len(), s.Sent())
	}
}

func TestDeliverTextThenReaction(t *testing.T) {
	e, p, _ := newTestEngine(testConfig())
	deliver(e, "hi there\n::reaction 👍")

	calls := p.Calls("send", "reply", "react")
	want := []chattest.Call{
		{Op: "reply", Channel: "c1", Target: "src", Content: "hi there"},
		{Op: "react", Channel: "c1", Target: "src", Content: "👍"},
	}
	if !reflect.DeepEqual(calls, want) {
		t.Fatalf("calls = %+v, want %+v", calls, want)
	}
}

func TestDeliverDeleteBoth(t *testing.T) {
	e, p, _ := newTestEngine(testConfig())
	s := deliver(e, "a\nb\n::delete_last_messages 2")

	if got := posts(p); len(got) != 2 || got[0].Content != "a" || got[1].Content != "b" {
		t.Fatalf("posts = %+v", got)
	}
	dels := p.Calls("delete")
	if len(dels) != 2 || dels[0].Target != "b2" || dels[1].Target != "b1" {
		t.Fatalf("deletes = %+v", dels)
	}
	if s.Len() != 0 {
		t.Fatalf("session len = %d, want 0", s.Len())
	}
}

func TestDeliverEmptyBlobSendsFallbackOnly(t *testing.T) {
	for _, blob := range []string{"", "   \n\t\n"} {
		e, p, clock := newTestEngine(testConfig())
		s := deliver(e, blob)

		want := []chattest.Call{{Op: "reply", Channel: "c1", Target: "src", Content: DefaultConfig().FallbackText}}
		if got := p.Calls(); !reflect.DeepEqual(got, want) {
			t.Fatalf("blob %q: calls = %+v, want %+v", blob, got, want)
		}
		if len(clock.Sleeps()) != 0 {
			t.Fatalf("fallback should not wait, slept %v", clock.Sleeps())
		}
		if s.Len() != 1 {
			t.Fatalf("session len = %d", s.Len())
		}
	}
}

func TestDeliverDeleteClamps(t *testing.T) {
	e, p, _ := newTestEngine(testConfig())
	s := deliver(e, "only\n::delete_last_messages 5")
	if n := len(p.Calls("delete")); n != 1 {
		t.Fatalf("deletes = %d, want 1", n)
	}
	if s.Len() != 0 {
		t.Fatalf("session len = %d", s.Len())
	}
}

func TestDeliverDeleteToleratesMissingMessages(t *testing.T) {
	e, p, _ := newTestEngine(testConfig())
	p.DeleteErr = chat.ErrMessageNotFound
	s := deliver(e, "a\nb\n::delete_last_messages 2\n::reaction ✅")
	if n := len(p.Calls("delete")); n != 2 {
		t.Fatalf("deletes = %d, want 2", n)
	}
	if s.Len() != 0 {
		t.Fatalf("handles must be dropped even when already gone, len=%d", s.Len())
	}
	if n := len(p.Calls("react")); n != 1 {
		t.Fatal("sequence should continue after delete")
	}
}

func TestDeliverEditOutOfRangeIsNoop(t *testing.T) {
	e, p, clock := newTestEngine(testConfig())
	deliver(e, "::edit_last_message nope\n::reaction 👀")
	if n := len(p.Calls("edit")); n != 0 {
		t.Fatalf("edit calls = %d, want 0", n)
	}
	if len(clock.Sleeps()) != 0 {
		t.Fatalf("out-of-range edit should not wait, slept %v", clock.Sleeps())
	}
}

func TestDeliverEditLast(t *testing.T) {
	e, p, _ := newTestEngine(testConfig())
	s := deliver(e, "a\nb\n::edit_last_message B!")
	edits := p.Calls("edit")
	if len(edits) != 1 || edits[0].Target != "b2" || edits[0].Content != "B!" {
		t.Fatalf("edits = %+v", edits)
	}
	msgs := s.Messages()
	if msgs[0].Content != "a" || msgs[1].Content != "B!" {
		t.Fatalf("session = %+v", msgs)
	}
}

func TestDeliverEditFailureKeepsContent(t *testing.T) {
	e, p, _ := newTestEngine(testConfig())
	p.EditErr = errors.New("forbidden")
	s := deliver(e, "a\n::edit_last_message b")
	if got := s.Messages()[0].Content; got != "a" {
		t.Fatalf("content = %q, want unchanged", got)
	}
}

func TestDeliverInterruptionReplies(t *testing.T) {
	e, p, _ := newTestEngine(testConfig())
	p.Interject = func(posts int) string {
		if posts == 1 {
			return "someone"
		}
		return ""
	}
	deliver(e, "one\n\ntwo\n\nthree")
	got := posts(p)
	ops := []string{got[0].Op, got[1].Op, got[2].Op}
	if !reflect.DeepEqual(ops, []string{"reply", "reply", "send"}) {
		t.Fatalf("ops = %v", ops)
	}
}

func TestDeliverSendFailureAbortsOnlyItsText(t *testing.T) {
	e, p, _ := newTestEngine(testConfig())
	p.FailPost = map[int]error{2: errors.New("500")}
	s := deliver(e, "a\nb\nc\n::reaction 👍\n::long_pause\nd")

	var contents []string
	for _, c := range posts(p) {
		contents = append(contents, c.Content)
	}
	if !reflect.DeepEqual(contents, []string{"a", "b", "d"}) {
		t.Fatalf("post attempts = %v", contents)
	}
	if n := len(p.Calls("react")); n != 1 {
		t.Fatalf("reaction after failed text should still run")
	}
	if s.Len() != 2 {
		t.Fatalf("session len = %d, want 2", s.Len())
	}
}

func TestDeliverReactionFailureSwallowed(t *testing.T) {
	e, p, _ := newTestEngine(testConfig())
	p.ReactErr = errors.New("unknown emoji")
	deliver(e, "::reaction nope\nstill here")
	if got := posts(p); len(got) != 1 || got[0].Content != "still here" {
		t.Fatalf("posts = %+v", got)
	}
}

func TestDeliverVisitsInOrder(t *testing.T) {
	e, _, _ := newTestEngine(testConfig())
	blob := "x\n::long_pause\ny\n::edit_last_message z\n::reaction 🙂\n::delete_last_messages 1"
	items := sequence.Parse(blob)
	s := e.Deliver(context.Background(), Request{Source: source, Items: items, BotID: "bot"})

	var want []string
	for _, it := range items {
		want = append(want, it.String())
	}
	if !reflect.DeepEqual(s.Visited(), want) {
		t.Fatalf("visited = %v, want %v", s.Visited(), want)
	}
}

func TestDeliverPause(t *testing.T) {
	e, p, clock := newTestEngine(testConfig())
	deliver(e, "::reaction 👍\n::long_pause")
	if got := clock.Sleeps(); !reflect.DeepEqual(got, []time.Duration{1500 * time.Millisecond}) {
		t.Fatalf("sleeps = %v", got)
	}
	if got := p.Calls(); len(got) != 1 || got[0].Op != "react" {
		t.Fatalf("pause should not touch the platform: %+v", got)
	}
}

func TestDeliverInvisibleSequenceSendsFallback(t *testing.T) {
	for _, blob := range []string{"::long_pause", "::delete_last_messages 2\n::edit_last_message x"} {
		e, p, clock := newTestEngine(testConfig())
		deliver(e, blob)

		want := []chattest.Call{{Op: "reply", Channel: "c1", Target: "src", Content: DefaultConfig().FallbackText}}
		if got := p.Calls(); !reflect.DeepEqual(got, want) {
			t.Fatalf("blob %q: calls = %+v, want %+v", blob, got, want)
		}
		if len(clock.Sleeps()) != 0 {
			t.Fatalf("blob %q: slept %v", blob, clock.Sleeps())
		}
	}
}

func TestDeliverFirstDelayCountsElapsed(t *testing.T) {
	e, _, clock := newTestEngine(testConfig())
	started := clock.Now()
	clock.Advance(1500 * time.Millisecond)

	thirty := strings.Repeat("a", 30)
	e.Deliver(context.Background(), Request{
		Source:    source,
		Items:     sequence.Parse(thirty + "\n\n" + thirty),
		BotID:     "bot",
		StartedAt: started,
	})
	want := []time.Duration{500 * time.Millisecond, 2 * time.Second}
	if got := clock.Sleeps(); !reflect.DeepEqual(got, want) {
		t.Fatalf("sleeps = %v, want %v", got, want)
	}
}

func TestDeliverFirstDelayFullyElapsed(t *testing.T) {
	e, _, clock := newTestEngine(testConfig())
	started := clock.Now()
	clock.Advance(10 * time.Second)
	e.Deliver(context.Background(), Request{Source: source, Items: sequence.Parse("hi"), BotID: "bot", StartedAt: started})
	if got := clock.Sleeps(); len(got) != 0 {
		t.Fatalf("no wait expected, got %v", got)
	}
}

func TestDeliverTypoSkipsTargetedMessages(t *testing.T) {
	cfg := testConfig()
	cfg.TypoChance = 1
	e, p, _ := newTestEngine(cfg)
	deliver(e, "hello there\n\nanother line\n::delete_last_messages 1")

	got := posts(p)
	if len(got) != 3 {
		t.Fatalf("posts = %+v, want typo, correction, clean line", got)
	}
	if got[0].Content == "hello there" {
		t.Fatalf("first message should carry a typo: %q", got[0].Content)
	}
	if got[1].Content != "*hello" && got[1].Content != "*there" {
		t.Fatalf("correction = %q", got[1].Content)
	}
	if got[2].Content != "another line" {
		t.Fatalf("targeted message must be typo free, got %q", got[2].Content)
	}
	dels := p.Calls("delete")
	if len(dels) != 1 || dels[0].Target != "b3" {
		t.Fatalf("deletes = %+v", dels)
	}
}

func TestDeliverStopsOnCancelledContext(t *testing.T) {
	e, p, _ := newTestEngine(testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e.Deliver(ctx, Request{Source: source, Items: sequence.Parse("a\n::reaction 👍"), BotID: "bot"})
	if n := len(p.Calls()); n != 0 {
		t.Fatalf("cancelled delivery made %d calls", n)
	}
}

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }
func (f fixedRand) Intn(n int) int    { return 0 }

func TestTypingDelay(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		n    int
		r    float64
		want time.Duration
	}{
		{1, 0.5, time.Second},
		{30, 0.5, 2 * time.Second},
		{1000, 0.5, 6 * time.Second},
		{30, 0, 1600 * time.Millisecond},
		{30, 1, 2400 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := TypingDelay(cfg, tt.n, fixedRand(tt.r)); got != tt.want {
			t.Errorf("TypingDelay(%d, r=%v) = %v, want %v", tt.n, tt.r, got, tt.want)
		}
	}
}
