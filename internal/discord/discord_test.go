package discord

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"domme-chat/internal/chat"
	"domme-chat/pkg/retrylimit"
)

func TestToInbound(t *testing.T) {
	ts := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	m := &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		GuildID:   "g1",
		Content:   "  hey you  ",
		Timestamp: ts,
		Author:    &discordgo.User{ID: "u1", Username: "ann", GlobalName: "Ann"},
		Member:    &discordgo.Member{Nick: "annie"},
		Mentions:  []*discordgo.User{{ID: "bot"}, nil, {ID: "u2"}},
		ReferencedMessage: &discordgo.Message{
			Author: &discordgo.User{ID: "bot"},
		},
	}

	got := toInbound(m, "bot")
	want := chat.InboundMessage{
		ID: "m1", AuthorID: "u1", AuthorName: "annie", ChannelID: "c1", GuildID: "g1",
		Content: "hey you", MentionedIDs: []string{"bot", "u2"}, IsReplyToBot: true, Timestamp: ts,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("toInbound() = %+v\nwant %+v", got, want)
	}
}

func TestToInboundReplyToSomeoneElse(t *testing.T) {
	m := &discordgo.Message{
		ID:                "m1",
		Author:            &discordgo.User{ID: "u1", Username: "ann", Bot: true},
		ReferencedMessage: &discordgo.Message{Author: &discordgo.User{ID: "u2"}},
	}
	got := toInbound(m, "bot")
	if got.IsReplyToBot {
		t.Fatal("reply to another user flagged as reply to bot")
	}
	if !got.AuthorIsBot || got.AuthorName != "ann" {
		t.Fatalf("author = %q bot=%v", got.AuthorName, got.AuthorIsBot)
	}
}

func TestToChatMessage(t *testing.T) {
	m := &discordgo.Message{ID: "m2", Content: "raw ", Author: &discordgo.User{ID: "u3", Username: "bob", GlobalName: "Bobby"}}
	got := toChatMessage(m)
	if got.ID != "m2" || got.Content != "raw " || got.AuthorName != "Bobby" || got.AuthorID != "u3" {
		t.Fatalf("toChatMessage() = %+v", got)
	}
	if toChatMessage(&discordgo.Message{ID: "m3"}).AuthorID != "" {
		t.Fatal("missing author should leave author fields empty")
	}
}

func TestToIdentity(t *testing.T) {
	u := &discordgo.User{ID: "bot", Username: "domme_bot", GlobalName: "Lady Domme"}
	got := toIdentity(u, []string{"domme"})
	want := chat.BotIdentity{ID: "bot", Username: "domme_bot", DisplayName: "Lady Domme", GlobalName: "Lady Domme", Aliases: []string{"domme"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("toIdentity() = %+v", got)
	}
}

func TestWrapREST(t *testing.T) {
	unknown := &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMessage},
	}
	err := wrapREST(unknown)
	if !errors.Is(err, chat.ErrMessageNotFound) {
		t.Fatalf("unknown message not mapped: %v", err)
	}
	if retrylimit.Retryable(err) {
		t.Fatal("missing message must not be retried")
	}

	unavailable := wrapREST(&discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusBadGateway}})
	if !retrylimit.Retryable(unavailable) {
		t.Fatal("5xx should be retried")
	}
	forbidden := wrapREST(&discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}})
	if retrylimit.Retryable(forbidden) {
		t.Fatal("403 should not be retried")
	}

	plain := errors.New("connection reset")
	if wrapREST(plain) != plain || wrapREST(nil) != nil {
		t.Fatal("non-REST errors pass through")
	}
}

type recordingHandler struct {
	msgs []chat.InboundMessage
	id   chat.BotIdentity
}

func (h *recordingHandler) HandleMessage(_ context.Context, msg chat.InboundMessage) {
	h.msgs = append(h.msgs, msg)
}

func (h *recordingHandler) SetIdentity(id chat.BotIdentity) { h.id = id }

func TestOnMessageCreateFilters(t *testing.T) {
	s := &discordgo.Session{State: discordgo.NewState()}
	s.State.User = &discordgo.User{ID: "bot"}
	h := &recordingHandler{}
	b := NewBot(s, h, nil)

	events := []*discordgo.Message{
		{ID: "own", GuildID: "g1", Author: &discordgo.User{ID: "bot"}},
		{ID: "dm", Author: &discordgo.User{ID: "u1"}},
		{ID: "system", GuildID: "g1"},
		{ID: "ok", GuildID: "g1", ChannelID: "c1", Author: &discordgo.User{ID: "u1", Username: "ann"}},
	}
	for _, m := range events {
		b.onMessageCreate(s, &discordgo.MessageCreate{Message: m})
	}

	if len(h.msgs) != 1 || h.msgs[0].ID != "ok" {
		t.Fatalf("handled = %+v", h.msgs)
	}
}

func TestOnReadySetsIdentity(t *testing.T) {
	h := &recordingHandler{}
	b := NewBot(&discordgo.Session{}, h, []string{"mistress"})
	b.onReady(nil, &discordgo.Ready{User: &discordgo.User{ID: "bot", Username: "domme_bot"}})
	if h.id.ID != "bot" || h.id.DisplayName != "domme_bot" || len(h.id.Aliases) != 1 {
		t.Fatalf("identity = %+v", h.id)
	}
}
