package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"domme-chat/internal/chat"
	"domme-chat/pkg/retrylimit"
)

// Gateway implements chat.Platform over the Discord REST API.
// discordgo already waits out 429s on its own buckets; the retry here covers 5xx and dropped connections.
type Gateway struct {
	s      *discordgo.Session
	lim    *retrylimit.AdaptiveLimiter
	policy retrylimit.Policy
}

func NewGateway(s *discordgo.Session) *Gateway {
	p := retrylimit.DefaultPolicy()
	p.MaxAttempts = 3
	return &Gateway{
		s:      s,
		lim:    retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
		policy: p,
	}
}

// call runs fn with retries. Posting is not idempotent, so creates get a single attempt.
func (g *Gateway) call(ctx context.Context, op string, idempotent bool, fn func(opt discordgo.RequestOption) error) error {
	p := g.policy
	if !idempotent {
		p.MaxAttempts = 1
	}
	err := retrylimit.Do(ctx, g.lim, p, func(ctx context.Context) error {
		return wrapREST(fn(discordgo.WithContext(ctx)))
	})
	if err != nil {
		return fmt.Errorf("discord %s: %w", op, err)
	}
	return nil
}

func (g *Gateway) SendTyping(ctx context.Context, channelID string) error {
	return g.call(ctx, "typing", true, func(opt discordgo.RequestOption) error {
		return g.s.ChannelTyping(channelID, opt)
	})
}

func (g *Gateway) Send(ctx context.Context, channelID, content string) (chat.SentMessage, error) {
	var m *discordgo.Message
	err := g.call(ctx, "send", false, func(opt discordgo.RequestOption) error {
		var err error
		m, err = g.s.ChannelMessageSend(channelID, content, opt)
		return err
	})
	if err != nil {
		return chat.SentMessage{}, err
	}
	return toSent(m), nil
}

func (g *Gateway) Reply(ctx context.Context, channelID, replyToID, content string) (chat.SentMessage, error) {
	ref := &discordgo.MessageReference{MessageID: replyToID, ChannelID: channelID}
	var m *discordgo.Message
	err := g.call(ctx, "reply", false, func(opt discordgo.RequestOption) error {
		var err error
		m, err = g.s.ChannelMessageSendReply(channelID, content, ref, opt)
		return err
	})
	if err != nil {
		return chat.SentMessage{}, err
	}
	return toSent(m), nil
}

func (g *Gateway) Edit(ctx context.Context, channelID, messageID, content string) error {
	return g.call(ctx, "edit", true, func(opt discordgo.RequestOption) error {
		_, err := g.s.ChannelMessageEdit(channelID, messageID, content, opt)
		return err
	})
}

func (g *Gateway) Delete(ctx context.Context, channelID, messageID string) error {
	return g.call(ctx, "delete", true, func(opt discordgo.RequestOption) error {
		return g.s.ChannelMessageDelete(channelID, messageID, opt)
	})
}

func (g *Gateway) React(ctx context.Context, channelID, messageID, emoji string) error {
	return g.call(ctx, "react", true, func(opt discordgo.RequestOption) error {
		return g.s.MessageReactionAdd(channelID, messageID, emoji, opt)
	})
}

func (g *Gateway) RecentMessages(ctx context.Context, channelID string, limit int) ([]chat.ChatMessage, error) {
	if limit <= 0 {
		return nil, nil
	}
	var msgs []*discordgo.Message
	err := g.call(ctx, "history", true, func(opt discordgo.RequestOption) error {
		var err error
		msgs, err = g.s.ChannelMessages(channelID, min(limit, 100), "", "", "", opt)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]chat.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toChatMessage(m))
	}
	return out, nil
}

// restError exposes the HTTP status of a discordgo REST failure to retrylimit.
type restError struct {
	err  *discordgo.RESTError
	code int
}

func (e *restError) Error() string   { return e.err.Error() }
func (e *restError) Unwrap() error   { return e.err }
func (e *restError) StatusCode() int { return e.code }

// wrapREST maps "unknown message" to chat.ErrMessageNotFound and attaches status codes.
func wrapREST(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return err
	}
	if rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownMessage {
		return retrylimit.Fatal(fmt.Errorf("%w: %v", chat.ErrMessageNotFound, err))
	}
	if rest.Response == nil {
		return err
	}
	return &restError{err: rest, code: rest.Response.StatusCode}
}
