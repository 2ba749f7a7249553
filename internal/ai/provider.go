// Package ai talks to hosted chat-completion models.
package ai

import (
	"context"
	"fmt"
	"strings"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Provider interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// StatusError is a non-2xx answer from a provider.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s http %d: %s", e.Provider, e.Code, e.Body)
}

// StatusCode lets retrylimit classify the failure.
func (e *StatusError) StatusCode() int { return e.Code }

// NewProvider builds a provider from an engine name:
//
//	pollinations
//	g4f:gpt-oss-120b
//	g4f:groq/qwen/qwen3-32b
//	g4f:ollama/gpt-oss:20b
func NewProvider(engine string) (Provider, error) {
	engine = strings.TrimSpace(engine)
	switch {
	case engine == "pollinations":
		return NewPollinationsProvider(""), nil
	case engine == "g4f" || strings.HasPrefix(engine, "g4f:"):
		return NewG4FProvider(engine), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", engine)
	}
}
