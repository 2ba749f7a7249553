package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"domme-chat/pkg/retrylimit"
)

// Trace records which engine answered the last Generate and what failed before it.
type Trace struct {
	Engine string
	Errors []string
}

type namedProvider struct {
	name string
	p    Provider
}

// MultiProvider tries its providers in order. Each provider call is retried
// under a shared adaptive limiter before moving on to the next one.
type MultiProvider struct {
	providers []namedProvider
	lim       *retrylimit.AdaptiveLimiter
	policy    retrylimit.Policy

	mu   sync.Mutex
	last Trace
}

// NewMultiProvider builds providers from engine names, e.g. "g4f:gpt-oss-120b,pollinations".
func NewMultiProvider(engines []string) (*MultiProvider, error) {
	m := &MultiProvider{
		lim:    retrylimit.NewAdaptiveLimiter(2, 1, 5, 1, 0.5),
		policy: retrylimit.DefaultPolicy(),
	}
	m.policy.MaxAttempts = 2
	for _, e := range engines {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		p, err := NewProvider(e)
		if err != nil {
			return nil, err
		}
		m.Add(e, p)
	}
	if len(m.providers) == 0 {
		return nil, errors.New("no AI providers configured")
	}
	return m, nil
}

// Add appends a provider to the failover chain.
func (m *MultiProvider) Add(name string, p Provider) {
	m.providers = append(m.providers, namedProvider{name: name, p: p})
}

func (m *MultiProvider) Generate(ctx context.Context, messages []Message) (string, error) {
	var trace Trace
	defer func() {
		for _, e := range trace.Errors {
			log.Printf("[AI] fallback error: %s", e)
		}
		if trace.Engine != "" {
			log.Printf("[AI] provider=%s", trace.Engine)
		}
		m.mu.Lock()
		m.last = trace
		m.mu.Unlock()
	}()

	for _, np := range m.providers {
		var reply string
		err := retrylimit.Do(ctx, m.lim, m.policy, func(ctx context.Context) error {
			r, err := np.p.Generate(ctx, messages)
			reply = r
			return err
		})
		if err == nil {
			trace.Engine = np.name
			return reply, nil
		}
		trace.Errors = append(trace.Errors, fmt.Sprintf("%s: %v", np.name, err))
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("all AI providers failed: %s", strings.Join(trace.Errors, "; "))
}

// LastTrace returns the trace of the most recent Generate.
func (m *MultiProvider) LastTrace() Trace {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Trace{Engine: m.last.Engine, Errors: append([]string(nil), m.last.Errors...)}
}
