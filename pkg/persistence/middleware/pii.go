package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/ports"
)

// Mask replaces every redacted value.
const Mask = "***"

// RedactConfig selects what the PII middleware hides before a snapshot is
// written.
type RedactConfig struct {
	// KeyPatterns match tool-call argument keys (and nested mapping keys)
	// whose values are masked entirely.
	KeyPatterns []string

	// ValuePatterns match substrings of text content that are masked in place.
	ValuePatterns []string
}

type piiMiddleware struct {
	wrapped
	keys   []*regexp.Regexp
	values []*regexp.Regexp
}

// NewPII creates a middleware that masks sensitive data in the stored copy of
// a snapshot. The in-memory state used by the running turn is not modified;
// later turns see the masked history.
func NewPII(config RedactConfig) (Middleware, error) {
	keys, err := compileAll(config.KeyPatterns)
	if err != nil {
		return nil, err
	}
	values, err := compileAll(config.ValuePatterns)
	if err != nil {
		return nil, err
	}
	return func(next ports.Checkpointer) ports.Checkpointer {
		return &piiMiddleware{wrapped: wrapped{next: next}, keys: keys, values: values}
	}, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func (m *piiMiddleware) Save(ctx context.Context, threadID string, state *domain.State) error {
	masked := *state
	masked.Messages = make([]domain.Message, len(state.Messages))
	for i, msg := range state.Messages {
		masked.Messages[i] = m.maskMessage(msg)
	}
	masked.PendingInput = m.maskText(state.PendingInput)
	return m.next.Save(ctx, threadID, &masked)
}

func (m *piiMiddleware) Load(ctx context.Context, threadID string) (*domain.State, error) {
	return m.next.Load(ctx, threadID)
}

func (m *piiMiddleware) Delete(ctx context.Context, threadID string) error {
	return m.next.Delete(ctx, threadID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) maskMessage(msg domain.Message) domain.Message {
	out := msg
	out.Content = m.maskValue(msg.Content)
	if msg.ToolCalls != nil {
		out.ToolCalls = make([]domain.ToolCall, len(msg.ToolCalls))
		for i, c := range msg.ToolCalls {
			c.Args, _ = m.maskValue(c.Args).(map[string]any)
			out.ToolCalls[i] = c
		}
	}
	return out
}

// maskValue returns a masked copy; the input is never mutated.
func (m *piiMiddleware) maskValue(v any) any {
	switch t := v.(type) {
	case string:
		return m.maskText(t)
	case map[string]any:
		if t == nil {
			return t
		}
		out := make(map[string]any, len(t))
		for k, sub := range t {
			if m.sensitiveKey(k) {
				out[k] = Mask
				continue
			}
			out[k] = m.maskValue(sub)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, sub := range t {
			out[i] = m.maskValue(sub)
		}
		return out
	default:
		return v
	}
}

func (m *piiMiddleware) sensitiveKey(k string) bool {
	for _, p := range m.keys {
		if p.MatchString(k) {
			return true
		}
	}
	return false
}

func (m *piiMiddleware) maskText(s string) string {
	for _, p := range m.values {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}
