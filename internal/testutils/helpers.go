package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/agentgraph/pkg/domain"
)

// Call records one request made to a ScriptedModel.
type Call struct {
	Messages []domain.Message
	Tools    []domain.ToolDefinition
}

// ScriptedModel is a ports.ChatModel that replays canned replies in order.
// It fails the call once the script is exhausted.
type ScriptedModel struct {
	mu      sync.Mutex
	replies []domain.Message
	errs    map[int]error
	calls   []Call
}

// NewScriptedModel creates a model replying with replies, one per call.
func NewScriptedModel(replies ...domain.Message) *ScriptedModel {
	return &ScriptedModel{replies: replies, errs: map[int]error{}}
}

// FailOn makes the n-th call (0-based) return err instead of a reply.
func (m *ScriptedModel) FailOn(n int, err error) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[n] = err
	return m
}

// Generate implements ports.ChatModel.
func (m *ScriptedModel) Generate(ctx context.Context, messages []domain.Message, tools []domain.ToolDefinition) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.calls)
	history := make([]domain.Message, len(messages))
	for i, msg := range messages {
		history[i] = msg.Clone()
	}
	m.calls = append(m.calls, Call{Messages: history, Tools: tools})

	if err, ok := m.errs[n]; ok {
		return domain.Message{}, err
	}
	if len(m.replies) == 0 {
		return domain.Message{}, fmt.Errorf("scripted model: no reply left for call %d", n)
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return reply, nil
}

// Calls returns every recorded request.
func (m *ScriptedModel) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Generate calls so far.
func (m *ScriptedModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
