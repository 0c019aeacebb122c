package domain

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	running := StatusRunning
	idle := StatusIdle

	base := &State{
		ThreadID: "t1",
		Messages: []Message{UserMessage("hi")},
		Status:   StatusRunning,
		Next:     "call_model",
	}

	t.Run("Initial Load (Old is Nil)", func(t *testing.T) {
		d := Diff(nil, base)
		require.NotNil(t, d)
		assert.Equal(t, "t1", d.ThreadID)
		assert.Equal(t, "call_model", *d.Next)
		assert.Equal(t, running, *d.Status)
		assert.Len(t, d.Appended, 1)
	})

	t.Run("No Changes", func(t *testing.T) {
		assert.Nil(t, Diff(base, base.Clone()))
	})

	t.Run("Messages Appended", func(t *testing.T) {
		next := base.Clone()
		next.Apply(Update{Messages: []Message{AssistantMessage("hello")}})
		next.Status = StatusIdle
		next.Next = ""

		d := Diff(base, next)
		require.NotNil(t, d)
		assert.Equal(t, idle, *d.Status)
		assert.Equal(t, "", *d.Next)
		require.Len(t, d.Appended, 1)
		assert.Equal(t, "hello", d.Appended[0].Text())
	})

	t.Run("Serialization omits unchanged fields", func(t *testing.T) {
		next := base.Clone()
		next.Apply(Update{Messages: []Message{AssistantMessage("x")}})
		data, err := json.Marshal(Diff(base, next))
		require.NoError(t, err)
		assert.NotContains(t, string(data), `"status"`)
		assert.NotContains(t, string(data), `"next"`)
		assert.Contains(t, string(data), `"appended"`)
	})

	t.Run("Nil new state", func(t *testing.T) {
		assert.Nil(t, Diff(base, nil))
	})
}

func TestState_ApplyAndClone(t *testing.T) {
	s := NewState("t1")
	s.Apply(Update{Messages: []Message{UserMessage("a")}})
	s.Apply(Update{Messages: []Message{
		AssistantMessage("", ToolCall{ID: "c1", Name: "get_username", Args: map[string]any{"k": "v"}}),
	}})

	require.Len(t, s.Messages, 2)
	last, ok := s.LastMessage()
	require.True(t, ok)
	assert.True(t, last.HasToolCalls())

	clone := s.Clone()
	clone.Messages[1].ToolCalls[0].Args["k"] = "changed"
	clone.Apply(Update{Messages: []Message{UserMessage("b")}})

	assert.Len(t, s.Messages, 2, "clone must not share the message slice")
	assert.Equal(t, "v", s.Messages[1].ToolCalls[0].Args["k"], "clone must not share tool args")
}

func TestErrors_Unwrap(t *testing.T) {
	cfgErr := &ConfigurationError{Op: "add_node", Name: "x", Err: &ResolutionError{Kind: "node", Name: "x"}}
	assert.True(t, IsConfigurationError(cfgErr))
	assert.False(t, IsExecutionError(cfgErr))
	assert.Contains(t, cfgErr.Error(), `add_node "x"`)

	execErr := &ExecutionError{ThreadID: "t1", Node: "call_model", Err: ErrUnmappedOutcome}
	assert.ErrorIs(t, execErr, ErrUnmappedOutcome)
	assert.True(t, IsExecutionError(execErr))
}

func TestMergeHooks(t *testing.T) {
	var order []string
	a := LifecycleHooks{OnNodeEnter: func(_ context.Context, e *NodeEvent) { order = append(order, "a:"+e.NodeID) }}
	b := LifecycleHooks{OnNodeEnter: func(_ context.Context, e *NodeEvent) { order = append(order, "b:"+e.NodeID) }}

	merged := MergeHooks(a, LifecycleHooks{}, b)
	merged.OnNodeEnter(context.Background(), &NodeEvent{NodeID: "n"})

	assert.Equal(t, []string{"a:n", "b:n"}, order)
	assert.Nil(t, merged.OnToolCall)
}
