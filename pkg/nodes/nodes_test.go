package nodes_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/internal/testutils"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/graph"
	"github.com/aretw0/agentgraph/pkg/nodes"
	"github.com/aretw0/agentgraph/pkg/registry"
	"github.com/aretw0/agentgraph/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	graph     *graph.Compiled
	model     *testutils.ScriptedModel
	toolCalls *atomic.Int32
}

func newHarness(t *testing.T, model *testutils.ScriptedModel, opts ...graph.Option) harness {
	t.Helper()

	var toolCalls atomic.Int32
	username := tools.Username()
	inner := username.Invoke
	username.Invoke = func(ctx context.Context, args map[string]any) (any, error) {
		toolCalls.Add(1)
		return inner(ctx, args)
	}
	toolset := registry.NewTools()
	toolset.Register(username)

	reg := registry.NewRegistry()
	nodes.Register(reg, model, toolset)

	g, err := graph.Compile(graph.PrebuiltReactSpec(""), reg, nil, opts...)
	require.NoError(t, err)
	return harness{graph: g, model: model, toolCalls: &toolCalls}
}

func run(t *testing.T, h harness, thread, text string) ([]*domain.State, error) {
	t.Helper()
	return h.graph.Invoke(context.Background(), domain.RunConfig{ThreadID: thread},
		domain.Update{Messages: []domain.Message{domain.UserMessage(text)}})
}

func TestReactLoop_NoToolCalls(t *testing.T) {
	h := newHarness(t, testutils.NewScriptedModel(domain.AssistantMessage("Hi there!")))

	events, err := run(t, h, "t1", "hello")
	require.NoError(t, err)

	assert.Equal(t, 1, h.model.CallCount())
	assert.EqualValues(t, 0, h.toolCalls.Load())

	last := events[len(events)-1]
	require.Len(t, last.Messages, 2)
	assert.Equal(t, "Hi there!", last.Messages[1].Text())
	assert.Equal(t, domain.RoleAssistant, last.Messages[1].Role)

	calls := h.model.Calls()
	require.Len(t, calls[0].Tools, 1)
	assert.Equal(t, "get_username", calls[0].Tools[0].Name, "tool definitions are bound to the model")
}

func TestReactLoop_ToolCall(t *testing.T) {
	h := newHarness(t, testutils.NewScriptedModel(
		domain.AssistantMessage("", domain.ToolCall{ID: "c1", Name: "get_username", Args: map[string]any{}}),
		domain.AssistantMessage("Your username is John Doe."),
	))

	events, err := run(t, h, "t1", "what is my name?")
	require.NoError(t, err)

	assert.Equal(t, 2, h.model.CallCount())
	assert.EqualValues(t, 1, h.toolCalls.Load())

	last := events[len(events)-1]
	require.Len(t, last.Messages, 4)
	result := last.Messages[2]
	assert.Equal(t, domain.RoleTool, result.Role)
	assert.Equal(t, "c1", result.ToolCallID)
	assert.Equal(t, "get_username", result.Name)
	assert.JSONEq(t, `{"response":"John Doe"}`, result.Text())
	assert.Equal(t, "Your username is John Doe.", last.Messages[3].Text())

	second := h.model.Calls()[1]
	assert.Len(t, second.Messages, 3, "the model sees the tool result")
}

func TestReactLoop_HistoryAcrossTurns(t *testing.T) {
	h := newHarness(t, testutils.NewScriptedModel(
		domain.AssistantMessage("first answer"),
		domain.AssistantMessage("second answer"),
	))

	_, err := run(t, h, "t1", "one")
	require.NoError(t, err)
	_, err = run(t, h, "t1", "two")
	require.NoError(t, err)

	calls := h.model.Calls()
	require.Len(t, calls, 2)
	require.Len(t, calls[1].Messages, 3)
	assert.Equal(t, "one", calls[1].Messages[0].Text())
	assert.Equal(t, "first answer", calls[1].Messages[1].Text())
	assert.Equal(t, "two", calls[1].Messages[2].Text())
}

func TestReactLoop_ModelFailure(t *testing.T) {
	model := testutils.NewScriptedModel().FailOn(0, errors.New("gateway timeout"))
	h := newHarness(t, model)

	_, err := run(t, h, "t1", "hello")
	require.Error(t, err)
	assert.True(t, domain.IsExecutionError(err))
	assert.Contains(t, err.Error(), "gateway timeout")
}

func TestReactLoop_UnknownTool(t *testing.T) {
	h := newHarness(t, testutils.NewScriptedModel(
		domain.AssistantMessage("", domain.ToolCall{ID: "c1", Name: "launch_rockets"}),
	))

	_, err := run(t, h, "t1", "go")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownTool)

	var execErr *domain.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, graph.NodeTools, execErr.Node)
}

func TestReactLoop_ToolHooks(t *testing.T) {
	var calls, returns []*domain.ToolEvent
	hooks := domain.LifecycleHooks{
		OnToolCall:   func(ctx context.Context, e *domain.ToolEvent) { calls = append(calls, e) },
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) { returns = append(returns, e) },
	}
	h := newHarness(t, testutils.NewScriptedModel(
		domain.AssistantMessage("",
			domain.ToolCall{ID: "c1", Name: "get_username"},
			domain.ToolCall{ID: "c2", Name: "get_username"},
		),
		domain.AssistantMessage("done"),
	), graph.WithName("react"), graph.WithLifecycleHooks(hooks))

	_, err := run(t, h, "t1", "go")
	require.NoError(t, err)

	require.Len(t, calls, 2)
	require.Len(t, returns, 2)
	assert.Equal(t, "c1", calls[0].CallID)
	assert.Equal(t, "c2", returns[1].CallID)
	assert.Equal(t, "react", returns[0].Graph)
	assert.False(t, returns[0].IsError)
}

func TestShouldContinue(t *testing.T) {
	ctx := context.Background()
	state := domain.NewState("t")

	_, err := nodes.ShouldContinue(ctx, state, domain.RunConfig{})
	assert.ErrorIs(t, err, domain.ErrNoMessages)

	state.Apply(domain.Update{Messages: []domain.Message{domain.AssistantMessage("", domain.ToolCall{ID: "x", Name: "add"})}})
	label, err := nodes.ShouldContinue(ctx, state, domain.RunConfig{})
	require.NoError(t, err)
	assert.Equal(t, graph.OutcomeTools, label)

	state.Apply(domain.Update{Messages: []domain.Message{domain.AssistantMessage("plain")}})
	label, err = nodes.ShouldContinue(ctx, state, domain.RunConfig{})
	require.NoError(t, err)
	assert.Equal(t, graph.OutcomeEnd, label)
}

func TestToolNode_NilToolsConcurrentTurns(t *testing.T) {
	node := nodes.ToolNode(nil, logging.NewNop())
	state := &domain.State{ThreadID: "t1", Messages: []domain.Message{
		domain.AssistantMessage("", domain.ToolCall{ID: "c1", Name: "get_username"}),
	}}

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := node(context.Background(), state, domain.RunConfig{ThreadID: "t1"})
			assert.ErrorIs(t, err, domain.ErrUnknownTool)
		}()
	}
	wg.Wait()
}
