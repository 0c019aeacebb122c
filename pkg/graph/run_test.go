package graph_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aretw0/agentgraph/pkg/adapters/memory"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/graph"
	"github.com/aretw0/agentgraph/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userInput(text string) domain.Update {
	return domain.Update{Messages: []domain.Message{domain.UserMessage(text)}}
}

// loopSpec runs "a" then asks "decide" whether to go through "b" again.
func loopSpec() domain.GraphSpec {
	return domain.GraphSpec{
		Nodes: []domain.NodeSpec{{Name: "a"}, {Name: "b"}},
		Edges: []domain.EdgeSpec{{From: "b", To: "a"}},
		ConditionalEdges: []domain.ConditionalEdgeSpec{{
			From: "a", Condition: "decide",
			Mapping: map[string]string{"again": "b", "end": domain.End},
		}},
		EntryPoint: "a",
	}
}

// decideByCount loops until the thread holds n assistant messages.
func decideByCount(n int) registry.ConditionFunc {
	return func(ctx context.Context, s *domain.State, cfg domain.RunConfig) (string, error) {
		count := 0
		for _, m := range s.Messages {
			if m.Role == domain.RoleAssistant {
				count++
			}
		}
		if count < n {
			return "again", nil
		}
		return "end", nil
	}
}

func TestInvoke_Linear(t *testing.T) {
	store := memory.NewStore()
	g, err := graph.Compile(linearSpec(), testRegistry(), store)
	require.NoError(t, err)

	events, err := g.Invoke(context.Background(), domain.RunConfig{ThreadID: "t1"}, userInput("hello"))
	require.NoError(t, err)

	// input snapshot + one per node
	require.Len(t, events, 3)
	assert.Len(t, events[0].Messages, 1)
	assert.Equal(t, "a", events[0].Next)
	assert.Equal(t, domain.StatusRunning, events[0].Status)

	last := events[2]
	assert.Equal(t, domain.StatusIdle, last.Status)
	assert.Empty(t, last.Next)
	assert.Equal(t, 2, last.Step)
	require.Len(t, last.Messages, 3)
	assert.Equal(t, "b", last.Messages[2].Text())

	persisted, err := store.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, last.Messages, persisted.Messages)
	assert.Equal(t, domain.StatusIdle, persisted.Status)
}

func TestInvoke_SnapshotsAreIndependent(t *testing.T) {
	g, err := graph.Compile(linearSpec(), testRegistry(), nil)
	require.NoError(t, err)

	events, err := g.Invoke(context.Background(), domain.RunConfig{ThreadID: "t1"}, userInput("hello"))
	require.NoError(t, err)

	events[0].Messages[0].Content = "mutated"
	assert.Equal(t, "hello", events[2].Messages[0].Text())
}

func TestInvoke_ConditionalLoop(t *testing.T) {
	reg := testRegistry()
	reg.RegisterCondition("decide", decideByCount(5))
	g, err := graph.Compile(loopSpec(), reg, nil)
	require.NoError(t, err)

	events, err := g.Invoke(context.Background(), domain.RunConfig{ThreadID: "loop"}, userInput("go"))
	require.NoError(t, err)

	last := events[len(events)-1]
	var trace []string
	for _, m := range last.Messages[1:] {
		trace = append(trace, m.Text())
	}
	assert.Equal(t, []string{"a", "b", "a", "b", "a"}, trace)
	assert.Equal(t, 5, last.Step)
}

func TestInvoke_AccumulatesAcrossTurns(t *testing.T) {
	var seen []int
	reg := registry.NewRegistry()
	reg.RegisterNode("a", func(ctx context.Context, s *domain.State, cfg domain.RunConfig) (domain.Update, error) {
		seen = append(seen, len(s.Messages))
		return domain.Update{Messages: []domain.Message{domain.AssistantMessage("ok")}}, nil
	})
	spec := domain.GraphSpec{
		Nodes:      []domain.NodeSpec{{Name: "a"}},
		Edges:      []domain.EdgeSpec{{From: "a", To: domain.End}},
		EntryPoint: "a",
	}
	g, err := graph.Compile(spec, reg, nil)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = g.Invoke(ctx, domain.RunConfig{ThreadID: "t"}, userInput("one"))
	require.NoError(t, err)
	_, err = g.Invoke(ctx, domain.RunConfig{ThreadID: "t"}, userInput("two"))
	require.NoError(t, err)
	_, err = g.Invoke(ctx, domain.RunConfig{ThreadID: "other"}, userInput("solo"))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3, 1}, seen, "second turn sees the first turn's history; threads are isolated")

	state, err := g.State(ctx, "t")
	require.NoError(t, err)
	assert.Len(t, state.Messages, 4)
}

func TestInvoke_UnmappedOutcome(t *testing.T) {
	reg := testRegistry()
	reg.RegisterCondition("decide", fixedCondition("maybe"))
	g, err := graph.Compile(loopSpec(), reg, nil)
	require.NoError(t, err)

	_, err = g.Invoke(context.Background(), domain.RunConfig{ThreadID: "t"}, userInput("go"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnmappedOutcome)

	var execErr *domain.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "a", execErr.Node)
	assert.Equal(t, "t", execErr.ThreadID)
	assert.Contains(t, err.Error(), `"maybe"`)
}

func TestInvoke_RecursionLimit(t *testing.T) {
	reg := testRegistry()
	reg.RegisterCondition("decide", fixedCondition("again"))
	g, err := graph.Compile(loopSpec(), reg, nil)
	require.NoError(t, err)

	events, err := g.Invoke(context.Background(), domain.RunConfig{ThreadID: "t"}, userInput("go"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRecursionLimit)
	assert.True(t, domain.IsExecutionError(err))
	assert.Len(t, events, domain.DefaultRecursionLimit+1)

	_, err = g.Invoke(context.Background(), domain.RunConfig{ThreadID: "t2", RecursionLimit: 3}, userInput("go"))
	require.ErrorIs(t, err, domain.ErrRecursionLimit)
	assert.Contains(t, err.Error(), "limit 3")
}

func TestInvoke_NodeErrorAndResume(t *testing.T) {
	var calls atomic.Int32
	var bCalls atomic.Int32
	reg := testRegistry()
	reg.RegisterNode("b", func(ctx context.Context, s *domain.State, cfg domain.RunConfig) (domain.Update, error) {
		if bCalls.Add(1) == 1 {
			return domain.Update{}, errors.New("tool backend down")
		}
		return domain.Update{Messages: []domain.Message{domain.AssistantMessage("b")}}, nil
	})
	reg.RegisterNode("a", func(ctx context.Context, s *domain.State, cfg domain.RunConfig) (domain.Update, error) {
		calls.Add(1)
		return domain.Update{Messages: []domain.Message{domain.AssistantMessage("a")}}, nil
	})

	store := memory.NewStore()
	g, err := graph.Compile(linearSpec(), reg, store)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = g.Invoke(ctx, domain.RunConfig{ThreadID: "t"}, userInput("hello"))
	require.Error(t, err)
	var execErr *domain.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "b", execErr.Node)

	crashed, err := store.Load(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, crashed.Status)
	assert.Equal(t, "b", crashed.Next)

	events, err := g.Invoke(ctx, domain.RunConfig{ThreadID: "t"}, userInput("hello"))
	require.NoError(t, err)
	require.Len(t, events, 1, "resume continues at the failed node")

	last := events[0]
	assert.EqualValues(t, 1, calls.Load(), "completed nodes are not re-run")
	require.Len(t, last.Messages, 3, "input is not applied twice")
	assert.Equal(t, domain.StatusIdle, last.Status)
}

func TestInvoke_NewInputDiscardsUnfinishedTurn(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	reg := testRegistry()
	reg.RegisterNode("b", func(ctx context.Context, s *domain.State, cfg domain.RunConfig) (domain.Update, error) {
		if fail.Load() {
			return domain.Update{}, errors.New("boom")
		}
		return domain.Update{}, nil
	})

	g, err := graph.Compile(linearSpec(), reg, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = g.Invoke(ctx, domain.RunConfig{ThreadID: "t"}, userInput("first"))
	require.Error(t, err)

	fail.Store(false)
	events, err := g.Invoke(ctx, domain.RunConfig{ThreadID: "t"}, userInput("second"))
	require.NoError(t, err)
	require.Len(t, events, 3, "a different input starts a fresh turn at the entry point")
	assert.Equal(t, "second", events[0].Messages[len(events[0].Messages)-1].Text())
}

func TestInvoke_NodePanicBecomesError(t *testing.T) {
	reg := testRegistry()
	reg.RegisterNode("a", func(ctx context.Context, s *domain.State, cfg domain.RunConfig) (domain.Update, error) {
		panic("nil map")
	})
	g, err := graph.Compile(linearSpec(), reg, nil)
	require.NoError(t, err)

	_, err = g.Invoke(context.Background(), domain.RunConfig{ThreadID: "t"}, userInput("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil map")
}

func TestInvoke_RequiresThreadID(t *testing.T) {
	g, err := graph.Compile(linearSpec(), testRegistry(), nil)
	require.NoError(t, err)

	_, err = g.Invoke(context.Background(), domain.RunConfig{}, userInput("x"))
	assert.True(t, domain.IsExecutionError(err))
}

func TestInvoke_CancelledContext(t *testing.T) {
	g, err := graph.Compile(linearSpec(), testRegistry(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Invoke(ctx, domain.RunConfig{ThreadID: "t"}, userInput("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStream_EarlyBreak(t *testing.T) {
	store := memory.NewStore()
	g, err := graph.Compile(linearSpec(), testRegistry(), store)
	require.NoError(t, err)

	count := 0
	for _, err := range g.Stream(context.Background(), domain.RunConfig{ThreadID: "t"}, userInput("x")) {
		require.NoError(t, err)
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)

	state, err := store.Load(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, state.Status)
	assert.Equal(t, "b", state.Next)
}

func TestInvoke_Hooks(t *testing.T) {
	var mu sync.Mutex
	var entered, left []string
	var snapshots int
	var turn *domain.TurnEvent

	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			mu.Lock()
			defer mu.Unlock()
			entered = append(entered, e.NodeID)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			mu.Lock()
			defer mu.Unlock()
			left = append(left, e.NodeID)
		},
		OnSnapshot: func(ctx context.Context, s *domain.State) {
			mu.Lock()
			defer mu.Unlock()
			snapshots++
		},
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			turn = e
		},
	}

	reg := testRegistry()
	var sawHooks bool
	reg.RegisterNode("b", func(ctx context.Context, s *domain.State, cfg domain.RunConfig) (domain.Update, error) {
		sawHooks = cfg.Hooks.OnNodeEnter != nil && cfg.Graph == "hooked"
		return domain.Update{}, nil
	})

	g, err := graph.Compile(linearSpec(), reg, nil, graph.WithName("hooked"), graph.WithLifecycleHooks(hooks))
	require.NoError(t, err)

	_, err = g.Invoke(context.Background(), domain.RunConfig{ThreadID: "t"}, userInput("x"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, entered)
	assert.Equal(t, []string{"a", "b"}, left)
	assert.Equal(t, 3, snapshots)
	require.NotNil(t, turn)
	assert.Equal(t, 2, turn.Steps)
	assert.Equal(t, "hooked", turn.Graph)
	assert.NoError(t, turn.Err)
	assert.True(t, sawHooks, "nodes receive the engine hooks and graph name")
}

func TestInvoke_SerialisesSameThread(t *testing.T) {
	var active, maxActive atomic.Int32
	reg := registry.NewRegistry()
	reg.RegisterNode("a", func(ctx context.Context, s *domain.State, cfg domain.RunConfig) (domain.Update, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		return domain.Update{Messages: []domain.Message{domain.AssistantMessage("ok")}}, nil
	})
	spec := domain.GraphSpec{
		Nodes:      []domain.NodeSpec{{Name: "a"}},
		Edges:      []domain.EdgeSpec{{From: "a", To: domain.End}},
		EntryPoint: "a",
	}
	g, err := graph.Compile(spec, reg, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Invoke(context.Background(), domain.RunConfig{ThreadID: "shared"}, userInput("hi"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxActive.Load())
	state, err := g.State(context.Background(), "shared")
	require.NoError(t, err)
	assert.Len(t, state.Messages, 40, "no turn is lost")
}
