package dsl

import (
	"context"
	"testing"

	"github.com/aretw0/agentgraph/pkg/adapters/memory"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/graph"
	"github.com/aretw0/agentgraph/pkg/nodes"
	"github.com/aretw0/agentgraph/pkg/ports"
	"github.com/aretw0/agentgraph/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reactBuilder() *Builder {
	b := New()
	b.Add(graph.NodeCallModel).Entry().Branch(graph.ConditionShouldContinue, map[string]string{
		graph.OutcomeTools: graph.NodeTools,
		graph.OutcomeEnd:   End,
	})
	b.Add(graph.NodeTools).Go(graph.NodeCallModel)
	return b
}

func TestBuilder_MatchesPrebuiltTopology(t *testing.T) {
	spec := reactBuilder().Prompt("Be brief.").Build()
	want := graph.PrebuiltReactSpec("Be brief.")

	assert.Equal(t, graph.TypeCustom, spec.Type)
	assert.Equal(t, want.Nodes, spec.Nodes)
	assert.Equal(t, want.Edges, spec.Edges)
	assert.Equal(t, want.ConditionalEdges, spec.ConditionalEdges)
	assert.Equal(t, want.EntryPoint, spec.EntryPoint)
	assert.Equal(t, "Be brief.", spec.Prompt)
}

func TestBuilder_AddIsIdempotent(t *testing.T) {
	b := New()
	first := b.Add("a")
	second := b.Add("a")
	assert.Same(t, first, second)

	first.Go("b")
	b.Add("b").Terminal()
	spec := b.Entry("a").Build()

	require.Len(t, spec.Nodes, 2)
	assert.Equal(t, []domain.EdgeSpec{{From: "a", To: "b"}, {From: "b", To: End}}, spec.Edges)
}

func TestBuilder_BranchCopiesMapping(t *testing.T) {
	mapping := map[string]string{"x": "a"}
	b := New()
	b.Add("a").Branch("cond", mapping)
	mapping["y"] = "b"

	spec := b.Build()
	require.Len(t, spec.ConditionalEdges, 1)
	assert.Equal(t, map[string]string{"x": "a"}, spec.ConditionalEdges[0].Mapping)
}

func TestBuilder_Settings(t *testing.T) {
	spec := New().
		Tools("add", "multiply").
		MCP("stdio:agentgraph mcp-math").
		Checkpointer("file", map[string]any{"path": "/tmp/threads"}).
		RecursionLimit(7).
		Prebuilt()

	assert.Equal(t, graph.TypePrebuilt, spec.Type)
	assert.Equal(t, []string{"add", "multiply"}, spec.ToolNames())
	assert.Equal(t, []string{"stdio:agentgraph mcp-math"}, spec.MCPServers)
	assert.Equal(t, "file", spec.Checkpointer.Type)
	assert.Equal(t, 7, spec.Limit())
	assert.Empty(t, spec.Nodes)
}

func TestBuilder_CompilesAndRuns(t *testing.T) {
	reg := registry.NewRegistry()
	model := ports.ChatModelFunc(func(ctx context.Context, msgs []domain.Message, _ []domain.ToolDefinition) (domain.Message, error) {
		return domain.AssistantMessage("hi from dsl"), nil
	})
	nodes.Register(reg, model, registry.NewTools())

	g, err := graph.Compile(reactBuilder().Build(), reg, memory.NewStore())
	require.NoError(t, err)

	states, err := g.Invoke(context.Background(), domain.RunConfig{ThreadID: "dsl"},
		domain.Update{Messages: []domain.Message{domain.UserMessage("hello")}})
	require.NoError(t, err)
	require.NotEmpty(t, states)

	last, ok := states[len(states)-1].LastMessage()
	require.True(t, ok)
	assert.Equal(t, "hi from dsl", last.Text())
}

func TestBuilder_UnknownNodeFailsCompile(t *testing.T) {
	b := New()
	b.Add("missing").Entry().Terminal()
	_, err := graph.Compile(b.Build(), registry.NewRegistry(), memory.NewStore())
	assert.Error(t, err)
}
