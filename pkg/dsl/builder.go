package dsl

import (
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/graph"
)

// Sentinels re-exported for readability in builder chains.
const (
	Start = domain.Start
	End   = domain.End
)

// Builder manages the graph construction.
type Builder struct {
	order []string
	nodes map[string]*NodeBuilder
	spec  domain.GraphSpec
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add declares a node. The name must resolve through the node registry at
// compile time. If the node already exists, it returns the existing builder.
func (b *Builder) Add(name string) *NodeBuilder {
	if nb, ok := b.nodes[name]; ok {
		return nb
	}
	nb := &NodeBuilder{name: name, builder: b}
	b.nodes[name] = nb
	b.order = append(b.order, name)
	return nb
}

// Entry sets the first node of every turn.
func (b *Builder) Entry(name string) *Builder {
	b.spec.EntryPoint = name
	return b
}

// Prompt sets the system prompt added on the first turn of a thread.
func (b *Builder) Prompt(prompt string) *Builder {
	b.spec.Prompt = prompt
	return b
}

// Tools restricts the tools bound to the model.
func (b *Builder) Tools(names ...string) *Builder {
	for _, n := range names {
		b.spec.Tools = append(b.spec.Tools, domain.ToolSpec{Name: n})
	}
	return b
}

// MCP adds remote tool sources.
func (b *Builder) MCP(addrs ...string) *Builder {
	b.spec.MCPServers = append(b.spec.MCPServers, addrs...)
	return b
}

// Checkpointer selects the checkpoint backend and its arguments.
func (b *Builder) Checkpointer(kind string, kwargs map[string]any) *Builder {
	b.spec.Checkpointer = domain.CheckpointerSpec{Type: kind, Kwargs: kwargs}
	return b
}

// RecursionLimit bounds node executions per turn.
func (b *Builder) RecursionLimit(n int) *Builder {
	b.spec.RecursionLimit = n
	return b
}

// Build returns the specification. Nodes and edges keep declaration order.
func (b *Builder) Build() domain.GraphSpec {
	spec := b.spec
	spec.Type = graph.TypeCustom
	spec.Nodes = nil
	spec.Edges = nil
	spec.ConditionalEdges = nil
	for _, name := range b.order {
		nb := b.nodes[name]
		spec.Nodes = append(spec.Nodes, domain.NodeSpec{Name: name})
		spec.Edges = append(spec.Edges, nb.edges...)
		spec.ConditionalEdges = append(spec.ConditionalEdges, nb.branches...)
	}
	return spec
}

// Prebuilt returns a prebuilt spec carrying the builder's prompt, tools,
// checkpointer and limits. Declared nodes are ignored.
func (b *Builder) Prebuilt() domain.GraphSpec {
	spec := b.spec
	spec.Type = graph.TypePrebuilt
	return spec
}
