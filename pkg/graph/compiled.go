package graph

import (
	"context"
	"log/slog"
	"slices"

	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/ports"
	"github.com/aretw0/agentgraph/pkg/registry"
	"github.com/aretw0/agentgraph/pkg/session"
)

// Edge is a resolved transition. Conditional transitions carry the condition
// name and the outcome label that selects them.
type Edge struct {
	From      string
	To        string
	Condition string
	Label     string
}

// IsConditional reports whether the edge belongs to a conditional branch.
func (e Edge) IsConditional() bool {
	return e.Condition != ""
}

type branch struct {
	condition string
	fn        registry.ConditionFunc
	mapping   map[string]string
}

// Compiled is an executable graph. It is immutable and safe for concurrent use.
type Compiled struct {
	name   string
	spec   domain.GraphSpec
	entry  string
	order  []string
	nodes  map[string]registry.NodeFunc
	edges  map[string]string
	branch map[string]branch
	limit  int

	store    ports.Checkpointer
	sessions *session.Manager
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
}

// Name returns the graph label.
func (c *Compiled) Name() string {
	return c.name
}

// EntryPoint returns the first node of every turn.
func (c *Compiled) EntryPoint() string {
	return c.entry
}

// Nodes returns node names in declaration order.
func (c *Compiled) Nodes() []string {
	return slices.Clone(c.order)
}

// HasNode reports whether name is a declared node.
func (c *Compiled) HasNode(name string) bool {
	_, ok := c.nodes[name]
	return ok
}

// Edges returns every transition, including START to the entry point.
// Conditional branches are expanded per outcome label, sorted by label.
func (c *Compiled) Edges() []Edge {
	out := []Edge{{From: domain.Start, To: c.entry}}
	for _, from := range c.order {
		if to, ok := c.edges[from]; ok {
			out = append(out, Edge{From: from, To: to})
			continue
		}
		b := c.branch[from]
		labels := make([]string, 0, len(b.mapping))
		for label := range b.mapping {
			labels = append(labels, label)
		}
		slices.Sort(labels)
		for _, label := range labels {
			out = append(out, Edge{From: from, To: b.mapping[label], Condition: b.condition, Label: label})
		}
	}
	return out
}

// Prompt returns the system prompt configured for the graph.
func (c *Compiled) Prompt() string {
	return c.spec.Prompt
}

// Spec returns the specification the graph was compiled from.
func (c *Compiled) Spec() domain.GraphSpec {
	return c.spec
}

// RecursionLimit returns the maximum node executions per turn.
func (c *Compiled) RecursionLimit() int {
	return c.limit
}

// Checkpointer returns the attached store.
func (c *Compiled) Checkpointer() ports.Checkpointer {
	return c.store
}

// State returns the last checkpoint of a thread.
func (c *Compiled) State(ctx context.Context, threadID string) (*domain.State, error) {
	return c.sessions.Load(ctx, threadID)
}
