package dsl

import "github.com/aretw0/agentgraph/pkg/domain"

// NodeBuilder provides a fluent API for the transitions leaving a node.
type NodeBuilder struct {
	name     string
	builder  *Builder
	edges    []domain.EdgeSpec
	branches []domain.ConditionalEdgeSpec
}

// Name returns the node name.
func (n *NodeBuilder) Name() string {
	return n.name
}

// Go adds an unconditional transition to the target node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.edges = append(n.edges, domain.EdgeSpec{From: n.name, To: target})
	return n
}

// Branch adds a conditional transition. The condition's returned label is
// looked up in mapping.
func (n *NodeBuilder) Branch(condition string, mapping map[string]string) *NodeBuilder {
	copied := make(map[string]string, len(mapping))
	for k, v := range mapping {
		copied[k] = v
	}
	n.branches = append(n.branches, domain.ConditionalEdgeSpec{
		From:      n.name,
		Condition: condition,
		Mapping:   copied,
	})
	return n
}

// Terminal ends the turn after this node.
func (n *NodeBuilder) Terminal() *NodeBuilder {
	return n.Go(domain.End)
}

// Entry marks this node as the entry point.
func (n *NodeBuilder) Entry() *NodeBuilder {
	n.builder.Entry(n.name)
	return n
}

// Add declares another node on the same builder.
func (n *NodeBuilder) Add(name string) *NodeBuilder {
	return n.builder.Add(name)
}
