// Package registry holds the explicit name tables that agent configurations
// resolve against: nodes, conditions and tools.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/agentgraph/pkg/domain"
)

// Kinds of registered callables.
const (
	KindNode      = "node"
	KindCondition = "condition"
	KindTool      = "tool"
)

// NodeFunc is a processing step. It returns the partial state it contributes.
type NodeFunc func(ctx context.Context, state *domain.State, cfg domain.RunConfig) (domain.Update, error)

// ConditionFunc selects an outcome label for a conditional edge.
type ConditionFunc func(ctx context.Context, state *domain.State, cfg domain.RunConfig) (string, error)

type entry struct {
	kind      string
	node      NodeFunc
	condition ConditionFunc
}

// Registry maps symbolic names to node and condition callables.
// It is populated at startup and read concurrently afterwards.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]entry),
	}
}

// RegisterNode adds a node under name, replacing any previous registration.
func (r *Registry) RegisterNode(name string, fn NodeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = entry{kind: KindNode, node: fn}
}

// RegisterCondition adds a condition under name, replacing any previous registration.
func (r *Registry) RegisterCondition(name string, fn ConditionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = entry{kind: KindCondition, condition: fn}
}

// ResolveNode returns the node registered under name.
func (r *Registry) ResolveNode(name string) (NodeFunc, error) {
	e, err := r.lookup(name, KindNode)
	if err != nil {
		return nil, err
	}
	return e.node, nil
}

// ResolveCondition returns the condition registered under name.
func (r *Registry) ResolveCondition(name string) (ConditionFunc, error) {
	e, err := r.lookup(name, KindCondition)
	if err != nil {
		return nil, err
	}
	return e.condition, nil
}

func (r *Registry) lookup(name, kind string) (entry, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return entry{}, &domain.ResolutionError{Kind: kind, Name: name}
	}
	if e.kind != kind {
		return entry{}, &domain.BindingError{Kind: kind, Found: e.kind, Name: name}
	}
	return e, nil
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Kind returns the kind registered under name, or "" when absent.
func (r *Registry) Kind(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[name].kind
}

// String implements fmt.Stringer for debugging.
func (r *Registry) String() string {
	return fmt.Sprintf("registry%v", r.Names())
}
