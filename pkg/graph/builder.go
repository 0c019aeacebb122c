package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Factory compiles the graph for a configuration name.
type Factory func(ctx context.Context, name string) (*Compiled, error)

// ErrUnknownGraph is returned by Lookup for names that were never built.
var ErrUnknownGraph = errors.New("graph not found")

// Builder lazily compiles and caches one graph per configuration name.
// Construction of a name happens at most once; every later Get returns the
// identical *Compiled. Failed builds are not cached.
type Builder struct {
	factory Factory

	mu     sync.Mutex
	graphs map[string]*Compiled
}

// NewBuilder creates a Builder backed by factory.
func NewBuilder(factory Factory) *Builder {
	return &Builder{
		factory: factory,
		graphs:  make(map[string]*Compiled),
	}
}

// Get returns the compiled graph for name, building it on first use.
func (b *Builder) Get(ctx context.Context, name string) (*Compiled, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if g, ok := b.graphs[name]; ok {
		return g, nil
	}

	g, err := b.factory(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("build graph %q: %w", name, err)
	}
	b.graphs[name] = g
	return g, nil
}

// Lookup returns an already built graph without building it.
func (b *Builder) Lookup(name string) (*Compiled, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	g, ok := b.graphs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGraph, name)
	}
	return g, nil
}

// BuildAll eagerly builds every named graph, stopping at the first failure.
func (b *Builder) BuildAll(ctx context.Context, names ...string) error {
	for _, name := range names {
		if _, err := b.Get(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the names of built graphs, sorted.
func (b *Builder) Names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.graphs))
	for name := range b.graphs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
