package graph_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aretw0/agentgraph/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_ReturnsIdenticalGraph(t *testing.T) {
	var builds atomic.Int32
	b := graph.NewBuilder(func(ctx context.Context, name string) (*graph.Compiled, error) {
		builds.Add(1)
		return graph.Compile(linearSpec(), testRegistry(), nil, graph.WithName(name))
	})

	ctx := context.Background()
	var wg sync.WaitGroup
	results := make([]*graph.Compiled, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g, err := b.Get(ctx, "primary")
			assert.NoError(t, err)
			results[i] = g
		}(i)
	}
	wg.Wait()

	for _, g := range results {
		assert.Same(t, results[0], g)
	}
	assert.EqualValues(t, 1, builds.Load())

	other, err := b.Get(ctx, "secondary")
	require.NoError(t, err)
	assert.NotSame(t, results[0], other)
	assert.Equal(t, []string{"primary", "secondary"}, b.Names())
}

func TestBuilder_FailuresAreNotCached(t *testing.T) {
	fail := true
	b := graph.NewBuilder(func(ctx context.Context, name string) (*graph.Compiled, error) {
		if fail {
			return nil, errors.New("config missing")
		}
		return graph.Compile(linearSpec(), testRegistry(), nil)
	})

	_, err := b.Get(context.Background(), "primary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary")

	fail = false
	g, err := b.Get(context.Background(), "primary")
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestBuilder_LookupAndBuildAll(t *testing.T) {
	b := graph.NewBuilder(func(ctx context.Context, name string) (*graph.Compiled, error) {
		return graph.Compile(linearSpec(), testRegistry(), nil, graph.WithName(name))
	})

	_, err := b.Lookup("primary")
	assert.ErrorIs(t, err, graph.ErrUnknownGraph)

	require.NoError(t, b.BuildAll(context.Background(), "primary", "math"))

	g, err := b.Lookup("math")
	require.NoError(t, err)
	assert.Equal(t, "math", g.Name())
}
