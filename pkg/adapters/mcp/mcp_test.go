package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/agentgraph/pkg/registry"
	"github.com/mark3labs/mcp-go/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectMath(t *testing.T) *Source {
	t.Helper()
	ctx := context.Background()

	c, err := client.NewInProcessClient(NewMathServer("test"))
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))

	src, err := NewSource(ctx, "inprocess", c, "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestMathServer_ListsTools(t *testing.T) {
	src := connectMath(t)

	tools, err := src.Tools(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"add", "multiply", "subtract", "divide"}, names)

	for _, tool := range tools {
		props, ok := tool.Parameters["properties"].(map[string]any)
		require.True(t, ok, tool.Name)
		assert.Contains(t, props, "a")
		assert.Contains(t, props, "b")
	}
}

func TestMathServer_CallThroughRegistry(t *testing.T) {
	src := connectMath(t)
	reg := registry.NewTools()

	n, err := src.Register(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	tests := []struct {
		tool string
		a, b float64
		want string
	}{
		{"add", 2, 3, "5"},
		{"multiply", 4, 2.5, "10"},
		{"subtract", 1, 3, "-2"},
		{"divide", 9, 3, "3"},
		{"divide", 1, 0, "0"},
	}
	for _, tt := range tests {
		got, err := reg.Execute(context.Background(), tt.tool, map[string]any{"a": tt.a, "b": tt.b})
		require.NoError(t, err, tt.tool)
		assert.Equal(t, tt.want, got, tt.tool)
	}
}

func TestMathServer_MissingArgument(t *testing.T) {
	src := connectMath(t)
	tools, err := src.Tools(context.Background())
	require.NoError(t, err)

	var add registry.Tool
	for _, tool := range tools {
		if tool.Name == "add" {
			add = tool
		}
	}
	require.NotNil(t, add.Invoke)

	_, err = add.Invoke(context.Background(), map[string]any{"a": 1})
	assert.ErrorContains(t, err, "tool add")
}

func TestConnect_UnsupportedAddress(t *testing.T) {
	_, err := Connect(context.Background(), "ftp://example.com", "test")
	assert.ErrorContains(t, err, "unsupported address")

	_, err = Connect(context.Background(), "stdio:   ", "test")
	assert.ErrorContains(t, err, "empty stdio command")
}
