package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/pkg/domain"
)

// ToolFunction defines the signature for a tool implementation.
// It receives a context and a map of arguments, and returns a result or error.
type ToolFunction func(ctx context.Context, args map[string]any) (any, error)

// Tool is a callable exposed to the model.
type Tool struct {
	Name        string
	Description string
	// Parameters is a JSON schema object describing the arguments.
	Parameters map[string]any
	Invoke     ToolFunction
}

// Definition returns the model-facing description of the tool.
func (t Tool) Definition() domain.ToolDefinition {
	params := t.Parameters
	if params == nil {
		params = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return domain.ToolDefinition{Name: t.Name, Description: t.Description, Parameters: params}
}

// ToolsOption configures a Tools registry.
type ToolsOption func(*Tools)

// WithToolsLogger sets the logger used to report collisions and filtering.
func WithToolsLogger(logger *slog.Logger) ToolsOption {
	return func(t *Tools) {
		t.logger = logger
	}
}

// Tools manages the available tools, indexed by declared name.
type Tools struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger *slog.Logger
}

// NewTools creates a new empty tool registry.
func NewTools(opts ...ToolsOption) *Tools {
	t := &Tools{
		tools:  make(map[string]Tool),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register adds tools to the registry.
// If a tool with the same name exists, it is overwritten.
func (t *Tools) Register(tools ...Tool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tool := range tools {
		if _, exists := t.tools[tool.Name]; exists {
			t.logger.Warn("Tool registered twice, last registration wins", "tool", tool.Name)
		}
		t.tools[tool.Name] = tool
	}
}

// Lookup returns the tool registered under name.
func (t *Tools) Lookup(name string) (Tool, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tool, ok := t.tools[name]
	return tool, ok
}

// Execute looks up a tool by name and executes it.
// Returns an error wrapping domain.ErrUnknownTool if the tool is not found.
func (t *Tools) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	tool, ok := t.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTool, name)
	}
	if args == nil {
		args = map[string]any{}
	}
	return tool.Invoke(ctx, args)
}

// Names returns the registered tool names, sorted.
func (t *Tools) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.tools))
	for name := range t.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the model-facing tool descriptions, sorted by name.
func (t *Tools) Definitions() []domain.ToolDefinition {
	names := t.Names()

	t.mu.RLock()
	defer t.mu.RUnlock()
	defs := make([]domain.ToolDefinition, 0, len(names))
	for _, name := range names {
		defs = append(defs, t.tools[name].Definition())
	}
	return defs
}

// Filter returns a new registry holding only the named tools. An empty list
// keeps every tool. Names with no registered tool are logged and skipped.
func (t *Tools) Filter(names []string) *Tools {
	out := &Tools{tools: make(map[string]Tool), logger: t.logger}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(names) == 0 {
		for name, tool := range t.tools {
			out.tools[name] = tool
		}
		return out
	}
	for _, name := range names {
		tool, ok := t.tools[name]
		if !ok {
			t.logger.Warn("Configured tool is not available", "tool", name)
			continue
		}
		out.tools[name] = tool
	}
	return out
}

// Len returns the number of registered tools.
func (t *Tools) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tools)
}
