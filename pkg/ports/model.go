package ports

import (
	"context"

	"github.com/aretw0/agentgraph/pkg/domain"
)

// ChatModel is a language model that can optionally request tool calls.
type ChatModel interface {
	// Generate sends the message history and the tools bound to the model,
	// and returns the assistant reply.
	Generate(ctx context.Context, messages []domain.Message, tools []domain.ToolDefinition) (domain.Message, error)
}

// ChatModelFunc adapts a function to the ChatModel interface.
type ChatModelFunc func(ctx context.Context, messages []domain.Message, tools []domain.ToolDefinition) (domain.Message, error)

// Generate calls f.
func (f ChatModelFunc) Generate(ctx context.Context, messages []domain.Message, tools []domain.ToolDefinition) (domain.Message, error) {
	return f(ctx, messages, tools)
}
