// Package nodes provides the built-in model, tool and routing callables of
// the react loop and registers them by name.
package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/graph"
	"github.com/aretw0/agentgraph/pkg/ports"
	"github.com/aretw0/agentgraph/pkg/registry"
)

type options struct {
	logger *slog.Logger
}

// Option configures the built-in nodes.
type Option func(*options)

// WithLogger sets the logger used by the nodes.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Register adds call_model, tool_node and should_continue to reg.
func Register(reg *registry.Registry, model ports.ChatModel, tools *registry.Tools, opts ...Option) {
	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	reg.RegisterNode(graph.NodeCallModel, CallModel(model, tools, o.logger))
	reg.RegisterNode(graph.NodeTools, ToolNode(tools, o.logger))
	reg.RegisterCondition(graph.ConditionShouldContinue, ShouldContinue)
}

// CallModel sends the accumulated history and the available tool definitions
// to the model and contributes its reply.
func CallModel(model ports.ChatModel, tools *registry.Tools, logger *slog.Logger) registry.NodeFunc {
	return func(ctx context.Context, state *domain.State, cfg domain.RunConfig) (domain.Update, error) {
		if len(state.Messages) == 0 {
			return domain.Update{}, domain.ErrNoMessages
		}

		var defs []domain.ToolDefinition
		if tools != nil {
			defs = tools.Definitions()
		}

		reply, err := model.Generate(ctx, state.Messages, defs)
		if err != nil {
			return domain.Update{}, fmt.Errorf("model call failed: %w", err)
		}
		reply.Role = domain.RoleAssistant

		logger.Debug("Model replied", "thread_id", cfg.ThreadID, "tool_calls", len(reply.ToolCalls))
		return domain.Update{Messages: []domain.Message{reply}}, nil
	}
}

// ShouldContinue routes to the tool node while the last message requests tools.
func ShouldContinue(ctx context.Context, state *domain.State, cfg domain.RunConfig) (string, error) {
	last, ok := state.LastMessage()
	if !ok {
		return "", domain.ErrNoMessages
	}
	if last.HasToolCalls() {
		return graph.OutcomeTools, nil
	}
	return graph.OutcomeEnd, nil
}

// ToolNode runs every tool call of the last assistant message, in order, and
// contributes one JSON-encoded result message per call. The first failing
// call fails the node.
func ToolNode(tools *registry.Tools, logger *slog.Logger) registry.NodeFunc {
	if tools == nil {
		tools = registry.NewTools()
	}
	return func(ctx context.Context, state *domain.State, cfg domain.RunConfig) (domain.Update, error) {
		last, ok := state.LastMessage()
		if !ok {
			return domain.Update{}, domain.ErrNoMessages
		}

		var results []domain.Message
		for _, call := range last.ToolCalls {
			content, err := invoke(ctx, tools, call, cfg, logger)
			if err != nil {
				return domain.Update{}, fmt.Errorf("tool %q failed: %w", call.Name, err)
			}
			results = append(results, domain.ToolResultMessage(call.ID, call.Name, content))
		}
		return domain.Update{Messages: results}, nil
	}
}

func invoke(ctx context.Context, tools *registry.Tools, call domain.ToolCall, cfg domain.RunConfig, logger *slog.Logger) (string, error) {
	base := func(t domain.EventType) domain.EventBase {
		return domain.EventBase{Timestamp: time.Now(), Type: t, Graph: cfg.Graph, ThreadID: cfg.ThreadID}
	}
	if cfg.Hooks.OnToolCall != nil {
		cfg.Hooks.OnToolCall(ctx, &domain.ToolEvent{
			EventBase: base(domain.EventToolCall),
			CallID:    call.ID,
			ToolName:  call.Name,
			Input:     call.Args,
		})
	}

	start := time.Now()
	result, err := tools.Execute(ctx, call.Name, call.Args)

	if cfg.Hooks.OnToolReturn != nil {
		ev := &domain.ToolEvent{
			EventBase: base(domain.EventToolReturn),
			CallID:    call.ID,
			ToolName:  call.Name,
			Output:    result,
			IsError:   err != nil,
			Duration:  time.Since(start),
		}
		if err != nil {
			ev.Output = err.Error()
		}
		cfg.Hooks.OnToolReturn(ctx, ev)
	}
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	logger.Debug("Tool returned", "thread_id", cfg.ThreadID, "tool", call.Name, "duration", time.Since(start))
	return string(data), nil
}
