package runner

import (
	"context"
	"log/slog"

	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/graph"
)

// Response is the result of one turn. Response is nil when the turn produced
// no final assistant message.
type Response struct {
	Response *string `json:"response"`
}

// Text returns the answer, or "" when there is none.
func (r Response) Text() string {
	if r.Response == nil {
		return ""
	}
	return *r.Response
}

// Runner runs turns against a compiled graph.
type Runner struct {
	graph  *graph.Compiled
	logger *slog.Logger
	prompt *string
	policy InputPolicy
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used to trace emitted snapshots.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithPrompt overrides the graph's system prompt. An empty prompt disables it.
func WithPrompt(prompt string) Option {
	return func(r *Runner) {
		r.prompt = &prompt
	}
}

// WithInputPolicy replaces the policy read from the environment at New.
func WithInputPolicy(p InputPolicy) Option {
	return func(r *Runner) {
		r.policy = p
	}
}

// New creates a Runner for g.
func New(g *graph.Compiled, opts ...Option) *Runner {
	r := &Runner{graph: g, logger: logging.NewNop(), policy: PolicyFromEnv()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Graph returns the compiled graph the runner drives.
func (r *Runner) Graph() *graph.Compiled {
	return r.graph
}

// Run executes one turn for threadID and extracts the assistant's answer.
// On the first turn of a thread the system prompt, if any, precedes the input.
func (r *Runner) Run(ctx context.Context, threadID, userInput string) (Response, error) {
	clean, err := r.policy.Clean(userInput)
	if err != nil {
		return Response{}, err
	}

	var events []*domain.State
	cfg := domain.RunConfig{ThreadID: threadID, Prompt: r.graph.Prompt()}
	if r.prompt != nil {
		cfg.Prompt = *r.prompt
	}
	input := domain.Update{Messages: []domain.Message{domain.UserMessage(clean)}}

	for state, err := range r.graph.Stream(ctx, cfg, input) {
		if err != nil {
			r.logger.Error("Turn failed", "graph", r.graph.Name(), "thread_id", threadID, "err", err)
			return Response{}, err
		}
		r.logEvent(state)
		events = append(events, state)
	}

	return Response{Response: Extract(events)}, nil
}

func (r *Runner) logEvent(state *domain.State) {
	if !r.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	last, ok := state.LastMessage()
	if !ok {
		return
	}
	attrs := []any{
		"thread_id", state.ThreadID,
		"step", state.Step,
		"role", last.Role,
	}
	if len(last.ToolCalls) > 0 {
		names := make([]string, len(last.ToolCalls))
		for i, c := range last.ToolCalls {
			names[i] = c.Name
		}
		attrs = append(attrs, "tool_calls", names)
	}
	if text := normalize(last.Content); text != "" {
		attrs = append(attrs, "content", text)
	}
	r.logger.Debug("Event", attrs...)
}
