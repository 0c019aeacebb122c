package graph

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/session"
)

// errStopped signals that the consumer stopped iterating.
var errStopped = errors.New("stream consumer stopped")

// Stream runs one turn on cfg.ThreadID and yields the full accumulated state
// after the input is applied and after every node. The sequence ends after the
// snapshot at END, or with a single non-nil error.
//
// Breaking out of the loop abandons the turn; its last checkpoint remains and
// a retry with the same input resumes from there.
func (c *Compiled) Stream(ctx context.Context, cfg domain.RunConfig, input domain.Update) iter.Seq2[*domain.State, error] {
	return func(yield func(*domain.State, error) bool) {
		if cfg.ThreadID == "" {
			yield(nil, &domain.ExecutionError{Err: errors.New("thread id is required")})
			return
		}

		err := c.sessions.WithLock(ctx, cfg.ThreadID, func(ctx context.Context) error {
			return c.turn(ctx, cfg, input, yield)
		})
		if err != nil && !errors.Is(err, errStopped) {
			var execErr *domain.ExecutionError
			if !errors.As(err, &execErr) {
				err = &domain.ExecutionError{ThreadID: cfg.ThreadID, Err: err}
			}
			yield(nil, err)
		}
	}
}

// Invoke runs one turn to completion and returns every emitted snapshot.
// On failure it returns the snapshots emitted so far alongside the error.
func (c *Compiled) Invoke(ctx context.Context, cfg domain.RunConfig, input domain.Update) ([]*domain.State, error) {
	var events []*domain.State
	for state, err := range c.Stream(ctx, cfg, input) {
		if err != nil {
			return events, err
		}
		events = append(events, state)
	}
	return events, nil
}

func (c *Compiled) turn(ctx context.Context, cfg domain.RunConfig, input domain.Update, yield func(*domain.State, error) bool) (err error) {
	start := time.Now()
	store := c.sessions.Store()
	logger := c.logger.With("thread_id", cfg.ThreadID)

	limit := c.limit
	if cfg.RecursionLimit > 0 {
		limit = cfg.RecursionLimit
	}
	cfg.Graph = c.name
	cfg.Hooks = c.hooks

	state, err := session.LoadOrCreate(ctx, store, cfg.ThreadID)
	if err != nil {
		return &domain.ExecutionError{ThreadID: cfg.ThreadID, Err: err}
	}

	defer func() {
		if c.hooks.OnTurnEnd == nil {
			return
		}
		turnErr := err
		if errors.Is(turnErr, errStopped) {
			turnErr = nil
		}
		c.hooks.OnTurnEnd(ctx, &domain.TurnEvent{
			EventBase: c.event(domain.EventTurnEnd, cfg.ThreadID),
			Steps:     state.Step,
			Duration:  time.Since(start),
			Err:       turnErr,
		})
	}()

	key := inputKey(input)
	if state.Status == domain.StatusRunning && state.Next != "" && state.PendingInput == key && c.HasNode(state.Next) {
		logger.Info("Resuming unfinished turn", "next", state.Next, "step", state.Step)
	} else {
		if state.Status == domain.StatusRunning {
			logger.Warn("Discarding unfinished turn", "next", state.Next, "step", state.Step)
		}
		if cfg.Prompt != "" && len(state.Messages) == 0 {
			state.Apply(domain.Update{Messages: []domain.Message{domain.SystemMessage(cfg.Prompt)}})
		}
		state.Apply(input)
		state.Status = domain.StatusRunning
		state.Next = c.entry
		state.PendingInput = key
		state.Step = 0

		if err := c.checkpoint(ctx, state, yield); err != nil {
			return err
		}
	}

	for state.Status == domain.StatusRunning {
		if err := ctx.Err(); err != nil {
			return &domain.ExecutionError{ThreadID: cfg.ThreadID, Node: state.Next, Err: err}
		}
		node := state.Next
		if state.Step >= limit {
			return &domain.ExecutionError{
				ThreadID: cfg.ThreadID,
				Node:     node,
				Err:      fmt.Errorf("%w (limit %d)", domain.ErrRecursionLimit, limit),
			}
		}

		update, err := c.runNode(ctx, node, state, cfg)
		if err != nil {
			return &domain.ExecutionError{ThreadID: cfg.ThreadID, Node: node, Err: err}
		}
		state.Apply(update)
		state.Step++

		next, err := c.route(ctx, node, state, cfg)
		if err != nil {
			return &domain.ExecutionError{ThreadID: cfg.ThreadID, Node: node, Err: err}
		}
		logger.Debug("Transition", "from", node, "to", next, "step", state.Step)

		if next == domain.End {
			state.Status = domain.StatusIdle
			state.Next = ""
			state.PendingInput = ""
		} else {
			state.Next = next
		}

		if err := c.checkpoint(ctx, state, yield); err != nil {
			return err
		}
	}

	logger.Debug("Turn finished", "steps", state.Step, "duration", time.Since(start))
	return nil
}

func (c *Compiled) runNode(ctx context.Context, node string, state *domain.State, cfg domain.RunConfig) (update domain.Update, err error) {
	if c.hooks.OnNodeEnter != nil {
		c.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
			EventBase: c.event(domain.EventNodeEnter, cfg.ThreadID),
			NodeID:    node,
			Step:      state.Step,
		})
	}

	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("node panicked: %v", r)
		}
		if c.hooks.OnNodeLeave != nil {
			c.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
				EventBase: c.event(domain.EventNodeLeave, cfg.ThreadID),
				NodeID:    node,
				Step:      state.Step,
				Duration:  time.Since(started),
				Err:       err,
			})
		}
	}()

	// Nodes get a private copy so they can only contribute through the update.
	return c.nodes[node](ctx, state.Clone(), cfg)
}

func (c *Compiled) route(ctx context.Context, node string, state *domain.State, cfg domain.RunConfig) (string, error) {
	if to, ok := c.edges[node]; ok {
		return to, nil
	}

	b := c.branch[node]
	label, err := b.fn(ctx, state.Clone(), cfg)
	if err != nil {
		return "", fmt.Errorf("condition %q: %w", b.condition, err)
	}
	to, ok := b.mapping[label]
	if !ok {
		known := make([]string, 0, len(b.mapping))
		for l := range b.mapping {
			known = append(known, l)
		}
		slices.Sort(known)
		return "", fmt.Errorf("%w: condition %q returned %q (mapped: %s)", domain.ErrUnmappedOutcome, b.condition, label, strings.Join(known, ", "))
	}
	return to, nil
}

// checkpoint persists the state and then emits it.
func (c *Compiled) checkpoint(ctx context.Context, state *domain.State, yield func(*domain.State, error) bool) error {
	if err := c.sessions.Store().Save(ctx, state.ThreadID, state); err != nil {
		return &domain.ExecutionError{ThreadID: state.ThreadID, Node: state.Next, Err: fmt.Errorf("checkpoint: %w", err)}
	}

	snapshot := state.Clone()
	if c.hooks.OnSnapshot != nil {
		c.hooks.OnSnapshot(ctx, snapshot.Clone())
	}
	if !yield(snapshot, nil) {
		return errStopped
	}
	return nil
}

func (c *Compiled) event(t domain.EventType, threadID string) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now(),
		Type:      t,
		Graph:     c.name,
		ThreadID:  threadID,
	}
}

// inputKey identifies a turn's input so a retry can be told apart from a new turn.
func inputKey(u domain.Update) string {
	var parts []string
	for _, m := range u.Messages {
		if m.Role == domain.RoleUser {
			parts = append(parts, m.Text())
		}
	}
	return strings.Join(parts, "\n")
}
