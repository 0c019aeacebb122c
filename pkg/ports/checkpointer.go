package ports

import (
	"context"

	"github.com/aretw0/agentgraph/pkg/domain"
)

// Checkpointer defines the interface for persisting thread state.
// Writes are last-writer-wins per thread ID; no cross-thread consistency is provided.
type Checkpointer interface {
	// Save persists the state for a given thread ID.
	Save(ctx context.Context, threadID string, state *domain.State) error

	// Load retrieves the state for a given thread ID.
	// Returns domain.ErrThreadNotFound if the thread does not exist.
	Load(ctx context.Context, threadID string) (*domain.State, error)

	// Delete removes the state for a given thread ID.
	Delete(ctx context.Context, threadID string) error

	// List returns the IDs of all stored threads.
	List(ctx context.Context) ([]string, error)
}

// Closer is implemented by checkpointers holding external resources.
type Closer interface {
	Close() error
}
