// Package middleware decorates a ports.Checkpointer with write-side
// transformations such as encryption at rest and redaction.
package middleware

import "github.com/aretw0/agentgraph/pkg/ports"

// Middleware allows wrapping a Checkpointer to add behavior.
type Middleware func(ports.Checkpointer) ports.Checkpointer

// Chain applies the middlewares so that the first one is the outermost.
func Chain(store ports.Checkpointer, mws ...Middleware) ports.Checkpointer {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// Unwrapper is implemented by decorators that expose the store they wrap.
type Unwrapper interface {
	Unwrap() ports.Checkpointer
}

// Base returns the innermost store behind any chain of decorators.
func Base(store ports.Checkpointer) ports.Checkpointer {
	for {
		u, ok := store.(Unwrapper)
		if !ok {
			return store
		}
		store = u.Unwrap()
	}
}

// wrapped forwards Delete, List and Close to the next store.
type wrapped struct {
	next ports.Checkpointer
}

func (w wrapped) Unwrap() ports.Checkpointer { return w.next }

func (w wrapped) Close() error {
	if c, ok := w.next.(ports.Closer); ok {
		return c.Close()
	}
	return nil
}
