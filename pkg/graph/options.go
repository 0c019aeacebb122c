package graph

import (
	"log/slog"
	"time"

	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/ports"
)

type options struct {
	name    string
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	locker  ports.DistributedLocker
	lockTTL time.Duration
}

// Option configures Compile.
type Option func(*options)

// WithName labels the compiled graph in logs, events and metrics.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls merge.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *options) {
		o.hooks = domain.MergeHooks(o.hooks, hooks)
	}
}

// WithLocker serialises turns across replicas in addition to the in-process lock.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(o *options) {
		o.locker = locker
		o.lockTTL = ttl
	}
}
