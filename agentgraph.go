package agentgraph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/pkg/adapters/mcp"
	"github.com/aretw0/agentgraph/pkg/adapters/redis"
	"github.com/aretw0/agentgraph/pkg/checkpoint"
	"github.com/aretw0/agentgraph/pkg/config"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/graph"
	"github.com/aretw0/agentgraph/pkg/nodes"
	"github.com/aretw0/agentgraph/pkg/ports"
	"github.com/aretw0/agentgraph/pkg/registry"
	"github.com/aretw0/agentgraph/pkg/runner"
	"github.com/aretw0/agentgraph/pkg/session"
	"github.com/aretw0/agentgraph/pkg/tools"
)

// ToolSource loads the tools of a remote server. The returned closer is
// released by Service.Close.
type ToolSource func(ctx context.Context, addr string) ([]registry.Tool, io.Closer, error)

// Service owns one compiled graph per agent configuration and runs chat turns.
type Service struct {
	agents  *config.Agents
	model   ports.ChatModel
	builder *graph.Builder

	tools      []registry.Tool
	toolSource ToolSource
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	redisURL   string
	distLock   bool
	lockTTL    time.Duration

	mu      sync.Mutex
	runners map[string]*runner.Runner
	closers []io.Closer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithLifecycleHooks registers observability hooks on every graph. Repeated calls merge.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) { s.hooks = domain.MergeHooks(s.hooks, hooks) }
}

// WithTools replaces the built-in tools available to every configuration.
func WithTools(t ...registry.Tool) Option {
	return func(s *Service) { s.tools = t }
}

// WithToolSource replaces how mcp_servers entries are loaded.
func WithToolSource(src ToolSource) Option {
	return func(s *Service) { s.toolSource = src }
}

// WithRedisURL is the fallback URL for redis checkpointers without kwargs.url.
func WithRedisURL(url string) Option {
	return func(s *Service) { s.redisURL = url }
}

// WithDistributedLock serialises turns of a thread across replicas when the
// checkpointer is redis. A zero ttl uses session.DefaultLockTTL.
func WithDistributedLock(ttl time.Duration) Option {
	return func(s *Service) {
		s.distLock = true
		s.lockTTL = ttl
	}
}

// New creates a Service. Graphs are compiled lazily; call Build to compile
// every configuration up front.
func New(agents *config.Agents, model ports.ChatModel, opts ...Option) (*Service, error) {
	if agents == nil {
		return nil, errors.New("agent configs are required")
	}
	if model == nil {
		return nil, errors.New("chat model is required")
	}
	s := &Service{
		agents:  agents,
		model:   model,
		tools:   tools.Builtins(),
		logger:  logging.NewNop(),
		runners: make(map[string]*runner.Runner),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.toolSource == nil {
		s.toolSource = s.connectMCP
	}
	s.builder = graph.NewBuilder(s.compile)
	return s, nil
}

// Build compiles every configuration, stopping at the first failure.
func (s *Service) Build(ctx context.Context) error {
	return s.builder.BuildAll(ctx, s.agents.Names()...)
}

// Graph returns the compiled graph of a configuration.
func (s *Service) Graph(ctx context.Context, name string) (*graph.Compiled, error) {
	if !s.HasConfig(name) {
		return nil, fmt.Errorf("%w: %s", graph.ErrUnknownGraph, name)
	}
	return s.builder.Get(ctx, name)
}

// Runner returns the turn runner of a configuration.
func (s *Service) Runner(ctx context.Context, name string) (*runner.Runner, error) {
	g, err := s.Graph(ctx, name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runners[name]
	if !ok {
		r = runner.New(g, runner.WithLogger(s.logger.With("graph", name)))
		s.runners[name] = r
	}
	return r, nil
}

// Chat runs one turn of threadID against configName.
func (s *Service) Chat(ctx context.Context, configName, threadID, userInput string) (runner.Response, error) {
	r, err := s.Runner(ctx, configName)
	if err != nil {
		return runner.Response{}, err
	}
	return r.Run(ctx, threadID, userInput)
}

// HasConfig reports whether a configuration named name was loaded.
func (s *Service) HasConfig(name string) bool {
	_, ok := s.agents.Spec(name)
	return ok
}

// PrimaryConfig returns the configuration served by default.
func (s *Service) PrimaryConfig() string {
	return s.agents.Primary
}

// Configs returns every configuration name, sorted.
func (s *Service) Configs() []string {
	return s.agents.Names()
}

// Close releases checkpointers and tool server connections.
func (s *Service) Close() error {
	s.mu.Lock()
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) track(c io.Closer) {
	s.mu.Lock()
	s.closers = append(s.closers, c)
	s.mu.Unlock()
}

func (s *Service) compile(ctx context.Context, name string) (_ *graph.Compiled, err error) {
	raw, _ := s.agents.Spec(name)
	spec := graph.Expand(raw)
	logger := s.logger.With("graph", name)

	// Connections opened for this build are handed to the Service only once
	// the graph compiles; a failed build releases them here.
	var opened []io.Closer
	defer func() {
		if err != nil {
			for i := len(opened) - 1; i >= 0; i-- {
				if cerr := opened[i].Close(); cerr != nil {
					logger.Warn("Failed to release connection of a failed build", "err", cerr)
				}
			}
			return
		}
		for _, c := range opened {
			s.track(c)
		}
	}()

	available := registry.NewTools(registry.WithToolsLogger(logger))
	available.Register(s.tools...)
	for _, addr := range spec.MCPServers {
		remote, closer, err := s.toolSource(ctx, addr)
		if err != nil {
			return nil, &domain.ConfigurationError{Op: "mcp_servers", Name: addr, Err: err}
		}
		if closer != nil {
			opened = append(opened, closer)
		}
		available.Register(remote...)
	}
	bound := available.Filter(spec.ToolNames())
	logger.Info("Tools bound", "tools", bound.Names())

	reg := registry.NewRegistry()
	nodes.Register(reg, s.model, bound, nodes.WithLogger(logger))

	kind := spec.Checkpointer.Type
	if kind == "" {
		kind = checkpoint.KindInMemory
	}
	store, err := checkpoint.New(ctx, kind, spec.Checkpointer.Kwargs,
		checkpoint.WithLogger(logger),
		checkpoint.WithRedisURL(s.redisURL),
	)
	if err != nil {
		return nil, err
	}

	opts := []graph.Option{
		graph.WithName(name),
		graph.WithLogger(s.logger),
		graph.WithLifecycleHooks(s.hooks),
	}
	if rs, ok := checkpoint.Backend(store).(*redis.Store); ok && s.distLock {
		ttl := s.lockTTL
		if ttl <= 0 {
			ttl = session.DefaultLockTTL
		}
		opts = append(opts, graph.WithLocker(redis.NewLocker(rs.Client(), rs.Prefix()), ttl))
	}

	g, err := graph.Compile(spec, reg, store, opts...)
	if err != nil {
		_ = checkpoint.Close(store)
		return nil, err
	}
	if c, ok := store.(ports.Closer); ok {
		opened = append(opened, c)
	}
	return g, nil
}

func (s *Service) connectMCP(ctx context.Context, addr string) ([]registry.Tool, io.Closer, error) {
	src, err := mcp.Connect(ctx, addr, strings.TrimSpace(Version), mcp.WithLogger(s.logger))
	if err != nil {
		return nil, nil, err
	}
	remote, err := src.Tools(ctx)
	if err != nil {
		_ = src.Close()
		return nil, nil, err
	}
	return remote, src, nil
}
