package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/agentgraph/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces checkpoint keys.
const DefaultPrefix = "agentgraph:checkpoint:"

// Key kinds under the prefix. Thread IDs are caller-controlled, so each kind
// lives in its own namespace and no thread ID can address another kind.
const (
	threadNamespace = "thread:"
	lockNamespace   = "lock:"
	indexKeySuffix  = "meta:index"
)

// Store implements ports.Checkpointer using Redis.
//
// Every operation checks a dedicated connection out of the client pool and
// returns it when done, so concurrent threads never share a connection.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for checkpoints.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for checkpoints.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// NewFromURL creates a store from a redis:// URL. A positive maxConnections
// bounds the connection pool.
func NewFromURL(rawURL string, maxConnections int, opts ...Option) (*Store, error) {
	options, err := backend.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if maxConnections > 0 {
		options.PoolSize = maxConnections
	}
	return NewFromClient(backend.NewClient(options), opts...), nil
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client so a Locker can share the pool.
func (s *Store) Client() *backend.Client {
	return s.client
}

// Prefix returns the key prefix.
func (s *Store) Prefix() string {
	return s.prefix
}

func (s *Store) key(threadID string) string {
	return s.prefix + threadNamespace + threadID
}

func (s *Store) indexKey() string {
	return s.prefix + indexKeySuffix
}

// Save persists the state to Redis.
func (s *Store) Save(ctx context.Context, threadID string, state *domain.State) error {
	snapshot := state.Clone()
	snapshot.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Index score is the expiry time; without a TTL entries never expire.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}

	conn := s.client.Conn()
	defer conn.Close()

	_, err = conn.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, s.key(threadID), data, s.ttl)
		pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: threadID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the state from Redis.
func (s *Store) Load(ctx context.Context, threadID string) (*domain.State, error) {
	conn := s.client.Conn()
	defer conn.Close()

	val, err := conn.Get(ctx, s.key(threadID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrThreadNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal(val, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// Delete removes the checkpoint and its index entry.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	conn := s.client.Conn()
	defer conn.Close()

	_, err := conn.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Del(ctx, s.key(threadID))
		pipe.ZRem(ctx, s.indexKey(), threadID)
		return nil
	})
	return err
}

// List returns live threads, lazily pruning expired index entries first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	conn := s.client.Conn()
	defer conn.Close()

	now := float64(time.Now().Unix())
	if err := conn.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired checkpoints: %w", err)
	}

	threads, err := conn.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	return threads, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
