// Package checkpoint selects and constructs the persistence backend named in
// an agent configuration.
package checkpoint

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"sort"
	"time"

	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/pkg/adapters/file"
	"github.com/aretw0/agentgraph/pkg/adapters/memory"
	"github.com/aretw0/agentgraph/pkg/adapters/postgres"
	"github.com/aretw0/agentgraph/pkg/adapters/redis"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/persistence/middleware"
	"github.com/aretw0/agentgraph/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

// Supported checkpointer kinds.
const (
	KindInMemory = "in_memory"
	KindRedis    = "redis"
	KindFile     = "file"
	KindPostgres = "postgres"
)

// DefaultMaxConnections bounds pooled backends when kwargs do not say otherwise.
const DefaultMaxConnections = 10

// Kwargs are the backend-specific arguments found under checkpointer.kwargs.
type Kwargs struct {
	MaxConnections int           `mapstructure:"max_connections"`
	URL            string        `mapstructure:"url"`
	Prefix         string        `mapstructure:"prefix"`
	TTL            time.Duration `mapstructure:"ttl"`
	Path           string        `mapstructure:"path"`
	DSN            string        `mapstructure:"dsn"`
	Table          string        `mapstructure:"table"`

	// EncryptionKey is a base64 AES-256 key; when set snapshots are sealed.
	EncryptionKey string   `mapstructure:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys"`
	RedactKeys    []string `mapstructure:"redact_keys"`
	RedactValues  []string `mapstructure:"redact_values"`
}

type factoryOptions struct {
	logger   *slog.Logger
	redisURL string
	getenv   func(string) string
}

// Option configures New.
type Option func(*factoryOptions)

// WithLogger sets the logger used to report the selected backend.
func WithLogger(logger *slog.Logger) Option {
	return func(o *factoryOptions) {
		o.logger = logger
	}
}

// WithRedisURL sets the fallback redis URL used when kwargs omit "url".
func WithRedisURL(url string) Option {
	return func(o *factoryOptions) {
		o.redisURL = url
	}
}

// Kinds returns the supported checkpointer kinds.
func Kinds() []string {
	kinds := []string{KindInMemory, KindRedis, KindFile, KindPostgres}
	sort.Strings(kinds)
	return kinds
}

// DecodeKwargs decodes raw configuration values into Kwargs. Durations accept
// Go duration strings ("30m") or integer seconds.
func DecodeKwargs(raw map[string]any) (Kwargs, error) {
	var kw Kwargs
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &kw,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			secondsToDurationHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return kw, err
	}
	if err := decoder.Decode(raw); err != nil {
		return kw, err
	}
	return kw, nil
}

func secondsToDurationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch v := data.(type) {
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	}
	return data, nil
}

// New constructs the checkpointer named by kind. Unknown kinds yield a
// ConfigurationError wrapping domain.ErrUnknownCheckpointer.
func New(ctx context.Context, kind string, kwargs map[string]any, opts ...Option) (ports.Checkpointer, error) {
	o := factoryOptions{logger: logging.NewNop(), getenv: os.Getenv}
	for _, opt := range opts {
		opt(&o)
	}

	kw, err := DecodeKwargs(kwargs)
	if err != nil {
		return nil, &domain.ConfigurationError{Op: "checkpointer", Name: kind, Err: err}
	}
	if kw.MaxConnections <= 0 {
		kw.MaxConnections = DefaultMaxConnections
	}

	var store ports.Checkpointer
	switch kind {
	case KindInMemory:
		store = memory.NewStore()

	case KindFile:
		store = file.New(kw.Path)

	case KindRedis:
		url := kw.URL
		if url == "" {
			url = o.redisURL
		}
		if url == "" {
			url = o.getenv("REDIS_URL")
		}
		if url == "" {
			return nil, &domain.ConfigurationError{Op: "checkpointer", Name: kind, Err: fmt.Errorf("redis url is required (kwargs.url or REDIS_URL)")}
		}
		var ropts []redis.Option
		if kw.Prefix != "" {
			ropts = append(ropts, redis.WithPrefix(kw.Prefix))
		}
		if kw.TTL > 0 {
			ropts = append(ropts, redis.WithTTL(kw.TTL))
		}
		store, err = redis.NewFromURL(url, kw.MaxConnections, ropts...)
		if err != nil {
			return nil, &domain.ConfigurationError{Op: "checkpointer", Name: kind, Err: err}
		}

	case KindPostgres:
		dsn := kw.DSN
		if dsn == "" {
			dsn = kw.URL
		}
		if dsn == "" {
			return nil, &domain.ConfigurationError{Op: "checkpointer", Name: kind, Err: fmt.Errorf("postgres dsn is required")}
		}
		store, err = postgres.New(ctx, dsn, kw.MaxConnections, postgres.WithTable(kw.Table))
		if err != nil {
			return nil, &domain.ConfigurationError{Op: "checkpointer", Name: kind, Err: err}
		}

	default:
		return nil, &domain.ConfigurationError{Op: "checkpointer", Name: kind, Err: domain.ErrUnknownCheckpointer}
	}

	mws, err := middlewares(kw)
	if err != nil {
		_ = Close(store)
		return nil, &domain.ConfigurationError{Op: "checkpointer", Name: kind, Err: err}
	}
	store = middleware.Chain(store, mws...)

	o.logger.Info("Checkpointer configured", "type", kind, "max_connections", kw.MaxConnections,
		"encrypted", kw.EncryptionKey != "", "redacted", len(kw.RedactKeys)+len(kw.RedactValues) > 0)
	return store, nil
}

// middlewares builds the decorators requested by kwargs. Redaction runs
// before encryption so the sealed payload is already masked.
func middlewares(kw Kwargs) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(kw.RedactKeys) > 0 || len(kw.RedactValues) > 0 {
		mw, err := middleware.NewPII(middleware.RedactConfig{KeyPatterns: kw.RedactKeys, ValuePatterns: kw.RedactValues})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if kw.EncryptionKey != "" {
		active, err := middleware.DecodeKey(kw.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("encryption_key: %w", err)
		}
		cfg := middleware.EncryptionConfig{ActiveKey: active}
		for i, k := range kw.FallbackKeys {
			key, err := middleware.DecodeKey(k)
			if err != nil {
				return nil, fmt.Errorf("fallback_keys[%d]: %w", i, err)
			}
			cfg.FallbackKeys = append(cfg.FallbackKeys, key)
		}
		mw, err := middleware.NewEncryption(cfg)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

// Backend returns the storage adapter behind any middleware.
func Backend(store ports.Checkpointer) ports.Checkpointer {
	return middleware.Base(store)
}

// Close releases the backend's resources when it holds any.
func Close(store ports.Checkpointer) error {
	if c, ok := store.(ports.Closer); ok {
		return c.Close()
	}
	return nil
}
