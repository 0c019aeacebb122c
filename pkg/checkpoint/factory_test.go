package checkpoint_test

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/agentgraph/pkg/adapters/file"
	"github.com/aretw0/agentgraph/pkg/adapters/memory"
	"github.com/aretw0/agentgraph/pkg/adapters/redis"
	"github.com/aretw0/agentgraph/pkg/checkpoint"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InMemory(t *testing.T) {
	store, err := checkpoint.New(context.Background(), "in_memory", nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)
}

func TestNew_File(t *testing.T) {
	dir := t.TempDir()
	store, err := checkpoint.New(context.Background(), "file", map[string]any{"path": dir})
	require.NoError(t, err)
	require.IsType(t, &file.Store{}, store)
	assert.Equal(t, dir, store.(*file.Store).BasePath)
}

func TestNew_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := checkpoint.New(context.Background(), "redis", map[string]any{
		"max_connections": 3,
		"prefix":          "test:",
		"ttl":             "1h",
	}, checkpoint.WithRedisURL("redis://"+mr.Addr()))
	require.NoError(t, err)
	defer checkpoint.Close(store)

	rs, ok := store.(*redis.Store)
	require.True(t, ok)
	assert.Equal(t, 3, rs.Client().Options().PoolSize)

	require.NoError(t, store.Save(context.Background(), "t1", domain.NewState("t1")))
	assert.True(t, mr.Exists("test:thread:t1"))
	assert.Greater(t, mr.TTL("test:thread:t1"), 59*time.Minute)
}

func TestNew_RedisDefaultPoolSize(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := checkpoint.New(context.Background(), "redis", map[string]any{"url": "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer checkpoint.Close(store)

	assert.Equal(t, checkpoint.DefaultMaxConnections, store.(*redis.Store).Client().Options().PoolSize)
}

func TestNew_RedisWithoutURL(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	_, err := checkpoint.New(context.Background(), "redis", nil)
	require.Error(t, err)
	assert.True(t, domain.IsConfigurationError(err))
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := checkpoint.New(context.Background(), "memcached", map[string]any{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownCheckpointer)
	assert.True(t, domain.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "memcached")
}

func TestDecodeKwargs(t *testing.T) {
	kw, err := checkpoint.DecodeKwargs(map[string]any{
		"max_connections": "20",
		"ttl":             90,
		"dsn":             "postgres://localhost/db",
		"ignored":         true,
	})
	require.NoError(t, err)
	assert.Equal(t, 20, kw.MaxConnections)
	assert.Equal(t, 90*time.Second, kw.TTL)
	assert.Equal(t, "postgres://localhost/db", kw.DSN)

	_, err = checkpoint.DecodeKwargs(map[string]any{"max_connections": "many"})
	assert.Error(t, err)
}

func TestKinds(t *testing.T) {
	assert.Equal(t, []string{"file", "in_memory", "postgres", "redis"}, checkpoint.Kinds())
}

func TestNew_EncryptedAndRedacted(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	ctx := context.Background()
	store, err := checkpoint.New(ctx, "in_memory", map[string]any{
		"encryption_key": key,
		"redact_values":  []any{"hunter2"},
	})
	require.NoError(t, err)

	backend, ok := checkpoint.Backend(store).(*memory.Store)
	require.True(t, ok, "backend should be the memory store")

	state := domain.NewState("t")
	state.Apply(domain.Update{Messages: []domain.Message{domain.UserMessage("pw is hunter2")}})
	require.NoError(t, store.Save(ctx, "t", state))

	raw, err := backend.Load(ctx, "t")
	require.NoError(t, err)
	require.Len(t, raw.Messages, 1)
	assert.NotContains(t, raw.Messages[0].Text(), "hunter2")

	loaded, err := store.Load(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "pw is ***", loaded.Messages[0].Text())
}

func TestNew_BadEncryptionKey(t *testing.T) {
	_, err := checkpoint.New(context.Background(), "in_memory", map[string]any{"encryption_key": "c2hvcnQ="})
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "encryption_key")
}
