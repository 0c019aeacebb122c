package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/agentgraph/pkg/adapters/redis"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Checkpointer = (*redis.Store)(nil)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newMiniredis(t)
	ports.RunCheckpointerContract(t, redis.NewFromClient(client))
}

func TestRedisStore_NewFromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := redis.NewFromURL("redis://"+mr.Addr()+"/0", 5)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, 5, store.Client().Options().PoolSize)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "t1", domain.NewState("t1")))
	assert.True(t, mr.Exists(redis.DefaultPrefix+"thread:t1"))

	_, err = redis.NewFromURL("://not-a-url", 0)
	assert.Error(t, err)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newMiniredis(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	threadID := "thread-ttl"

	state := domain.NewState(threadID)
	state.Apply(domain.Update{Messages: []domain.Message{domain.UserMessage("hi")}})
	require.NoError(t, store.Save(ctx, threadID, state))

	threads, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, threads, threadID)

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, threadID)
	assert.ErrorIs(t, err, domain.ErrThreadNotFound)

	// Index pruning compares against wall-clock time, which miniredis cannot fast-forward.
	time.Sleep(1200 * time.Millisecond)

	threads, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, threads)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newMiniredis(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "my-thread", domain.NewState("my-thread")))

	assert.True(t, mr.Exists("custom:app:thread:my-thread"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:meta:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"my-thread"}, list)
}

func TestRedisStore_ReservedLookingThreadIDs(t *testing.T) {
	_, client := newMiniredis(t)
	store := redis.NewFromClient(client, redis.WithPrefix("ns:"))
	locker := redis.NewLocker(client, "ns:")
	ctx := context.Background()

	for _, id := range []string{"t1", "index", "meta:index", "lock:x", "t2"} {
		require.NoError(t, store.Save(ctx, id, domain.NewState(id)), "save %q", id)
	}

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t1", "index", "meta:index", "lock:x", "t2"}, list)

	for _, id := range []string{"t1", "index", "lock:x"} {
		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, loaded.ThreadID)
	}

	// A thread named "lock:x" must not hold thread x's lock.
	lockCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlock, err := locker.Lock(lockCtx, "x", time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}
