package cache

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
)

// redisTestClient connects to the Redis named by SHOP_TEST_REDIS_HOST and
// SHOP_TEST_REDIS_PORT, skipping the test when none is reachable.
func redisTestClient(t *testing.T) *redis.Client {
	t.Helper()
	host := os.Getenv("SHOP_TEST_REDIS_HOST")
	if host == "" {
		t.Skip("SHOP_TEST_REDIS_HOST not set")
	}
	port := 6379
	if p, err := strconv.Atoi(os.Getenv("SHOP_TEST_REDIS_PORT")); err == nil {
		port = p
	}
	client, err := NewRedisClient(context.Background(), RedisConfig{Host: host, Port: port})
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisIdempotencyStore(t *testing.T) {
	client := redisTestClient(t)
	store := NewRedisIdempotencyStoreWithClient(client, "test:idempotency:"+uuid.NewString()+":")
	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))

	v, reserved, err := store.Reserve(ctx, "k", "ORD-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Equal(t, "ORD-1", v)

	v, reserved, err = store.Reserve(ctx, "k", "ORD-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, "ORD-1", v)

	v, err = store.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", v)

	require.NoError(t, store.Release(ctx, "k"))
	v, err = store.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestRedisCartSnapshotRepository(t *testing.T) {
	client := redisTestClient(t)
	repo := NewRedisCartSnapshotRepository(client, "test:cart:"+uuid.NewString()+":", time.Minute)
	ctx := context.Background()

	_, err := repo.Load(ctx, cart.StorageKey)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	c := cart.New()
	require.NoError(t, c.Add(cart.Product{ID: "1", Name: "Mug", Price: "12.50"}))
	require.NoError(t, repo.Save(ctx, cart.StorageKey, cart.NewSnapshot(c)))

	snap, err := repo.Load(ctx, cart.StorageKey)
	require.NoError(t, err)
	require.Len(t, snap.State.Items, 1)
	assert.Equal(t, "12.50", snap.State.Items[0].Product.Price)

	require.NoError(t, repo.Delete(ctx, cart.StorageKey))
	_, err = repo.Load(ctx, cart.StorageKey)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestIdempotencyStoreFactory(t *testing.T) {
	unreachable := config.RedisConfig{Host: "127.0.0.1", Port: 1}
	ctx := context.Background()

	t.Run("falls back to in-memory", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(unreachable)
		store, err := f.CreateStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		_, ok := store.(*InMemoryIdempotencyStore)
		assert.True(t, ok)
	})

	t.Run("errors without fallback", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(unreachable, WithInMemoryFallback(false))
		_, err := f.CreateStore(ctx)
		assert.Error(t, err)
	})
}
