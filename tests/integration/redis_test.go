package integration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/cache"
)

func TestRedisDeliveryStore(t *testing.T) {
	client := NewSharedRedis(t)
	ctx := context.Background()
	store := cache.NewRedisDeliveryStore(client, "")

	t.Run("first mark wins", func(t *testing.T) {
		first, err := store.MarkProcessed(ctx, "store-1:42", time.Minute)
		require.NoError(t, err)
		assert.True(t, first)

		again, err := store.MarkProcessed(ctx, "store-1:42", time.Minute)
		require.NoError(t, err)
		assert.False(t, again)

		seen, err := store.IsProcessed(ctx, "store-1:42")
		require.NoError(t, err)
		assert.True(t, seen)

		ttl, err := client.TTL(ctx, cache.DefaultDeliveryKeyPrefix+"store-1:42").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("unknown delivery", func(t *testing.T) {
		seen, err := store.IsProcessed(ctx, "store-1:43")
		require.NoError(t, err)
		assert.False(t, seen)
	})

	t.Run("entries expire", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "store-1:short", 100*time.Millisecond)
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			seen, err := store.IsProcessed(ctx, "store-1:short")
			return err == nil && !seen
		}, 3*time.Second, 50*time.Millisecond)
	})

	t.Run("concurrent deliveries are admitted once", func(t *testing.T) {
		var admitted atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, err := store.MarkProcessed(ctx, "store-2:1", time.Minute); err == nil && ok {
					admitted.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), admitted.Load())
	})
}

func TestRedisLocker(t *testing.T) {
	client := NewSharedRedis(t)
	ctx := context.Background()
	locker := cache.NewRedisLocker(client, zap.NewNop())

	t.Run("exclusive until released", func(t *testing.T) {
		release, ok, err := locker.TryLock(ctx, "sync:store-1:ORDERS", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		_, ok, err = locker.TryLock(ctx, "sync:store-1:ORDERS", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok, "second holder must be refused")

		other, ok, err := locker.TryLock(ctx, "sync:store-1:PRODUCTS", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "other keys are independent")
		other()

		release()
		release, ok, err = locker.TryLock(ctx, "sync:store-1:ORDERS", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
		release()
	})

	t.Run("expired holder cannot release the new holder", func(t *testing.T) {
		stale, ok, err := locker.TryLock(ctx, "sync:store-2:ORDERS", 100*time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)

		var current func()
		require.Eventually(t, func() bool {
			release, ok, err := locker.TryLock(ctx, "sync:store-2:ORDERS", time.Minute)
			if err != nil || !ok {
				return false
			}
			current = release
			return true
		}, 3*time.Second, 50*time.Millisecond)

		stale()
		_, ok, err = locker.TryLock(ctx, "sync:store-2:ORDERS", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok, "lock still belongs to the new holder")
		current()
	})

	t.Run("release survives a cancelled context", func(t *testing.T) {
		runCtx, cancel := context.WithCancel(ctx)
		release, ok, err := locker.TryLock(runCtx, "sync:store-3:ORDERS", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		cancel()
		release()

		exists, err := client.Exists(ctx, cache.DefaultLockKeyPrefix+"sync:store-3:ORDERS").Result()
		require.NoError(t, err)
		assert.Zero(t, exists)
	})
}

func TestRedisRateLimiter(t *testing.T) {
	client := NewSharedRedis(t)
	ctx := context.Background()
	limiter := cache.NewRedisRateLimiter(client)

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "tenant-1:store-1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := limiter.Allow(ctx, "tenant-1:store-1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)

	// a second replica sees the same counter
	other := cache.NewRedisRateLimiter(client)
	d, err = other.Allow(ctx, "tenant-1:store-1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	d, err = limiter.Allow(ctx, "tenant-1:store-2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	_, err = limiter.Allow(ctx, "short", 1, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		d, err := limiter.Allow(ctx, "short", 1, 100*time.Millisecond)
		return err == nil && d.Allowed
	}, 3*time.Second, 50*time.Millisecond)
}
