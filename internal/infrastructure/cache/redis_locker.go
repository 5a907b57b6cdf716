package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/shared"
)

// DefaultLockKeyPrefix namespaces sync locks in Redis
const DefaultLockKeyPrefix = "woowms:lock:"

// releaseScript deletes the lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a single-node Redis lock. Each hold stores a random token
// so an expired holder cannot release a lock someone else re-acquired.
type RedisLocker struct {
	client    redis.UniversalClient
	keyPrefix string
	logger    *zap.Logger
}

var _ shared.Locker = (*RedisLocker)(nil)

// NewRedisLocker creates a locker on a shared client
func NewRedisLocker(client redis.UniversalClient, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{client: client, keyPrefix: DefaultLockKeyPrefix, logger: logger}
}

// TryLock implements shared.Locker
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	fullKey := l.keyPrefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// the caller's ctx may already be cancelled when the run ends
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{fullKey}, token).Err(); err != nil {
			l.logger.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}
	return release, true, nil
}
