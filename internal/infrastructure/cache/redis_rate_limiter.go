package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/shared"
)

// DefaultRateKeyPrefix namespaces rate limit counters in Redis
const DefaultRateKeyPrefix = "woowms:rate:"

// windowScript increments the counter, starting the window on first use,
// and returns the count with the window's remaining milliseconds.
var windowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// RedisRateLimiter shares fixed-window counters between replicas
type RedisRateLimiter struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ shared.RateLimiter = (*RedisRateLimiter)(nil)

func NewRedisRateLimiter(client redis.UniversalClient) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, keyPrefix: DefaultRateKeyPrefix}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (shared.RateDecision, error) {
	res, err := windowScript.Run(ctx, l.client, []string{l.keyPrefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return shared.RateDecision{}, fmt.Errorf("rate limit %s: %w", key, err)
	}
	ttl := time.Duration(res[1]) * time.Millisecond
	if ttl < 0 {
		ttl = window
	}
	return decide(int(res[0]), limit, ttl), nil
}
