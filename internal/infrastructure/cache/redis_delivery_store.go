package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/shared"
)

// DefaultDeliveryKeyPrefix namespaces webhook delivery ids in Redis
const DefaultDeliveryKeyPrefix = "woowms:webhook:delivery:"

// RedisDeliveryStore remembers webhook delivery ids in Redis so every
// instance behind the load balancer sees the same deliveries
type RedisDeliveryStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ shared.DeliveryStore = (*RedisDeliveryStore)(nil)

// NewRedisDeliveryStore creates a store on a shared client
func NewRedisDeliveryStore(client redis.UniversalClient, keyPrefix string) *RedisDeliveryStore {
	if keyPrefix == "" {
		keyPrefix = DefaultDeliveryKeyPrefix
	}
	return &RedisDeliveryStore{client: client, keyPrefix: keyPrefix}
}

// MarkProcessed records key with SET NX so exactly one caller wins
func (s *RedisDeliveryStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark delivery as processed: %w", err)
	}
	return ok, nil
}

// IsProcessed reports whether key is present
func (s *RedisDeliveryStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check delivery: %w", err)
	}
	return n > 0, nil
}

// Close is a no-op; the client is owned by the caller
func (s *RedisDeliveryStore) Close() error {
	return nil
}
