package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/shared"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/config"
)

// Backends bundles the dedup store, lock and rate limiter used by the sync
// engine. Redis is nil when the process runs without Redis.
type Backends struct {
	Deliveries shared.DeliveryStore
	Locker     shared.Locker
	Limiter    shared.RateLimiter
	Redis      *redis.Client
}

// Close releases the dedup store and the Redis client
func (b *Backends) Close() error {
	if b.Deliveries != nil {
		_ = b.Deliveries.Close()
	}
	if b.Redis != nil {
		return b.Redis.Close()
	}
	return nil
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// process-local backends instead of failing startup. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// Factory creates the dedup and lock backends based on configuration
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// InMemory returns process-local backends
func (f *Factory) InMemory() *Backends {
	return &Backends{
		Deliveries: NewInMemoryDeliveryStore(),
		Locker:     NewInMemoryLocker(),
		Limiter:    NewInMemoryRateLimiter(),
	}
}

// Create returns Redis-backed backends when Redis is configured and
// reachable. Without Redis, deliveries are deduplicated per instance and
// the in-process single-flight guard is the only sync lock.
func (f *Factory) Create(ctx context.Context) (*Backends, error) {
	if !f.redisConfig.Enabled() {
		f.logger.Info("Redis not configured, using in-memory delivery store")
		return f.InMemory(), nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory delivery store. "+
			"Webhook redeliveries are only deduplicated per instance.",
			zap.String("addr", f.redisConfig.Addr()),
			zap.Error(err),
		)
		return f.InMemory(), nil
	}

	f.logger.Info("Using Redis for delivery dedup and sync locks", zap.String("addr", f.redisConfig.Addr()))
	return &Backends{
		Deliveries: NewRedisDeliveryStore(client, ""),
		Locker:     NewRedisLocker(client, f.logger),
		Limiter:    NewRedisRateLimiter(client),
		Redis:      client,
	}, nil
}
