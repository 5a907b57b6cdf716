package shared

import (
	"context"
	"time"
)

// DeliveryStore remembers inbound deliveries (webhook delivery ids) so a
// redelivered message is acknowledged without being processed twice.
type DeliveryStore interface {
	// MarkProcessed records the key with a TTL.
	// Returns true if the key was newly recorded, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks whether the key is present and not expired
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close releases resources
	Close() error
}

// DeliveryDedupConfig holds configuration for delivery deduplication
type DeliveryDedupConfig struct {
	// TTL is how long a delivery id is remembered. Default: 24 hours
	TTL time.Duration
	// Enabled turns deduplication on. Default: true
	Enabled bool
}

// DefaultDeliveryDedupConfig returns the default deduplication configuration
func DefaultDeliveryDedupConfig() DeliveryDedupConfig {
	return DeliveryDedupConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
