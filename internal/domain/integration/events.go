package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Sync event types
const (
	EventSyncCompleted     = "store.sync.completed"
	EventSyncFailed        = "store.sync.failed"
	EventReconnectRequired = "store.reconnect_required"
	EventStockPushFailed   = "stock.push.failed"
)

// SyncEvent is published for observers of sync health. Degraded syncs are
// not surfaced to webhook senders, so these events are how they get noticed.
type SyncEvent struct {
	ID         uuid.UUID      `json:"id"`
	Type       string         `json:"type"`
	TenantID   uuid.UUID      `json:"tenant_id"`
	StoreID    uuid.UUID      `json:"store_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Report     *SyncReport    `json:"report,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// NewSyncEvent creates an event for a store
func NewSyncEvent(eventType string, tenantID, storeID uuid.UUID) SyncEvent {
	return SyncEvent{
		ID:         uuid.New(),
		Type:       eventType,
		TenantID:   tenantID,
		StoreID:    storeID,
		OccurredAt: time.Now(),
	}
}

// SyncEventPublisher delivers sync events. Publishing is best-effort:
// implementations log delivery failures instead of returning them to the
// sync path.
type SyncEventPublisher interface {
	Publish(ctx context.Context, event SyncEvent)
}

// NopEventPublisher discards events
type NopEventPublisher struct{}

// Publish implements SyncEventPublisher
func (NopEventPublisher) Publish(context.Context, SyncEvent) {}
