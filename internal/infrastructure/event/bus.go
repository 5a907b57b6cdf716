// Package event delivers sync events to in-process handlers and to Kafka.
package event

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
)

// Handler consumes one sync event
type Handler func(ctx context.Context, event integration.SyncEvent) error

// Bus dispatches sync events to in-process handlers synchronously. A
// failing or panicking handler is logged and does not affect the others.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wildcard []Handler
	logger   *zap.Logger
}

var _ integration.SyncEventPublisher = (*Bus)(nil)

// NewBus creates an empty bus
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers h for the given event types, or for all events when
// none are given
func (b *Bus) Subscribe(h Handler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(eventTypes) == 0 {
		b.wildcard = append(b.wildcard, h)
		return
	}
	for _, t := range eventTypes {
		b.handlers[t] = append(b.handlers[t], h)
	}
}

// Publish implements integration.SyncEventPublisher
func (b *Bus) Publish(ctx context.Context, event integration.SyncEvent) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[event.Type])+len(b.wildcard))
	handlers = append(handlers, b.handlers[event.Type]...)
	handlers = append(handlers, b.wildcard...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := b.dispatch(ctx, h, event); err != nil {
			b.logger.Error("Sync event handler failed",
				zap.String("event_type", event.Type),
				zap.String("event_id", event.ID.String()),
				zap.String("store_id", event.StoreID.String()),
				zap.Error(err),
			)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, h Handler, event integration.SyncEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h(ctx, event)
}

// Fanout publishes each event to every publisher in order
type Fanout []integration.SyncEventPublisher

// Publish implements integration.SyncEventPublisher
func (f Fanout) Publish(ctx context.Context, event integration.SyncEvent) {
	for _, p := range f {
		if p != nil {
			p.Publish(ctx, event)
		}
	}
}

// LogHandler writes every event to the log. Failures are warnings, the
// rest is info.
func LogHandler(logger *zap.Logger) Handler {
	return func(_ context.Context, e integration.SyncEvent) error {
		fields := []zap.Field{
			zap.String("event_type", e.Type),
			zap.String("tenant_id", e.TenantID.String()),
			zap.String("store_id", e.StoreID.String()),
		}
		if e.Report != nil {
			fields = append(fields,
				zap.String("entity", e.Report.Entity.String()),
				zap.String("status", e.Report.Status.String()),
				zap.Int("processed", e.Report.Processed),
				zap.Int("failed", e.Report.Failed),
			)
		}
		for k, v := range e.Attributes {
			fields = append(fields, zap.Any(k, v))
		}

		switch e.Type {
		case integration.EventSyncCompleted:
			logger.Info("Sync event", fields...)
		default:
			logger.Warn("Sync event", fields...)
		}
		return nil
	}
}
