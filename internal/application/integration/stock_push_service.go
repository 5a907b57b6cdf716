package integration

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/logger"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/telemetry"
)

// DefaultPushTimeout bounds one detached push
const DefaultPushTimeout = 30 * time.Second

// Push outcomes, also used as metric labels
const (
	PushOutcomePushed   = "pushed"
	PushOutcomeDisabled = "disabled"
	PushOutcomeFailed   = "failed"
)

// PushResult describes one push-back attempt
type PushResult struct {
	ProductID uuid.UUID `json:"product_id"`
	Outcome   string    `json:"outcome"`
	Quantity  int       `json:"quantity"`
}

// StockPushService writes local sellable stock back to the store
type StockPushService struct {
	products integration.ProductRepository
	stores   integration.StoreRepository
	settings integration.TenantSettingsRepository
	clients  integration.ClientProvider
	events   integration.SyncEventPublisher
	metrics  *telemetry.SyncMetrics
	timeout  time.Duration
	logger   *zap.Logger

	wg sync.WaitGroup
}

// NewStockPushService creates the push-back service. A zero timeout uses
// DefaultPushTimeout.
func NewStockPushService(
	deps SyncDependencies,
	events integration.SyncEventPublisher,
	metrics *telemetry.SyncMetrics,
	timeout time.Duration,
	log *zap.Logger,
) *StockPushService {
	if events == nil {
		events = integration.NopEventPublisher{}
	}
	if timeout <= 0 {
		timeout = DefaultPushTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StockPushService{
		products: deps.Products,
		stores:   deps.Stores,
		settings: deps.Settings,
		clients:  deps.Clients,
		events:   events,
		metrics:  metrics,
		timeout:  timeout,
		logger:   log.Named("stock_push"),
	}
}

// Push sends the product's sellable quantity to its store when push-back is
// enabled for it. The product lookup is tenant-checked. Upstream failures
// are published as stock.push.failed events and returned.
func (s *StockPushService) Push(ctx context.Context, productID uuid.UUID) (*PushResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "stock.push",
		telemetry.Attr(telemetry.SpanAttrProductID, productID.String()))
	defer span.End()

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	result := &PushResult{ProductID: product.ID, Quantity: product.SellableQuantity()}

	settings, err := s.settings.Get(ctx, product.TenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("load tenant settings: %w", err)
	}
	if !product.ShouldPushStock(settings.PushStockEnabled) {
		result.Outcome = PushOutcomeDisabled
		s.metrics.RecordStockPush(ctx, product.TenantID, result.Outcome)
		return result, nil
	}

	if err := s.send(ctx, product, result.Quantity); err != nil {
		result.Outcome = PushOutcomeFailed
		s.metrics.RecordStockPush(ctx, product.TenantID, result.Outcome)
		telemetry.RecordError(span, err)

		event := integration.NewSyncEvent(integration.EventStockPushFailed, product.TenantID, product.StoreID)
		event.Attributes = map[string]any{
			"product_id":  product.ID.String(),
			"external_id": product.ExternalID,
			"quantity":    result.Quantity,
			"error":       err.Error(),
		}
		s.events.Publish(ctx, event)
		return result, err
	}

	result.Outcome = PushOutcomePushed
	s.metrics.RecordStockPush(ctx, product.TenantID, result.Outcome)
	telemetry.SetAttributes(span, telemetry.SpanAttrQuantity, result.Quantity)
	telemetry.SetOK(span)
	logger.WithLogger(ctx, s.logger).Info("Stock pushed",
		zap.String("product_id", product.ID.String()),
		zap.String("external_id", product.ExternalID),
		zap.Int("quantity", result.Quantity),
	)
	return result, nil
}

func (s *StockPushService) send(ctx context.Context, product *integration.Product, quantity int) error {
	store, err := s.stores.FindByID(ctx, product.StoreID)
	if err != nil {
		return err
	}
	if !store.IsActive {
		return integration.ErrStoreInactive
	}
	client, err := s.clients.ForStore(ctx, store)
	if err != nil {
		return err
	}
	return client.UpdateStock(ctx, integration.StockUpdate{
		ExternalID:       product.ExternalID,
		ExternalParentID: product.ExternalParentID,
		Quantity:         quantity,
	})
}

// PushAsync runs Push detached from ctx's cancellation with its own
// timeout. Failures are logged, never returned.
func (s *StockPushService) PushAsync(ctx context.Context, productID uuid.UUID) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log := logger.WithLogger(ctx, s.logger).With(zap.String("product_id", productID.String()))
		defer func() {
			if r := recover(); r != nil {
				log.Error("Stock push panicked",
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())),
				)
			}
		}()

		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		if _, err := s.Push(pushCtx, productID); err != nil {
			log.Warn("Stock push failed", zap.Error(err))
		}
	}()
}

// Wait blocks until every detached push has finished
func (s *StockPushService) Wait() {
	s.wg.Wait()
}
