package integration

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/logger"
)

// OrderSyncService pulls a store's orders incrementally into local orders
// and order items.
type OrderSyncService struct {
	deps SyncDependencies
	opts walkerOptions
}

var _ Walker = (*OrderSyncService)(nil)

// NewOrderSyncService creates the order walker
func NewOrderSyncService(deps SyncDependencies, opts ...WalkerOption) *OrderSyncService {
	return &OrderSyncService{deps: deps, opts: buildWalkerOptions(opts)}
}

// Run imports every order created after the store's cursor and then stamps
// the cursor with the run's start time. Orders that fail individually are
// recorded in the report and do not stop the walk; an aborted walk leaves
// the cursor untouched.
func (s *OrderSyncService) Run(ctx context.Context, store *integration.Store) (*integration.SyncReport, error) {
	start := s.opts.clock()
	report := integration.NewSyncReport(store, integration.SyncEntityOrders, start)
	if !store.CanSyncOrders() {
		report.Skip(s.opts.clock(), integration.SkipReasonDisabled)
		return report, nil
	}

	ctx, end := startRunSpan(ctx, "sync.orders", store)
	err := s.walk(ctx, store, report)
	finishRun(ctx, report, s.opts.clock(), err)
	end(report, err)
	return report, err
}

func (s *OrderSyncService) walk(ctx context.Context, store *integration.Store, report *integration.SyncReport) error {
	settings, err := s.deps.Settings.Get(ctx, store.TenantID)
	if err != nil {
		return fmt.Errorf("load tenant settings: %w", err)
	}
	mapper := settings.StatusMapper()

	client, err := s.deps.Clients.ForStore(ctx, store)
	if err != nil {
		return err
	}

	after := store.OrderAfterDate(report.StartedAt)
	log := logger.L(ctx)
	if after != nil {
		log.Debug("Pulling orders", zap.Time("modified_after", *after))
	} else {
		log.Debug("Pulling orders without lower bound")
	}

	err = walkPages(ctx, report,
		func(ctx context.Context, page int) (*integration.Page[integration.RemoteOrder], error) {
			return client.ListOrders(ctx, integration.OrderQuery{
				ModifiedAfter: after,
				Statuses:      store.OrderStatusFilter,
				Page:          page,
				PerPage:       s.opts.pageSize,
			})
		},
		func(ctx context.Context, remote *integration.RemoteOrder) {
			created, err := s.importOrder(ctx, store, mapper, remote)
			if err != nil {
				log.Warn("Failed to import order",
					zap.String("external_id", remote.ExternalID),
					zap.Error(err),
				)
				report.RecordFailure(remote.ExternalID, err)
				return
			}
			report.RecordSuccess(created)
		},
	)
	if err != nil {
		return err
	}

	if err := s.deps.Stores.MarkSynced(ctx, store.ID, report.StartedAt); err != nil {
		return fmt.Errorf("stamp last sync: %w", err)
	}
	synced := report.StartedAt
	store.LastSyncAt = &synced
	store.NeedsReconnect = false
	return nil
}

// importOrder upserts one order and its aggregated line items. The internal
// status is only chosen on insert; the repository keeps it on update.
func (s *OrderSyncService) importOrder(
	ctx context.Context,
	store *integration.Store,
	mapper *integration.StatusMapper,
	remote *integration.RemoteOrder,
) (bool, error) {
	if remote.ExternalID == "" {
		return false, integration.ErrInvalidOrder
	}

	order := &integration.Order{
		TenantID:        store.TenantID,
		StoreID:         store.ID,
		ExternalID:      remote.ExternalID,
		OrderNumber:     remote.Number,
		ExternalStatus:  remote.Status,
		Status:          mapper.Map(remote.Status),
		CustomerName:    remote.CustomerName,
		CustomerEmail:   remote.CustomerEmail,
		ShippingAddress: remote.ShippingAddress,
		Total:           remote.Total,
		Currency:        remote.Currency,
		PlacedAt:        remote.CreatedAt,
	}
	outcome, err := s.deps.Orders.UpsertByExternalID(ctx, order)
	if err != nil {
		return false, fmt.Errorf("upsert order: %w", err)
	}

	for _, line := range aggregateLines(remote.Lines) {
		item := &integration.OrderItem{
			TenantID:          store.TenantID,
			OrderID:           outcome.ID,
			ExternalProductID: line.ExternalProductID,
			SKU:               line.SKU,
			Name:              line.Name,
			Quantity:          line.Quantity,
			Price:             line.Price,
		}
		product, err := s.deps.Products.FindByExternalID(ctx, store.ID, line.ExternalProductID)
		switch {
		case err == nil:
			item.ProductID = &product.ID
		case !errors.Is(err, integration.ErrProductNotFound):
			return false, fmt.Errorf("resolve product %s: %w", line.ExternalProductID, err)
		}
		if err := s.deps.Orders.UpsertItem(ctx, item); err != nil {
			return false, fmt.Errorf("upsert item %s: %w", line.ExternalProductID, err)
		}
	}
	return outcome.Created, nil
}

// aggregateLines merges lines of the same product, summing quantities and
// keeping first-seen order. Lines without a product reference are dropped.
func aggregateLines(lines []integration.RemoteOrderLine) []integration.RemoteOrderLine {
	merged := make([]integration.RemoteOrderLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, line := range lines {
		if line.ExternalProductID == "" {
			continue
		}
		if i, ok := index[line.ExternalProductID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ExternalProductID] = len(merged)
		merged = append(merged, line)
	}
	return merged
}
