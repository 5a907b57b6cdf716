package integration

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/logger"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence/tenant"
)

// Encrypter protects a credential before it is stored
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// StoreSyncRunner runs both walkers for one store and returns their reports
type StoreSyncRunner interface {
	SyncStoreReports(ctx context.Context, store *integration.Store, trigger integration.SyncTrigger) ([]*integration.SyncReport, error)
}

// StoreService manages store connections and the manual sync trigger.
// Every operation is scoped to the tenant carried by ctx.
type StoreService struct {
	stores    integration.StoreRepository
	encrypter Encrypter
	clients   integration.ClientProvider
	syncer    StoreSyncRunner
	logger    *zap.Logger
}

// NewStoreService creates a StoreService
func NewStoreService(
	stores integration.StoreRepository,
	encrypter Encrypter,
	clients integration.ClientProvider,
	syncer StoreSyncRunner,
	log *zap.Logger,
) *StoreService {
	if log == nil {
		log = zap.NewNop()
	}
	return &StoreService{
		stores:    stores,
		encrypter: encrypter,
		clients:   clients,
		syncer:    syncer,
		logger:    log.Named("store"),
	}
}

// CreateStore connects a store for the caller's tenant
func (s *StoreService) CreateStore(ctx context.Context, req CreateStoreRequest) (*StoreResponse, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	store, err := integration.NewStore(tenantID, req.Name, req.BaseURL)
	if err != nil {
		return nil, err
	}
	if err := s.setCredentials(store, req.ConsumerKey, req.ConsumerSecret, req.WebhookSecret); err != nil {
		return nil, err
	}
	if err := applySyncOptions(store, req.StoreSyncOptions); err != nil {
		return nil, err
	}

	if err := s.stores.Create(ctx, store); err != nil {
		return nil, err
	}
	logger.WithLogger(ctx, s.logger).Info("Store connected",
		zap.String("store_id", store.ID.String()),
		zap.String("base_url", store.BaseURL),
	)
	return ToStoreResponse(store), nil
}

// GetStore returns a store of the caller's tenant
func (s *StoreService) GetStore(ctx context.Context, id uuid.UUID) (*StoreResponse, error) {
	store, err := s.stores.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToStoreResponse(store), nil
}

// UpdateStore changes the store's name and sync settings
func (s *StoreService) UpdateStore(ctx context.Context, id uuid.UUID, req UpdateStoreRequest) (*StoreResponse, error) {
	store, err := s.stores.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		store.Name = strings.TrimSpace(*req.Name)
	}
	if err := applySyncOptions(store, req.StoreSyncOptions); err != nil {
		return nil, err
	}
	if err := s.stores.Update(ctx, store); err != nil {
		return nil, err
	}
	return ToStoreResponse(store), nil
}

// RotateCredentials replaces the API credentials, drops the cached client
// and clears the reconnect flag
func (s *StoreService) RotateCredentials(ctx context.Context, id uuid.UUID, req RotateCredentialsRequest) (*StoreResponse, error) {
	store, err := s.stores.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.setCredentials(store, req.ConsumerKey, req.ConsumerSecret, req.WebhookSecret); err != nil {
		return nil, err
	}
	store.NeedsReconnect = false

	if err := s.stores.Update(ctx, store); err != nil {
		return nil, err
	}
	s.clients.Invalidate(store.ID)

	logger.WithLogger(ctx, s.logger).Info("Store credentials rotated",
		zap.String("store_id", store.ID.String()))
	return ToStoreResponse(store), nil
}

// DeactivateStore soft-disconnects the store and drops its cached client
func (s *StoreService) DeactivateStore(ctx context.Context, id uuid.UUID) error {
	store, err := s.stores.FindByID(ctx, id)
	if err != nil {
		return err
	}
	store.Deactivate()
	if err := s.stores.Update(ctx, store); err != nil {
		return err
	}
	s.clients.Invalidate(store.ID)

	logger.WithLogger(ctx, s.logger).Info("Store deactivated",
		zap.String("store_id", store.ID.String()))
	return nil
}

// TriggerSync runs orders then products right away, regardless of the
// store's interval. The response carries the reports produced before any
// abort.
func (s *StoreService) TriggerSync(ctx context.Context, id uuid.UUID) (*ManualSyncResponse, error) {
	store, err := s.stores.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !store.IsActive {
		return nil, integration.ErrStoreInactive
	}

	reports, err := s.syncer.SyncStoreReports(ctx, store, integration.TriggerManual)
	resp := &ManualSyncResponse{
		StoreID:    store.ID,
		Reports:    reports,
		LastSyncAt: store.LastSyncAt,
	}
	return resp, err
}

func (s *StoreService) setCredentials(store *integration.Store, key, secret, webhookSecret string) error {
	key, secret = strings.TrimSpace(key), strings.TrimSpace(secret)
	if key == "" {
		return integration.ErrStoreMissingKey
	}
	if secret == "" {
		return integration.ErrStoreMissingSecret
	}

	var err error
	if store.ConsumerKey, err = s.encrypter.Encrypt(key); err != nil {
		return fmt.Errorf("encrypt consumer key: %w", err)
	}
	if store.ConsumerSecret, err = s.encrypter.Encrypt(secret); err != nil {
		return fmt.Errorf("encrypt consumer secret: %w", err)
	}
	if webhookSecret = strings.TrimSpace(webhookSecret); webhookSecret != "" {
		if store.WebhookSecret, err = s.encrypter.Encrypt(webhookSecret); err != nil {
			return fmt.Errorf("encrypt webhook secret: %w", err)
		}
	}
	return nil
}

func applySyncOptions(store *integration.Store, opts StoreSyncOptions) error {
	if opts.SyncIntervalMinutes != nil {
		if *opts.SyncIntervalMinutes <= 0 {
			return integration.ErrStoreInvalidInterval
		}
		store.SyncIntervalMinutes = *opts.SyncIntervalMinutes
	}
	if opts.AutoSync != nil {
		store.AutoSync = *opts.AutoSync
	}
	if opts.SyncOrders != nil {
		store.SyncOrders = *opts.SyncOrders
	}
	if opts.SyncProducts != nil {
		store.SyncProducts = *opts.SyncProducts
	}
	if opts.OrderDaysBack != nil {
		if *opts.OrderDaysBack == 0 {
			store.OrderDaysBack = nil
		} else {
			days := *opts.OrderDaysBack
			store.OrderDaysBack = &days
		}
	}
	if opts.OrderSinceDate != nil {
		since := *opts.OrderSinceDate
		store.OrderSinceDate = &since
	}
	if opts.OrderStatusFilter != nil {
		filter := make([]string, 0, len(opts.OrderStatusFilter))
		for _, st := range opts.OrderStatusFilter {
			if st = integration.NormalizeExternalStatus(st); st != "" {
				filter = append(filter, st)
			}
		}
		store.OrderStatusFilter = filter
	}
	return nil
}
