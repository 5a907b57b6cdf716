package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/currency"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/logger"
)

// ProductSyncService pulls a store's full catalog into local products.
// There is no cursor: every run walks the whole catalog.
type ProductSyncService struct {
	deps SyncDependencies
	opts walkerOptions
}

var _ Walker = (*ProductSyncService)(nil)

// NewProductSyncService creates the product walker
func NewProductSyncService(deps SyncDependencies, opts ...WalkerOption) *ProductSyncService {
	return &ProductSyncService{deps: deps, opts: buildWalkerOptions(opts)}
}

// Run imports the store's catalog
func (s *ProductSyncService) Run(ctx context.Context, store *integration.Store) (*integration.SyncReport, error) {
	report := integration.NewSyncReport(store, integration.SyncEntityProducts, s.opts.clock())
	if !store.CanSyncProducts() {
		report.Skip(s.opts.clock(), integration.SkipReasonDisabled)
		return report, nil
	}

	ctx, end := startRunSpan(ctx, "sync.products", store)
	err := s.walk(ctx, store, report)
	finishRun(ctx, report, s.opts.clock(), err)
	end(report, err)
	return report, err
}

func (s *ProductSyncService) walk(ctx context.Context, store *integration.Store, report *integration.SyncReport) error {
	settings, err := s.deps.Settings.Get(ctx, store.TenantID)
	if err != nil {
		return fmt.Errorf("load tenant settings: %w", err)
	}

	client, err := s.deps.Clients.ForStore(ctx, store)
	if err != nil {
		return err
	}
	code := resolveCurrency(ctx, client, settings.DefaultCurrency)
	log := logger.L(ctx)

	return walkPages(ctx, report,
		func(ctx context.Context, page int) (*integration.Page[integration.RemoteProduct], error) {
			return client.ListProducts(ctx, page, s.opts.pageSize)
		},
		func(ctx context.Context, remote *integration.RemoteProduct) {
			created, err := s.importProduct(ctx, store, settings, code, remote)
			if err != nil {
				log.Warn("Failed to import product",
					zap.String("external_id", remote.ExternalID),
					zap.Error(err),
				)
				report.RecordFailure(remote.ExternalID, err)
				return
			}
			report.RecordSuccess(created)
		},
	)
}

func (s *ProductSyncService) importProduct(
	ctx context.Context,
	store *integration.Store,
	settings *integration.TenantSyncSettings,
	currencyCode string,
	remote *integration.RemoteProduct,
) (bool, error) {
	if remote.ExternalID == "" {
		return false, integration.ErrInvalidProduct
	}

	// an unmanaged stock level upstream keeps whatever we hold locally
	stock := 0
	if remote.StockQty != nil {
		stock = *remote.StockQty
	} else {
		existing, err := s.deps.Products.FindByExternalID(ctx, store.ID, remote.ExternalID)
		switch {
		case err == nil:
			stock = existing.StockQty
		case !errors.Is(err, integration.ErrProductNotFound):
			return false, fmt.Errorf("load product: %w", err)
		}
	}

	product := &integration.Product{
		TenantID:          store.TenantID,
		StoreID:           store.ID,
		ExternalID:        remote.ExternalID,
		ExternalParentID:  remote.ExternalParentID,
		SKU:               remote.SKU,
		Name:              remote.Name,
		Price:             remote.Price,
		Currency:          currencyCode,
		StockQty:          stock,
		LowStockThreshold: settings.LowStockThreshold,
		Weight:            remote.Weight,
		Length:            remote.Length,
		Width:             remote.Width,
		Height:            remote.Height,
		ImageURL:          remote.ImageURL,
		IsActive:          remote.Published,
	}
	outcome, err := s.deps.Products.UpsertByExternalID(ctx, product)
	if err != nil {
		return false, fmt.Errorf("upsert product: %w", err)
	}
	return outcome.Created, nil
}

// resolveCurrency reads the store currency, falling back to the tenant
// default and then to DefaultCurrency. Every candidate must be ISO 4217.
func resolveCurrency(ctx context.Context, client integration.CommerceClient, tenantDefault string) string {
	log := logger.L(ctx)

	remote, err := client.GetCurrency(ctx)
	if err != nil {
		log.Warn("Failed to read store currency, using tenant default", zap.Error(err))
	} else if code, ok := isoCurrency(remote); ok {
		return code
	} else {
		log.Warn("Store reported an unknown currency", zap.String("currency", remote))
	}

	if code, ok := isoCurrency(tenantDefault); ok {
		return code
	}
	return integration.DefaultCurrency
}

func isoCurrency(code string) (string, bool) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return "", false
	}
	return unit.String(), true
}
