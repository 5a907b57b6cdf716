package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence/tenant"
)

// GormSyncHealthProvider implements SyncHealthProvider with aggregate
// queries across all tenants.
type GormSyncHealthProvider struct {
	db *gorm.DB
}

// NewGormSyncHealthProvider creates a new GormSyncHealthProvider.
func NewGormSyncHealthProvider(db *gorm.DB) *GormSyncHealthProvider {
	return &GormSyncHealthProvider{db: db}
}

// LowStockCounts returns the number of low stock products per store.
func (p *GormSyncHealthProvider) LowStockCounts(ctx context.Context) (map[StoreKey]int64, error) {
	type result struct {
		TenantID uuid.UUID `gorm:"column:tenant_id"`
		StoreID  uuid.UUID `gorm:"column:store_id"`
		Count    int64     `gorm:"column:low_stock"`
	}

	var results []result
	err := p.db.WithContext(tenant.WithSystemScope(ctx)).
		Table("products").
		Select("tenant_id, store_id, COUNT(*) AS low_stock").
		Where("is_active = ? AND low_stock_threshold > 0", true).
		Where("(stock_qty - reserved_qty) <= low_stock_threshold").
		Group("tenant_id, store_id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	m := make(map[StoreKey]int64, len(results))
	for _, r := range results {
		m[StoreKey{TenantID: r.TenantID, StoreID: r.StoreID}] = r.Count
	}
	return m, nil
}

// ReconnectCounts returns the number of active stores flagged for
// reconnect per tenant.
func (p *GormSyncHealthProvider) ReconnectCounts(ctx context.Context) (map[uuid.UUID]int64, error) {
	type result struct {
		TenantID uuid.UUID `gorm:"column:tenant_id"`
		Count    int64     `gorm:"column:flagged"`
	}

	var results []result
	err := p.db.WithContext(tenant.WithSystemScope(ctx)).
		Table("stores").
		Select("tenant_id, COUNT(*) AS flagged").
		Where("is_active = ? AND needs_reconnect = ?", true, true).
		Group("tenant_id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	m := make(map[uuid.UUID]int64, len(results))
	for _, r := range results {
		m[r.TenantID] = r.Count
	}
	return m, nil
}
