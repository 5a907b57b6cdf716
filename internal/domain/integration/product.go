package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the local mirror of one sellable catalog record, unique by
// (ExternalID, StoreID). Variations are stored as their own products with
// ExternalParentID pointing at the variable parent.
type Product struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	StoreID          uuid.UUID
	ExternalID       string
	ExternalParentID string

	SKU      string
	Name     string
	Price    decimal.Decimal
	Currency string

	StockQty          int
	ReservedQty       int
	LowStockThreshold int

	// PushStockOverride overrides the tenant push-back flag when set
	PushStockOverride *bool

	Weight   string
	Length   string
	Width    string
	Height   string
	ImageURL string
	IsActive bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SellableQuantity is on-hand stock minus reservations, never negative
func (p *Product) SellableQuantity() int {
	q := p.StockQty - p.ReservedQty
	if q < 0 {
		return 0
	}
	return q
}

// ShouldPushStock resolves the push-back gate. An explicit per-product
// setting wins over the tenant default.
func (p *Product) ShouldPushStock(tenantEnabled bool) bool {
	if p.PushStockOverride != nil {
		return *p.PushStockOverride
	}
	return tenantEnabled
}

// IsLowStock reports whether sellable quantity is at or below the threshold
func (p *Product) IsLowStock() bool {
	return p.LowStockThreshold > 0 && p.SellableQuantity() <= p.LowStockThreshold
}

// ---------------------------------------------------------------------------
// ProductRepository Interface
// ---------------------------------------------------------------------------

// ProductRepository persists synced products.
type ProductRepository interface {
	// UpsertByExternalID inserts the product or refreshes catalog fields.
	// LowStockThreshold, ReservedQty and PushStockOverride are written on
	// insert only.
	UpsertByExternalID(ctx context.Context, product *Product) (UpsertOutcome, error)

	FindByExternalID(ctx context.Context, storeID uuid.UUID, externalID string) (*Product, error)

	// FindByID is tenant-checked
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
}
