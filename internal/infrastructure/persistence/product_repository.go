package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence/models"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// productRefreshColumns are rewritten from the catalog on every pull.
// Warehouse-owned columns (reserved_qty, low_stock_threshold,
// push_stock_override) keep their local values.
var productRefreshColumns = []string{
	"external_parent_id",
	"sku",
	"name",
	"price",
	"currency",
	"stock_qty",
	"weight",
	"length",
	"width",
	"height",
	"image_url",
	"is_active",
	"updated_at",
}

// GormProductRepository implements integration.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// UpsertByExternalID inserts or refreshes a product keyed by (external_id, store_id)
func (r *GormProductRepository) UpsertByExternalID(ctx context.Context, product *integration.Product) (integration.UpsertOutcome, error) {
	now := time.Now()
	m := &models.ProductModel{}
	m.FromDomain(product)
	m.ID = uuid.New()
	m.CreatedAt = now
	m.UpdatedAt = now

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}, {Name: "store_id"}},
			DoUpdates: clause.AssignmentColumns(productRefreshColumns),
		}).
		Create(m).Error
	if err != nil {
		return integration.UpsertOutcome{}, err
	}

	var stored models.ProductModel
	err = r.db.WithContext(ctx).
		Select("id").
		Where("store_id = ? AND external_id = ?", product.StoreID, product.ExternalID).
		First(&stored).Error
	if err != nil {
		return integration.UpsertOutcome{}, err
	}

	product.ID = stored.ID
	product.TenantID = m.TenantID
	return integration.UpsertOutcome{ID: stored.ID, Created: stored.ID == m.ID}, nil
}

// FindByExternalID resolves a product by its platform id within a store
func (r *GormProductRepository) FindByExternalID(ctx context.Context, storeID uuid.UUID, externalID string) (*integration.Product, error) {
	var m models.ProductModel
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND external_id = ?", storeID, externalID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrProductNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByID loads a product owned by the context tenant
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Product, error) {
	m, err := tenant.FindUnique[models.ProductModel](ctx, r.db, "id = ?", id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrProductNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

var _ integration.ProductRepository = (*GormProductRepository)(nil)
