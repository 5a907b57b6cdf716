package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// orderRefreshColumns are rewritten when an already imported order is seen
// again. status and placed_at are set on insert only.
var orderRefreshColumns = []string{
	"order_number",
	"external_status",
	"customer_name",
	"customer_email",
	"shipping_address",
	"total",
	"currency",
	"updated_at",
}

var orderItemRefreshColumns = []string{
	"product_id",
	"sku",
	"name",
	"quantity",
	"price",
	"updated_at",
}

// GormOrderRepository implements integration.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// UpsertByExternalID inserts or refreshes an order keyed by (external_id, store_id)
func (r *GormOrderRepository) UpsertByExternalID(ctx context.Context, order *integration.Order) (integration.UpsertOutcome, error) {
	now := time.Now()
	m := &models.OrderModel{}
	m.FromDomain(order)
	m.ID = uuid.New()
	m.CreatedAt = now
	m.UpdatedAt = now

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}, {Name: "store_id"}},
			DoUpdates: clause.AssignmentColumns(orderRefreshColumns),
		}).
		Create(m).Error
	if err != nil {
		return integration.UpsertOutcome{}, err
	}

	var stored models.OrderModel
	err = r.db.WithContext(ctx).
		Select("id").
		Where("store_id = ? AND external_id = ?", order.StoreID, order.ExternalID).
		First(&stored).Error
	if err != nil {
		return integration.UpsertOutcome{}, err
	}

	order.ID = stored.ID
	order.TenantID = m.TenantID
	return integration.UpsertOutcome{ID: stored.ID, Created: stored.ID == m.ID}, nil
}

// UpsertItem inserts or refreshes a line keyed by (order_id, external_product_id)
func (r *GormOrderRepository) UpsertItem(ctx context.Context, item *integration.OrderItem) error {
	now := time.Now()
	m := &models.OrderItemModel{}
	m.FromDomain(item)
	m.ID = uuid.New()
	m.CreatedAt = now
	m.UpdatedAt = now

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "external_product_id"}},
			DoUpdates: clause.AssignmentColumns(orderItemRefreshColumns),
		}).
		Create(m).Error
}

// FindByExternalID loads an order and its items
func (r *GormOrderRepository) FindByExternalID(ctx context.Context, storeID uuid.UUID, externalID string) (*integration.Order, error) {
	var m models.OrderModel
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND external_id = ?", storeID, externalID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrOrderNotFound
		}
		return nil, err
	}

	var items []models.OrderItemModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", m.ID).
		Order("external_product_id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}

	order := m.ToDomain()
	order.Items = make([]integration.OrderItem, len(items))
	for i := range items {
		order.Items[i] = items[i].ToDomain()
	}
	return order, nil
}

var _ integration.OrderRepository = (*GormOrderRepository)(nil)
