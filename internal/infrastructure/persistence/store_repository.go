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
)

// GormStoreRepository implements integration.StoreRepository using GORM
type GormStoreRepository struct {
	db *gorm.DB
}

// NewGormStoreRepository creates a new GormStoreRepository
func NewGormStoreRepository(db *gorm.DB) *GormStoreRepository {
	return &GormStoreRepository{db: db}
}

// FindByID loads a store owned by the context tenant
func (r *GormStoreRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Store, error) {
	m, err := tenant.FindUnique[models.StoreModel](ctx, r.db, "id = ?", id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrStoreNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// Create inserts a new store; tenant_id is stamped from ctx
func (r *GormStoreRepository) Create(ctx context.Context, store *integration.Store) error {
	m := models.StoreModelFromDomain(store)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	store.TenantID = m.TenantID
	return nil
}

// Update writes connection settings. last_sync_at is owned by sync runs and
// is never written here.
func (r *GormStoreRepository) Update(ctx context.Context, store *integration.Store) error {
	store.UpdatedAt = time.Now()
	m := models.StoreModelFromDomain(store)
	result := r.db.WithContext(ctx).
		Model(&models.StoreModel{}).
		Where("id = ?", store.ID).
		Select("*").
		Omit("id", "tenant_id", "created_at", "last_sync_at").
		Updates(m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrStoreNotFound
	}
	return nil
}

// MarkSynced stamps the sync cursor and clears the reconnect flag
func (r *GormStoreRepository) MarkSynced(ctx context.Context, storeID uuid.UUID, at time.Time) error {
	return r.updateColumns(ctx, storeID, map[string]any{
		"last_sync_at":    at,
		"needs_reconnect": false,
		"updated_at":      time.Now(),
	})
}

// MarkNeedsReconnect flags a store whose credentials were rejected upstream
func (r *GormStoreRepository) MarkNeedsReconnect(ctx context.Context, storeID uuid.UUID) error {
	return r.updateColumns(ctx, storeID, map[string]any{
		"needs_reconnect": true,
		"updated_at":      time.Now(),
	})
}

func (r *GormStoreRepository) updateColumns(ctx context.Context, storeID uuid.UUID, values map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.StoreModel{}).
		Where("id = ?", storeID).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrStoreNotFound
	}
	return nil
}

// SystemFindByID resolves a store across tenants. Used by webhook ingest,
// which learns the tenant from the store it resolves.
func (r *GormStoreRepository) SystemFindByID(ctx context.Context, id uuid.UUID) (*integration.Store, error) {
	var m models.StoreModel
	if err := r.db.WithContext(tenant.WithSystemScope(ctx)).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrStoreNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// SystemListAutoSync lists active auto-sync stores of every tenant
func (r *GormStoreRepository) SystemListAutoSync(ctx context.Context) ([]integration.Store, error) {
	var rows []models.StoreModel
	err := r.db.WithContext(tenant.WithSystemScope(ctx)).
		Where("is_active = ? AND auto_sync = ?", true, true).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	stores := make([]integration.Store, len(rows))
	for i := range rows {
		stores[i] = *rows[i].ToDomain()
	}
	return stores, nil
}

var _ integration.StoreRepository = (*GormStoreRepository)(nil)
