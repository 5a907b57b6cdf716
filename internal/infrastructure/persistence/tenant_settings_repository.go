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

// GormTenantSettingsRepository implements integration.TenantSettingsRepository
type GormTenantSettingsRepository struct {
	db *gorm.DB
}

// NewGormTenantSettingsRepository creates a new GormTenantSettingsRepository
func NewGormTenantSettingsRepository(db *gorm.DB) *GormTenantSettingsRepository {
	return &GormTenantSettingsRepository{db: db}
}

// Get returns the tenant's settings, or defaults when none were saved
func (r *GormTenantSettingsRepository) Get(ctx context.Context, tenantID uuid.UUID) (*integration.TenantSyncSettings, error) {
	var m models.TenantSyncSettingsModel
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return integration.DefaultTenantSyncSettings(tenantID), nil
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// Save writes the tenant's settings
func (r *GormTenantSettingsRepository) Save(ctx context.Context, settings *integration.TenantSyncSettings) error {
	now := time.Now()
	m := &models.TenantSyncSettingsModel{CreatedAt: now, UpdatedAt: now}
	m.FromDomain(settings)

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status_overrides",
				"fallback_status",
				"low_stock_threshold",
				"push_stock_enabled",
				"default_currency",
				"updated_at",
			}),
		}).
		Create(m).Error
}

var _ integration.TenantSettingsRepository = (*GormTenantSettingsRepository)(nil)
