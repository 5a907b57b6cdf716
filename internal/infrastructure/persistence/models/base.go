package models

import (
	"time"

	"github.com/google/uuid"
)

// TenantModel carries the columns shared by every tenant-scoped table
type TenantModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// OwnerTenantID reports the owning tenant for isolation checks
func (m TenantModel) OwnerTenantID() uuid.UUID {
	return m.TenantID
}

// TenantScopedTables lists the tables the tenant isolation layer guards
func TenantScopedTables() []string {
	return []string{
		StoreModel{}.TableName(),
		OrderModel{}.TableName(),
		OrderItemModel{}.TableName(),
		ProductModel{}.TableName(),
		TenantSyncSettingsModel{}.TableName(),
	}
}

// All returns every model, in dependency order, for AutoMigrate in tests
func All() []any {
	return []any{
		&StoreModel{},
		&ProductModel{},
		&OrderModel{},
		&OrderItemModel{},
		&TenantSyncSettingsModel{},
	}
}
