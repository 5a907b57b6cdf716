package models

import (
	"time"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"github.com/google/uuid"
)

// TenantSyncSettingsModel stores per-tenant sync policy. TenantID is the key.
type TenantSyncSettingsModel struct {
	TenantID          uuid.UUID         `gorm:"type:uuid;primaryKey"`
	StatusOverrides   map[string]string `gorm:"serializer:json;type:jsonb"`
	FallbackStatus    string            `gorm:"type:varchar(30)"`
	LowStockThreshold int               `gorm:"not null"`
	PushStockEnabled  bool              `gorm:"not null"`
	DefaultCurrency   string            `gorm:"type:varchar(3);not null"`
	CreatedAt         time.Time         `gorm:"not null"`
	UpdatedAt         time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TenantSyncSettingsModel) TableName() string {
	return "tenant_sync_settings"
}

// OwnerTenantID reports the owning tenant for isolation checks
func (m TenantSyncSettingsModel) OwnerTenantID() uuid.UUID {
	return m.TenantID
}

// ToDomain converts the persistence model to domain settings
func (m *TenantSyncSettingsModel) ToDomain() *integration.TenantSyncSettings {
	overrides := make(map[string]string, len(m.StatusOverrides))
	for k, v := range m.StatusOverrides {
		overrides[k] = v
	}
	return &integration.TenantSyncSettings{
		TenantID:          m.TenantID,
		StatusOverrides:   overrides,
		FallbackStatus:    m.FallbackStatus,
		LowStockThreshold: m.LowStockThreshold,
		PushStockEnabled:  m.PushStockEnabled,
		DefaultCurrency:   m.DefaultCurrency,
	}
}

// FromDomain populates the persistence model from domain settings
func (m *TenantSyncSettingsModel) FromDomain(s *integration.TenantSyncSettings) {
	m.TenantID = s.TenantID
	m.StatusOverrides = s.StatusOverrides
	m.FallbackStatus = s.FallbackStatus
	m.LowStockThreshold = s.LowStockThreshold
	m.PushStockEnabled = s.PushStockEnabled
	m.DefaultCurrency = s.DefaultCurrency
}
