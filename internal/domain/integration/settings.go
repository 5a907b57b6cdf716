package integration

import (
	"context"

	"github.com/google/uuid"
)

// DefaultCurrency is the last-resort display currency for synced products
const DefaultCurrency = "USD"

// TenantSyncSettings holds per-tenant sync policy
type TenantSyncSettings struct {
	TenantID uuid.UUID
	// StatusOverrides maps external status to internal status
	StatusOverrides map[string]string
	// FallbackStatus is used for external statuses no table knows
	FallbackStatus string
	// LowStockThreshold is applied to newly imported products
	LowStockThreshold int
	// PushStockEnabled is the tenant-level push-back flag
	PushStockEnabled bool
	// DefaultCurrency is used when the store currency cannot be read
	DefaultCurrency string
}

// DefaultTenantSyncSettings returns settings for tenants that never saved any
func DefaultTenantSyncSettings(tenantID uuid.UUID) *TenantSyncSettings {
	return &TenantSyncSettings{
		TenantID:          tenantID,
		StatusOverrides:   map[string]string{},
		LowStockThreshold: 5,
		DefaultCurrency:   DefaultCurrency,
	}
}

// StatusMapper builds the mapper configured by these settings
func (s *TenantSyncSettings) StatusMapper() *StatusMapper {
	return NewStatusMapper(s.StatusOverrides, s.FallbackStatus)
}

// TenantSettingsRepository loads tenant sync policy
type TenantSettingsRepository interface {
	// Get returns the tenant's settings, or defaults when none are stored
	Get(ctx context.Context, tenantID uuid.UUID) (*TenantSyncSettings, error)
	Save(ctx context.Context, settings *TenantSyncSettings) error
}
