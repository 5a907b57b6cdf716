package integration

import (
	"time"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Store DTOs
// ---------------------------------------------------------------------------

// CreateStoreRequest connects a new store. Credentials arrive in plaintext
// and are encrypted before they are persisted.
type CreateStoreRequest struct {
	Name           string `json:"name" binding:"required,min=1,max=200"`
	BaseURL        string `json:"base_url" binding:"required,url"`
	ConsumerKey    string `json:"consumer_key" binding:"required"`
	ConsumerSecret string `json:"consumer_secret" binding:"required"`
	WebhookSecret  string `json:"webhook_secret"`

	StoreSyncOptions
}

// StoreSyncOptions are the per-store sync settings. Nil fields keep the
// current value.
type StoreSyncOptions struct {
	AutoSync            *bool      `json:"auto_sync,omitempty"`
	SyncIntervalMinutes *int       `json:"sync_interval_minutes,omitempty" binding:"omitempty,min=1,max=1440"`
	SyncOrders          *bool      `json:"sync_orders,omitempty"`
	SyncProducts        *bool      `json:"sync_products,omitempty"`
	OrderDaysBack       *int       `json:"order_days_back,omitempty" binding:"omitempty,min=0,max=3650"`
	OrderSinceDate      *time.Time `json:"order_since_date,omitempty"`
	OrderStatusFilter   []string   `json:"order_status_filter,omitempty" binding:"omitempty,dive,required"`
}

// UpdateStoreRequest changes a store's name or sync settings
type UpdateStoreRequest struct {
	Name *string `json:"name,omitempty" binding:"omitempty,min=1,max=200"`

	StoreSyncOptions
}

// RotateCredentialsRequest replaces a store's API credentials
type RotateCredentialsRequest struct {
	ConsumerKey    string `json:"consumer_key" binding:"required"`
	ConsumerSecret string `json:"consumer_secret" binding:"required"`
	// WebhookSecret is replaced only when non-empty
	WebhookSecret string `json:"webhook_secret"`
}

// StoreResponse represents a store in API responses. Credentials are never
// included.
type StoreResponse struct {
	ID                  uuid.UUID  `json:"id"`
	TenantID            uuid.UUID  `json:"tenant_id"`
	Name                string     `json:"name"`
	BaseURL             string     `json:"base_url"`
	IsActive            bool       `json:"is_active"`
	AutoSync            bool       `json:"auto_sync"`
	SyncIntervalMinutes int        `json:"sync_interval_minutes"`
	LastSyncAt          *time.Time `json:"last_sync_at,omitempty"`
	NeedsReconnect      bool       `json:"needs_reconnect"`
	HasWebhookSecret    bool       `json:"has_webhook_secret"`
	SyncOrders          bool       `json:"sync_orders"`
	SyncProducts        bool       `json:"sync_products"`
	OrderDaysBack       *int       `json:"order_days_back,omitempty"`
	OrderSinceDate      *time.Time `json:"order_since_date,omitempty"`
	OrderStatusFilter   []string   `json:"order_status_filter,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ToStoreResponse converts a domain Store to StoreResponse
func ToStoreResponse(s *integration.Store) *StoreResponse {
	return &StoreResponse{
		ID:                  s.ID,
		TenantID:            s.TenantID,
		Name:                s.Name,
		BaseURL:             s.BaseURL,
		IsActive:            s.IsActive,
		AutoSync:            s.AutoSync,
		SyncIntervalMinutes: s.SyncIntervalMinutes,
		LastSyncAt:          s.LastSyncAt,
		NeedsReconnect:      s.NeedsReconnect,
		HasWebhookSecret:    s.WebhookSecret != "",
		SyncOrders:          s.SyncOrders,
		SyncProducts:        s.SyncProducts,
		OrderDaysBack:       s.OrderDaysBack,
		OrderSinceDate:      s.OrderSinceDate,
		OrderStatusFilter:   s.OrderStatusFilter,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

// ---------------------------------------------------------------------------
// Sync DTOs
// ---------------------------------------------------------------------------

// ManualSyncResponse is returned by a manual sync trigger
type ManualSyncResponse struct {
	StoreID    uuid.UUID                 `json:"store_id"`
	Reports    []*integration.SyncReport `json:"reports"`
	LastSyncAt *time.Time                `json:"last_sync_at,omitempty"`
}

// ---------------------------------------------------------------------------
// Settings DTOs
// ---------------------------------------------------------------------------

// SettingsResponse represents tenant sync settings in API responses
type SettingsResponse struct {
	TenantID          uuid.UUID         `json:"tenant_id"`
	StatusOverrides   map[string]string `json:"status_overrides"`
	FallbackStatus    string            `json:"fallback_status,omitempty"`
	LowStockThreshold int               `json:"low_stock_threshold"`
	PushStockEnabled  bool              `json:"push_stock_enabled"`
	DefaultCurrency   string            `json:"default_currency"`
}

// UpdateSettingsRequest changes tenant sync settings. Nil fields keep the
// current value.
type UpdateSettingsRequest struct {
	StatusOverrides   map[string]string `json:"status_overrides,omitempty"`
	FallbackStatus    *string           `json:"fallback_status,omitempty"`
	LowStockThreshold *int              `json:"low_stock_threshold,omitempty" binding:"omitempty,min=0"`
	PushStockEnabled  *bool             `json:"push_stock_enabled,omitempty"`
	DefaultCurrency   *string           `json:"default_currency,omitempty" binding:"omitempty,len=3"`
}

// ToSettingsResponse converts TenantSyncSettings to SettingsResponse
func ToSettingsResponse(s *integration.TenantSyncSettings) *SettingsResponse {
	overrides := s.StatusOverrides
	if overrides == nil {
		overrides = map[string]string{}
	}
	return &SettingsResponse{
		TenantID:          s.TenantID,
		StatusOverrides:   overrides,
		FallbackStatus:    s.FallbackStatus,
		LowStockThreshold: s.LowStockThreshold,
		PushStockEnabled:  s.PushStockEnabled,
		DefaultCurrency:   s.DefaultCurrency,
	}
}
