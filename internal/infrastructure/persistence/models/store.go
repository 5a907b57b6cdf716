package models

import (
	"time"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
)

// StoreModel is the persistence model for a connected WooCommerce store.
// Credential columns hold ciphertext; decryption happens in the client adapter.
type StoreModel struct {
	TenantModel
	Name                string     `gorm:"type:varchar(200);not null"`
	BaseURL             string     `gorm:"type:varchar(500);not null"`
	ConsumerKey         string     `gorm:"type:text;not null"`
	ConsumerSecret      string     `gorm:"type:text;not null"`
	WebhookSecret       string     `gorm:"type:text"`
	IsActive            bool       `gorm:"not null;index:idx_stores_auto_sync,priority:1"`
	AutoSync            bool       `gorm:"not null;index:idx_stores_auto_sync,priority:2"`
	SyncIntervalMinutes int        `gorm:"not null"`
	LastSyncAt          *time.Time `gorm:"index"`
	NeedsReconnect      bool       `gorm:"not null"`
	SyncOrders          bool       `gorm:"not null"`
	SyncProducts        bool       `gorm:"not null"`
	OrderDaysBack       *int
	OrderSinceDate      *time.Time
	OrderStatusFilter   []string `gorm:"serializer:json;type:jsonb"`
}

// TableName returns the table name for GORM
func (StoreModel) TableName() string {
	return "stores"
}

// ToDomain converts the persistence model to a domain Store
func (m *StoreModel) ToDomain() *integration.Store {
	return &integration.Store{
		ID:                  m.ID,
		TenantID:            m.TenantID,
		Name:                m.Name,
		BaseURL:             m.BaseURL,
		ConsumerKey:         m.ConsumerKey,
		ConsumerSecret:      m.ConsumerSecret,
		WebhookSecret:       m.WebhookSecret,
		IsActive:            m.IsActive,
		AutoSync:            m.AutoSync,
		SyncIntervalMinutes: m.SyncIntervalMinutes,
		LastSyncAt:          m.LastSyncAt,
		NeedsReconnect:      m.NeedsReconnect,
		SyncOrders:          m.SyncOrders,
		SyncProducts:        m.SyncProducts,
		OrderDaysBack:       m.OrderDaysBack,
		OrderSinceDate:      m.OrderSinceDate,
		OrderStatusFilter:   append([]string(nil), m.OrderStatusFilter...),
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Store
func (m *StoreModel) FromDomain(s *integration.Store) {
	m.ID = s.ID
	m.TenantID = s.TenantID
	m.CreatedAt = s.CreatedAt
	m.UpdatedAt = s.UpdatedAt
	m.Name = s.Name
	m.BaseURL = s.BaseURL
	m.ConsumerKey = s.ConsumerKey
	m.ConsumerSecret = s.ConsumerSecret
	m.WebhookSecret = s.WebhookSecret
	m.IsActive = s.IsActive
	m.AutoSync = s.AutoSync
	m.SyncIntervalMinutes = s.SyncIntervalMinutes
	m.LastSyncAt = s.LastSyncAt
	m.NeedsReconnect = s.NeedsReconnect
	m.SyncOrders = s.SyncOrders
	m.SyncProducts = s.SyncProducts
	m.OrderDaysBack = s.OrderDaysBack
	m.OrderSinceDate = s.OrderSinceDate
	m.OrderStatusFilter = s.OrderStatusFilter
}

// StoreModelFromDomain creates a persistence model from a domain Store
func StoreModelFromDomain(s *integration.Store) *StoreModel {
	m := &StoreModel{}
	m.FromDomain(s)
	return m
}
