package models

import (
	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for an imported catalog item
type ProductModel struct {
	TenantModel
	StoreID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_products_external_store,priority:2"`
	ExternalID        string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_products_external_store,priority:1"`
	ExternalParentID  string          `gorm:"type:varchar(64)"`
	SKU               string          `gorm:"type:varchar(100);index"`
	Name              string          `gorm:"type:varchar(300);not null"`
	Price             decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Currency          string          `gorm:"type:varchar(3)"`
	StockQty          int             `gorm:"not null;default:0"`
	ReservedQty       int             `gorm:"not null;default:0"`
	LowStockThreshold int             `gorm:"not null;default:0"`
	PushStockOverride *bool
	Weight            string `gorm:"type:varchar(32)"`
	Length            string `gorm:"type:varchar(32)"`
	Width             string `gorm:"type:varchar(32)"`
	Height            string `gorm:"type:varchar(32)"`
	ImageURL          string `gorm:"type:text"`
	IsActive          bool   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *integration.Product {
	return &integration.Product{
		ID:                m.ID,
		TenantID:          m.TenantID,
		StoreID:           m.StoreID,
		ExternalID:        m.ExternalID,
		ExternalParentID:  m.ExternalParentID,
		SKU:               m.SKU,
		Name:              m.Name,
		Price:             m.Price,
		Currency:          m.Currency,
		StockQty:          m.StockQty,
		ReservedQty:       m.ReservedQty,
		LowStockThreshold: m.LowStockThreshold,
		PushStockOverride: m.PushStockOverride,
		Weight:            m.Weight,
		Length:            m.Length,
		Width:             m.Width,
		Height:            m.Height,
		ImageURL:          m.ImageURL,
		IsActive:          m.IsActive,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Product
func (m *ProductModel) FromDomain(p *integration.Product) {
	m.ID = p.ID
	m.TenantID = p.TenantID
	m.CreatedAt = p.CreatedAt
	m.UpdatedAt = p.UpdatedAt
	m.StoreID = p.StoreID
	m.ExternalID = p.ExternalID
	m.ExternalParentID = p.ExternalParentID
	m.SKU = p.SKU
	m.Name = p.Name
	m.Price = p.Price
	m.Currency = p.Currency
	m.StockQty = p.StockQty
	m.ReservedQty = p.ReservedQty
	m.LowStockThreshold = p.LowStockThreshold
	m.PushStockOverride = p.PushStockOverride
	m.Weight = p.Weight
	m.Length = p.Length
	m.Width = p.Width
	m.Height = p.Height
	m.ImageURL = p.ImageURL
	m.IsActive = p.IsActive
}
