package models

import (
	"time"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for an imported order
type OrderModel struct {
	TenantModel
	StoreID         uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_orders_external_store,priority:2"`
	ExternalID      string              `gorm:"type:varchar(64);not null;uniqueIndex:idx_orders_external_store,priority:1"`
	OrderNumber     string              `gorm:"type:varchar(64)"`
	ExternalStatus  string              `gorm:"type:varchar(50);not null"`
	Status          string              `gorm:"type:varchar(30);not null;index"`
	CustomerName    string              `gorm:"type:varchar(200)"`
	CustomerEmail   string              `gorm:"type:varchar(200)"`
	ShippingAddress integration.Address `gorm:"serializer:json;type:jsonb"`
	Total           decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	Currency        string              `gorm:"type:varchar(3)"`
	PlacedAt        time.Time           `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order (without items)
func (m *OrderModel) ToDomain() *integration.Order {
	return &integration.Order{
		ID:              m.ID,
		TenantID:        m.TenantID,
		StoreID:         m.StoreID,
		ExternalID:      m.ExternalID,
		OrderNumber:     m.OrderNumber,
		ExternalStatus:  m.ExternalStatus,
		Status:          m.Status,
		CustomerName:    m.CustomerName,
		CustomerEmail:   m.CustomerEmail,
		ShippingAddress: m.ShippingAddress,
		Total:           m.Total,
		Currency:        m.Currency,
		PlacedAt:        m.PlacedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Order
func (m *OrderModel) FromDomain(o *integration.Order) {
	m.ID = o.ID
	m.TenantID = o.TenantID
	m.CreatedAt = o.CreatedAt
	m.UpdatedAt = o.UpdatedAt
	m.StoreID = o.StoreID
	m.ExternalID = o.ExternalID
	m.OrderNumber = o.OrderNumber
	m.ExternalStatus = o.ExternalStatus
	m.Status = o.Status
	m.CustomerName = o.CustomerName
	m.CustomerEmail = o.CustomerEmail
	m.ShippingAddress = o.ShippingAddress
	m.Total = o.Total
	m.Currency = o.Currency
	m.PlacedAt = o.PlacedAt
}

// OrderItemModel is the persistence model for an order line
type OrderItemModel struct {
	TenantModel
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_order_items_order_product,priority:1"`
	ProductID         *uuid.UUID      `gorm:"type:uuid;index"`
	ExternalProductID string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_order_items_order_product,priority:2"`
	SKU               string          `gorm:"type:varchar(100)"`
	Name              string          `gorm:"type:varchar(300)"`
	Quantity          int             `gorm:"not null"`
	Price             decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem
func (m *OrderItemModel) ToDomain() integration.OrderItem {
	return integration.OrderItem{
		ID:                m.ID,
		TenantID:          m.TenantID,
		OrderID:           m.OrderID,
		ProductID:         m.ProductID,
		ExternalProductID: m.ExternalProductID,
		SKU:               m.SKU,
		Name:              m.Name,
		Quantity:          m.Quantity,
		Price:             m.Price,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain OrderItem
func (m *OrderItemModel) FromDomain(i *integration.OrderItem) {
	m.ID = i.ID
	m.TenantID = i.TenantID
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
	m.OrderID = i.OrderID
	m.ProductID = i.ProductID
	m.ExternalProductID = i.ExternalProductID
	m.SKU = i.SKU
	m.Name = i.Name
	m.Quantity = i.Quantity
	m.Price = i.Price
}
