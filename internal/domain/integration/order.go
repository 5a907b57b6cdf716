package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the local mirror of a platform order, unique by (ExternalID, StoreID).
//
// Status is the internal workflow status. It is assigned once when the order
// is first imported and is advanced by warehouse workflows afterwards; order
// sync never rewrites it.
type Order struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	StoreID        uuid.UUID
	ExternalID     string
	OrderNumber    string
	ExternalStatus string
	Status         string

	CustomerName    string
	CustomerEmail   string
	ShippingAddress Address
	Total           decimal.Decimal
	Currency        string

	// PlacedAt is the upstream creation time
	PlacedAt  time.Time
	CreatedAt time.Time
	UpdatedAt time.Time

	Items []OrderItem
}

// Address is a shipping address snapshot
type Address struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Company   string `json:"company,omitempty"`
	Address1  string `json:"address_1,omitempty"`
	Address2  string `json:"address_2,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Postcode  string `json:"postcode,omitempty"`
	Country   string `json:"country,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// OrderItem is a line of an Order, unique by (OrderID, ExternalProductID)
type OrderItem struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	OrderID           uuid.UUID
	ProductID         *uuid.UUID
	ExternalProductID string
	SKU               string
	Name              string
	Quantity          int
	Price             decimal.Decimal
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// UpsertOutcome reports whether an upsert inserted a new row
type UpsertOutcome struct {
	ID      uuid.UUID
	Created bool
}

// ---------------------------------------------------------------------------
// OrderRepository Interface
// ---------------------------------------------------------------------------

// OrderRepository persists synced orders.
type OrderRepository interface {
	// UpsertByExternalID inserts the order or refreshes its mirror fields.
	// On conflict only ExternalStatus, OrderNumber, customer, address, total
	// and currency are rewritten; Status and PlacedAt keep their stored values.
	UpsertByExternalID(ctx context.Context, order *Order) (UpsertOutcome, error)

	// UpsertItem inserts or updates the item keyed by (OrderID, ExternalProductID)
	UpsertItem(ctx context.Context, item *OrderItem) error

	FindByExternalID(ctx context.Context, storeID uuid.UUID, externalID string) (*Order, error)
}
