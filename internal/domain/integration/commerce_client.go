package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultPageSize is the page size used by the sync walkers
const DefaultPageSize = 100

// ---------------------------------------------------------------------------
// Remote value objects
// ---------------------------------------------------------------------------

// RemoteOrder is an order as returned by the platform
type RemoteOrder struct {
	ExternalID      string
	Number          string
	Status          string
	Currency        string
	Total           decimal.Decimal
	CustomerName    string
	CustomerEmail   string
	ShippingAddress Address
	CreatedAt       time.Time
	ModifiedAt      time.Time
	Lines           []RemoteOrderLine
}

// RemoteOrderLine is one line item of a RemoteOrder
type RemoteOrderLine struct {
	// ExternalProductID is the variation id when present, otherwise the product id
	ExternalProductID string
	SKU               string
	Name              string
	Quantity          int
	Price             decimal.Decimal
}

// RemoteProduct is one sellable catalog record. Variable parents are
// expanded into their variations before reaching the walker.
type RemoteProduct struct {
	ExternalID       string
	ExternalParentID string
	SKU              string
	Name             string
	Price            decimal.Decimal
	StockQty         *int
	Weight           string
	Length           string
	Width            string
	Height           string
	ImageURL         string
	Published        bool
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// OrderQuery selects one page of orders, ascending by creation date.
// ModifiedAfter keeps only orders changed after that instant, so an old
// order whose status moved upstream is pulled again.
type OrderQuery struct {
	ModifiedAfter *time.Time
	Statuses      []string
	Page          int
	PerPage       int
}

// ApplyDefaults fills in unset or out-of-range paging
func (q *OrderQuery) ApplyDefaults() {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PerPage <= 0 || q.PerPage > DefaultPageSize {
		q.PerPage = DefaultPageSize
	}
}

// Page is one page of results plus the platform's reported page count
// (zero when unknown). Fetched counts the records the platform returned
// before any expansion, so a page whose records all mapped to nothing is
// still told apart from the end of the collection.
type Page[T any] struct {
	Items      []T
	TotalPages int
	Fetched    int
}

// Exhausted reports whether the platform had nothing on this page
func (p *Page[T]) Exhausted() bool {
	return len(p.Items) == 0 && p.Fetched == 0
}

// StockUpdate pushes one product's stock quantity upstream
type StockUpdate struct {
	ExternalID       string
	ExternalParentID string
	Quantity         int
}

// ---------------------------------------------------------------------------
// CommerceClient Interface
// ---------------------------------------------------------------------------

// CommerceClient is the port to one store's platform API. Every call must be
// bounded by a timeout.
type CommerceClient interface {
	ListOrders(ctx context.Context, q OrderQuery) (*Page[RemoteOrder], error)
	ListProducts(ctx context.Context, page, perPage int) (*Page[RemoteProduct], error)
	UpdateStock(ctx context.Context, update StockUpdate) error
	GetCurrency(ctx context.Context) (string, error)
}

// ClientProvider hands out the cached client for a store
type ClientProvider interface {
	ForStore(ctx context.Context, store *Store) (CommerceClient, error)
	Invalidate(storeID uuid.UUID)
}
