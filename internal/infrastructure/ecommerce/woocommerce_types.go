package ecommerce

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
)

// wcTimeLayout is the layout of *_gmt timestamps returned by the REST API
const wcTimeLayout = "2006-01-02T15:04:05"

// WooOrder is an order resource from /orders
type WooOrder struct {
	ID           int64         `json:"id"`
	Number       string        `json:"number"`
	Status       string        `json:"status"`
	Currency     string        `json:"currency"`
	Total        string        `json:"total"`
	DateCreated  string        `json:"date_created_gmt"`
	DateModified string        `json:"date_modified_gmt"`
	Billing      WooAddress    `json:"billing"`
	Shipping     WooAddress    `json:"shipping"`
	LineItems    []WooLineItem `json:"line_items"`
}

// WooAddress is a billing or shipping address
type WooAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// WooLineItem is one order line
type WooLineItem struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	ProductID   int64           `json:"product_id"`
	VariationID int64           `json:"variation_id"`
	Quantity    int             `json:"quantity"`
	SKU         string          `json:"sku"`
	Price       decimal.Decimal `json:"price"`
}

// WooProduct is a product or variation resource
type WooProduct struct {
	ID            int64         `json:"id"`
	ParentID      int64         `json:"parent_id"`
	Name          string        `json:"name"`
	Type          string        `json:"type"`
	Status        string        `json:"status"`
	SKU           string        `json:"sku"`
	Price         string        `json:"price"`
	StockQuantity *int          `json:"stock_quantity"`
	Weight        string        `json:"weight"`
	Dimensions    WooDimensions `json:"dimensions"`
	Images        []WooImage    `json:"images"`
	// Image is set on variations instead of Images
	Image *WooImage `json:"image"`
}

// WooDimensions holds product dimensions as strings, unit per store settings
type WooDimensions struct {
	Length string `json:"length"`
	Width  string `json:"width"`
	Height string `json:"height"`
}

// WooImage is a product image
type WooImage struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
}

// WooStockUpdate is the body of a stock push
type WooStockUpdate struct {
	ManageStock   bool `json:"manage_stock"`
	StockQuantity int  `json:"stock_quantity"`
}

// WooSetting is one settings option
type WooSetting struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// WooErrorResponse is the REST API error body
type WooErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// IsVariable reports whether the product is a variable parent
func (p *WooProduct) IsVariable() bool {
	return p.Type == "variable"
}

// ParseDecimal parses a platform amount, returning zero for blanks and junk
func ParseDecimal(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseWooTime parses a GMT timestamp; the zero time is returned on failure
func parseWooTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.ParseInLocation(wcTimeLayout, s, time.UTC); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (a WooAddress) toDomain() integration.Address {
	return integration.Address{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Company:   a.Company,
		Address1:  a.Address1,
		Address2:  a.Address2,
		City:      a.City,
		State:     a.State,
		Postcode:  a.Postcode,
		Country:   a.Country,
		Phone:     a.Phone,
	}
}

// toRemoteOrder converts an API order to the domain value
func (o *WooOrder) toRemoteOrder() integration.RemoteOrder {
	name := strings.TrimSpace(o.Billing.FirstName + " " + o.Billing.LastName)
	if name == "" {
		name = strings.TrimSpace(o.Shipping.FirstName + " " + o.Shipping.LastName)
	}
	number := o.Number
	if number == "" {
		number = formatID(o.ID)
	}

	lines := make([]integration.RemoteOrderLine, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		productID := li.ProductID
		if li.VariationID != 0 {
			productID = li.VariationID
		}
		lines = append(lines, integration.RemoteOrderLine{
			ExternalProductID: formatID(productID),
			SKU:               li.SKU,
			Name:              li.Name,
			Quantity:          li.Quantity,
			Price:             li.Price,
		})
	}

	return integration.RemoteOrder{
		ExternalID:      formatID(o.ID),
		Number:          number,
		Status:          o.Status,
		Currency:        strings.ToUpper(o.Currency),
		Total:           ParseDecimal(o.Total),
		CustomerName:    name,
		CustomerEmail:   o.Billing.Email,
		ShippingAddress: o.Shipping.toDomain(),
		CreatedAt:       parseWooTime(o.DateCreated),
		ModifiedAt:      parseWooTime(o.DateModified),
		Lines:           lines,
	}
}

// toRemoteProduct converts an API product or variation. parent is the
// variable product a variation belongs to, nil otherwise.
func (p *WooProduct) toRemoteProduct(parent *WooProduct) integration.RemoteProduct {
	rp := integration.RemoteProduct{
		ExternalID: formatID(p.ID),
		SKU:        p.SKU,
		Name:       p.Name,
		Price:      ParseDecimal(p.Price),
		StockQty:   p.StockQuantity,
		Weight:     p.Weight,
		Length:     p.Dimensions.Length,
		Width:      p.Dimensions.Width,
		Height:     p.Dimensions.Height,
		Published:  p.Status == "" || p.Status == "publish",
	}
	switch {
	case p.Image != nil && p.Image.Src != "":
		rp.ImageURL = p.Image.Src
	case len(p.Images) > 0:
		rp.ImageURL = p.Images[0].Src
	}

	if parent != nil {
		rp.ExternalParentID = formatID(parent.ID)
		if rp.Name == "" {
			rp.Name = parent.Name
		}
		if rp.ImageURL == "" && len(parent.Images) > 0 {
			rp.ImageURL = parent.Images[0].Src
		}
		if parent.Status != "" && parent.Status != "publish" {
			rp.Published = false
		}
	}
	return rp
}
