package domain

import "github.com/shopspring/decimal"

// LineItem is one product and quantity pair in a cart.
// Stock is the product stock snapshot taken when the item was last added or updated.
type LineItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Image     string          `json:"image"`
	Brand     string          `json:"brand"`
	Stock     int             `json:"stock"`
	Quantity  int             `json:"quantity"`
}

// Subtotal returns UnitPrice * Quantity.
func (i LineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Valid reports whether the item satisfies 1 <= Quantity <= Stock.
func (i LineItem) Valid() bool {
	return i.Quantity >= 1 && i.Quantity <= i.Stock
}

// NewLineItem snapshots p into a line item holding quantity units.
func NewLineItem(p Product, quantity int) LineItem {
	return LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Image:     p.Image,
		Brand:     p.Brand,
		Stock:     p.Stock,
		Quantity:  quantity,
	}
}
