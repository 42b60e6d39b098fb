package domain

import "github.com/shopspring/decimal"

// Product is the catalog descriptor a cart line item is built from.
// JSON tags follow the storefront backend payload.
type Product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"nombre"`
	Price decimal.Decimal `json:"precio"`
	Image string          `json:"imagen_principal"`
	Stock int             `json:"stock"`
	Brand string          `json:"marca"`
}
