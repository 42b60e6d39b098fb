package domain

import "github.com/shopspring/decimal"

// Coupon is a validated discount descriptor returned by the catalog for a redeemed code.
type Coupon struct {
	Code            string          `json:"code"`
	DisplayName     string          `json:"nombreCupon"`
	DiscountPercent decimal.Decimal `json:"porcentajeDescuento"`
}
