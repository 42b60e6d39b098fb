package coupon

import (
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// State holds at most one active coupon.
type State struct {
	Active *domain.Coupon
}

// DiscountedPrice applies the active coupon to price. It reports false when no
// coupon is active or the coupon carries no positive discount.
func (s State) DiscountedPrice(price decimal.Decimal) (decimal.Decimal, bool) {
	if s.Active == nil || !s.Active.DiscountPercent.IsPositive() {
		return decimal.Zero, false
	}
	factor := decimal.NewFromInt(1).Sub(s.Active.DiscountPercent.Div(hundred))
	return price.Mul(factor), true
}
