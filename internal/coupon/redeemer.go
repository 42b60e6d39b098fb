package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.uber.org/zap"
)

// InvalidCouponMessage is shown for every failed redemption, whatever the cause.
const InvalidCouponMessage = "The coupon code is invalid or does not exist"

var (
	ErrCouponActive  = errors.New("a coupon is already applied")
	ErrInvalidCoupon = errors.New("invalid coupon")
)

// Lookup resolves a coupon code against the catalog.
type Lookup interface {
	FindCoupon(ctx context.Context, code string) (*domain.Coupon, error)
}

// Redeemer validates codes through a Lookup and applies them to a Store.
type Redeemer struct {
	lookup Lookup
	log    *zap.Logger
}

func NewRedeemer(lookup Lookup, log *zap.Logger) *Redeemer {
	return &Redeemer{lookup: lookup, log: log}
}

// Redeem applies code to store. A store that already has an active coupon is
// left untouched and ErrCouponActive is returned. Any other failure shows
// InvalidCouponMessage on the store and returns an error wrapping ErrInvalidCoupon.
func (r *Redeemer) Redeem(ctx context.Context, store *Store, code string) (domain.Coupon, error) {
	if _, ok := store.Active(); ok {
		return domain.Coupon{}, ErrCouponActive
	}

	code = strings.TrimSpace(code)
	if code == "" {
		store.ShowError(InvalidCouponMessage)
		return domain.Coupon{}, fmt.Errorf("%w: empty code", ErrInvalidCoupon)
	}

	c, err := r.lookup.FindCoupon(ctx, code)
	if err != nil {
		r.log.Info("coupon lookup failed", zap.String("code", code), zap.Error(err))
		store.ShowError(InvalidCouponMessage)
		return domain.Coupon{}, fmt.Errorf("%w: %w", ErrInvalidCoupon, err)
	}
	if !c.DiscountPercent.IsPositive() || c.DiscountPercent.GreaterThan(hundred) {
		r.log.Warn("coupon has out of range discount", zap.String("code", code), zap.Stringer("percent", c.DiscountPercent))
		store.ShowError(InvalidCouponMessage)
		return domain.Coupon{}, fmt.Errorf("%w: discount %s out of range", ErrInvalidCoupon, c.DiscountPercent)
	}

	if c.Code == "" {
		c.Code = code
	}
	// another redemption may have won while the lookup was in flight
	if !store.applyIfNone(*c) {
		return domain.Coupon{}, ErrCouponActive
	}
	return *c, nil
}
