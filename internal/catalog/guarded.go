package catalog

import (
	"context"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/pkg/circuitbreaker"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Source is the catalog the storefront reads product and coupon descriptors from.
type Source interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	FindCoupon(ctx context.Context, code string) (*domain.Coupon, error)
}

// Guarded puts each lookup behind its own circuit breaker. Not-found results
// do not count as failures.
type Guarded struct {
	source   Source
	products *gobreaker.CircuitBreaker[*domain.Product]
	coupons  *gobreaker.CircuitBreaker[*domain.Coupon]
}

func NewGuarded(source Source, timeout time.Duration, log *zap.Logger) *Guarded {
	return &Guarded{
		source: source,
		products: circuitbreaker.New[*domain.Product](circuitbreaker.Config{
			Name:        "catalog-products",
			MaxRequests: 1,
			Timeout:     timeout,
		}, log, ErrProductNotFound),
		coupons: circuitbreaker.New[*domain.Coupon](circuitbreaker.Config{
			Name:        "catalog-coupons",
			MaxRequests: 1,
			Timeout:     timeout,
		}, log, ErrCouponNotFound),
	}
}

func (g *Guarded) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return g.products.Execute(func() (*domain.Product, error) {
		return g.source.GetProduct(ctx, id)
	})
}

func (g *Guarded) FindCoupon(ctx context.Context, code string) (*domain.Coupon, error) {
	return g.coupons.Execute(func() (*domain.Coupon, error) {
		return g.source.FindCoupon(ctx, code)
	})
}
