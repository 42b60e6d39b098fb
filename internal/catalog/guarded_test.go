package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sourceStub struct {
	err   error
	calls int
}

func (s *sourceStub) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Product{ID: id, Stock: 1}, nil
}

func (s *sourceStub) FindCoupon(_ context.Context, code string) (*domain.Coupon, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Coupon{Code: code}, nil
}

func TestGuarded_PassesThrough(t *testing.T) {
	g := NewGuarded(&sourceStub{}, time.Minute, zap.NewNop())

	p, err := g.GetProduct(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.ID)

	c, err := g.FindCoupon(context.Background(), "SAVE20")
	require.NoError(t, err)
	assert.Equal(t, "SAVE20", c.Code)
}

func TestGuarded_NotFoundDoesNotOpen(t *testing.T) {
	stub := &sourceStub{err: ErrCouponNotFound}
	g := NewGuarded(stub, time.Minute, zap.NewNop())

	for i := 0; i < 10; i++ {
		_, err := g.FindCoupon(context.Background(), "NOPE")
		require.ErrorIs(t, err, ErrCouponNotFound)
	}
	assert.Equal(t, 10, stub.calls)
}

func TestGuarded_OpensOnRepeatedFailures(t *testing.T) {
	stub := &sourceStub{err: errors.New("database is locked")}
	g := NewGuarded(stub, time.Minute, zap.NewNop())

	for i := 0; i < 5; i++ {
		_, err := g.GetProduct(context.Background(), 1)
		require.Error(t, err)
	}

	_, err := g.GetProduct(context.Background(), 1)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, stub.calls)

	// coupon lookups have their own breaker
	_, err = g.FindCoupon(context.Background(), "SAVE20")
	assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
}
