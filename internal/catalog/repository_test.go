package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRepo(t *testing.T) *Repository {
	repo, err := NewRepository(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.RunMigrations())
	return repo
}

func TestRunMigrations_Idempotent(t *testing.T) {
	repo := setupTestRepo(t)
	require.NoError(t, repo.RunMigrations())
}

func TestGetProduct_Seeded(t *testing.T) {
	repo := setupTestRepo(t)

	p, err := repo.GetProduct(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.ID)
	assert.Equal(t, "Logitech", p.Brand)
	assert.Equal(t, 30, p.Stock)
	assert.True(t, decimal.RequireFromString("59.90").Equal(p.Price))
}

func TestGetProduct_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.GetProduct(context.Background(), 999)
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestSaveProductAndSetStock(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	err := repo.SaveProduct(ctx, domain.Product{
		ID:    42,
		Name:  "Headset",
		Brand: "HyperX",
		Price: decimal.RequireFromString("89.99"),
		Stock: 3,
	})
	require.NoError(t, err)

	require.NoError(t, repo.SetStock(ctx, 42, 1))
	p, err := repo.GetProduct(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stock)
	assert.Equal(t, "89.99", p.Price.String())

	require.ErrorIs(t, repo.SetStock(ctx, 4242, 1), ErrProductNotFound)
}

func TestFindCoupon(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	c, err := repo.FindCoupon(ctx, "save20")
	require.NoError(t, err)
	assert.Equal(t, "SAVE20", c.Code)
	assert.Equal(t, "Save20", c.DisplayName)
	assert.True(t, decimal.NewFromInt(20).Equal(c.DiscountPercent))

	_, err = repo.FindCoupon(ctx, "OLD50")
	require.ErrorIs(t, err, ErrCouponNotFound, "inactive coupons are not redeemable")

	_, err = repo.FindCoupon(ctx, "MISSING")
	require.ErrorIs(t, err, ErrCouponNotFound)
}

func TestSaveCoupon_Deactivate(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	c := domain.Coupon{Code: "SPRING15", DisplayName: "Spring15", DiscountPercent: decimal.NewFromInt(15)}
	require.NoError(t, repo.SaveCoupon(ctx, c, true))
	_, err := repo.FindCoupon(ctx, "SPRING15")
	require.NoError(t, err)

	require.NoError(t, repo.SaveCoupon(ctx, c, false))
	_, err = repo.FindCoupon(ctx, "SPRING15")
	require.ErrorIs(t, err, ErrCouponNotFound)
}

func TestSaveProduct_RejectsInvalidEntries(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for _, p := range []domain.Product{
		{ID: 0, Name: "Nameless id", Price: decimal.NewFromInt(1)},
		{ID: 50, Name: "", Price: decimal.NewFromInt(1)},
		{ID: 51, Name: "Refund", Price: decimal.NewFromInt(-1)},
		{ID: 52, Name: "Oversold", Price: decimal.NewFromInt(1), Stock: -2},
	} {
		require.ErrorIs(t, repo.SaveProduct(ctx, p), ErrInvalidEntry, "product %d", p.ID)
	}

	_, err := repo.GetProduct(ctx, 51)
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestSaveCoupon_RejectsInvalidEntries(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for _, c := range []domain.Coupon{
		{Code: "", DiscountPercent: decimal.NewFromInt(10)},
		{Code: "FREEBIE", DiscountPercent: decimal.Zero},
		{Code: "TOOMUCH", DiscountPercent: decimal.NewFromInt(101)},
	} {
		require.ErrorIs(t, repo.SaveCoupon(ctx, c, true), ErrInvalidEntry, "coupon %q", c.Code)
	}
}
