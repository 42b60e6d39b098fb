package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	ErrProductNotFound = errors.New("product not found")
	ErrCouponNotFound  = errors.New("coupon not found")
	ErrInvalidEntry    = errors.New("invalid catalog entry")
)

// Repository is a local SQLite mirror of the storefront catalog.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations() error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migration source: %w", err)
	}

	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT id, name, brand, price, image_url, stock
		FROM products
		WHERE id = ?
	`

	p := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Brand,
		&p.Price,
		&p.Image,
		&p.Stock,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return p, nil
}

// FindCoupon looks up an active coupon. Codes match case-insensitively.
func (r *Repository) FindCoupon(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `
		SELECT code, display_name, discount_percent
		FROM coupons
		WHERE code = ? AND active = 1
	`

	c := &domain.Coupon{}
	err := r.db.QueryRowContext(ctx, query, code).Scan(&c.Code, &c.DisplayName, &c.DiscountPercent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCouponNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}

	return c, nil
}

// SaveProduct inserts p or replaces the product with the same id.
func (r *Repository) SaveProduct(ctx context.Context, p domain.Product) error {
	switch {
	case p.ID <= 0:
		return fmt.Errorf("%w: product id %d", ErrInvalidEntry, p.ID)
	case p.Name == "":
		return fmt.Errorf("%w: product %d has no name", ErrInvalidEntry, p.ID)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: product %d price %s", ErrInvalidEntry, p.ID, p.Price)
	case p.Stock < 0:
		return fmt.Errorf("%w: product %d stock %d", ErrInvalidEntry, p.ID, p.Stock)
	}

	query := `
		INSERT INTO products (id, name, brand, price, image_url, stock)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			brand = excluded.brand,
			price = excluded.price,
			image_url = excluded.image_url,
			stock = excluded.stock
	`

	_, err := r.db.ExecContext(ctx, query, p.ID, p.Name, p.Brand, p.Price.String(), p.Image, p.Stock)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

// SaveCoupon inserts c or replaces the coupon with the same code. Inactive
// coupons are kept but never returned by FindCoupon.
func (r *Repository) SaveCoupon(ctx context.Context, c domain.Coupon, active bool) error {
	if c.Code == "" {
		return fmt.Errorf("%w: coupon has no code", ErrInvalidEntry)
	}
	if !c.DiscountPercent.IsPositive() || c.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: coupon %s discount %s", ErrInvalidEntry, c.Code, c.DiscountPercent)
	}

	query := `
		INSERT INTO coupons (code, display_name, discount_percent, active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			display_name = excluded.display_name,
			discount_percent = excluded.discount_percent,
			active = excluded.active
	`

	_, err := r.db.ExecContext(ctx, query, c.Code, c.DisplayName, c.DiscountPercent.String(), active)
	if err != nil {
		return fmt.Errorf("failed to save coupon: %w", err)
	}
	return nil
}

func (r *Repository) SetStock(ctx context.Context, id int64, stock int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET stock = ? WHERE id = ?`, stock, id)
	if err != nil {
		return fmt.Errorf("failed to set stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set stock: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrProductNotFound, id)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
