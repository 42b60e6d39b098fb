package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/coupon"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrVisitorRequired = errors.New("visitor id is required")
	ErrClosed          = errors.New("storefront is closed")
)

type Options struct {
	AutoClearDelay  time.Duration // coupon removal notice lifetime
	SessionIdleTTL  time.Duration // idle sessions are dropped after this long
	CleanupInterval time.Duration
	HydrateTimeout  time.Duration // bound on loading a visitor's cart from storage
}

// session is one visitor's cart and coupon. Only the cart survives eviction.
type session struct {
	cart     *cart.Store
	coupon   *coupon.Store
	mu       sync.Mutex
	lastSeen time.Time
}

func (s *session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

type Storefront struct {
	kv       storage.KV
	catalog  catalog.Source
	redeemer *coupon.Redeemer
	log      *zap.Logger
	opts     Options

	sfg      singleflight.Group // deduplicates concurrent cart hydration per visitor
	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool

	stopCleanup chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup
}

func NewStorefront(kv storage.KV, source catalog.Source, log *zap.Logger, opts Options) *Storefront {
	if opts.AutoClearDelay <= 0 {
		opts.AutoClearDelay = coupon.DefaultAutoClearDelay
	}
	if opts.SessionIdleTTL <= 0 {
		opts.SessionIdleTTL = 30 * time.Minute
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Minute
	}
	if opts.HydrateTimeout <= 0 {
		opts.HydrateTimeout = 5 * time.Second
	}

	s := &Storefront{
		kv:          kv,
		catalog:     source,
		redeemer:    coupon.NewRedeemer(source, log),
		log:         log,
		opts:        opts,
		sessions:    make(map[string]*session),
		stopCleanup: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

// Summary is the cart as shown to the visitor, priced with the active coupon.
type Summary struct {
	Items           []Line           `json:"items"`
	TotalItems      int              `json:"total_items"`
	TotalPrice      decimal.Decimal  `json:"total_price"`
	DiscountedTotal *decimal.Decimal `json:"discounted_total,omitempty"`
	Coupon          *domain.Coupon   `json:"coupon,omitempty"`
}

type Line struct {
	domain.LineItem
	Subtotal           decimal.Decimal  `json:"subtotal"`
	DiscountedSubtotal *decimal.Decimal `json:"discounted_subtotal,omitempty"`
}

type CouponStatus struct {
	Coupon *domain.Coupon `json:"coupon,omitempty"`
	Notice *coupon.Notice `json:"notice,omitempty"`
}

func (s *Storefront) Cart(ctx context.Context, visitorID string) (*Summary, error) {
	sess, err := s.session(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	return summarize(sess), nil
}

// AddItem adds quantity units of a catalog product using its current stock as the snapshot.
func (s *Storefront) AddItem(ctx context.Context, visitorID string, productID int64, quantity int) (*Summary, error) {
	sess, err := s.session(ctx, visitorID)
	if err != nil {
		return nil, err
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := sess.cart.AddItem(ctx, *product, quantity); err != nil {
		return nil, err
	}
	return summarize(sess), nil
}

func (s *Storefront) CanAdd(ctx context.Context, visitorID string, productID int64, quantity int) (bool, error) {
	sess, err := s.session(ctx, visitorID)
	if err != nil {
		return false, err
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return false, err
	}
	return sess.cart.CanAdd(*product, quantity), nil
}

func (s *Storefront) UpdateQuantity(ctx context.Context, visitorID string, productID int64, quantity int) (*Summary, error) {
	sess, err := s.session(ctx, visitorID)
	if err != nil {
		return nil, err
	}

	if err := sess.cart.UpdateQuantity(ctx, productID, quantity); err != nil {
		return nil, err
	}
	return summarize(sess), nil
}

func (s *Storefront) RemoveItem(ctx context.Context, visitorID string, productID int64) (*Summary, error) {
	sess, err := s.session(ctx, visitorID)
	if err != nil {
		return nil, err
	}

	if err := sess.cart.RemoveItem(ctx, productID); err != nil {
		return nil, err
	}
	return summarize(sess), nil
}

func (s *Storefront) ClearCart(ctx context.Context, visitorID string) (*Summary, error) {
	sess, err := s.session(ctx, visitorID)
	if err != nil {
		return nil, err
	}

	if err := sess.cart.Clear(ctx); err != nil {
		return nil, err
	}
	return summarize(sess), nil
}

func (s *Storefront) RedeemCoupon(ctx context.Context, visitorID, code string) (*CouponStatus, error) {
	sess, err := s.session(ctx, visitorID)
	if err != nil {
		return nil, err
	}

	if _, err := s.redeemer.Redeem(ctx, sess.coupon, code); err != nil {
		return couponStatus(sess), err
	}
	return couponStatus(sess), nil
}

func (s *Storefront) RemoveCoupon(ctx context.Context, visitorID string) (*CouponStatus, error) {
	sess, err := s.session(ctx, visitorID)
	if err != nil {
		return nil, err
	}

	sess.coupon.Remove()
	return couponStatus(sess), nil
}

func (s *Storefront) CouponStatus(ctx context.Context, visitorID string) (*CouponStatus, error) {
	sess, err := s.session(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	return couponStatus(sess), nil
}

func (s *Storefront) ClearCouponMessage(ctx context.Context, visitorID string) (*CouponStatus, error) {
	sess, err := s.session(ctx, visitorID)
	if err != nil {
		return nil, err
	}

	sess.coupon.ClearMessage()
	return couponStatus(sess), nil
}

// CheckoutCompleted empties the visitor's cart once an order has been placed.
func (s *Storefront) CheckoutCompleted(ctx context.Context, visitorID string) error {
	sess, err := s.session(ctx, visitorID)
	if err != nil {
		return err
	}

	if err := sess.cart.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cart after checkout: %w", err)
	}
	s.log.Info("cart cleared after checkout", zap.String("visitor_id", visitorID))
	return nil
}

// Close stops the cleanup loop and cancels pending coupon notices. Later
// calls on the storefront fail with ErrClosed. Close may be called more than once.
func (s *Storefront) Close() {
	s.closeOnce.Do(func() {
		close(s.stopCleanup)
		s.wg.Wait()

		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		for id, sess := range s.sessions {
			sess.coupon.Close()
			delete(s.sessions, id)
		}
	})
}

func (s *Storefront) session(ctx context.Context, visitorID string) (*session, error) {
	if visitorID == "" {
		return nil, ErrVisitorRequired
	}

	s.mu.RLock()
	sess, ok := s.sessions[visitorID]
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if ok {
		sess.touch()
		return sess, nil
	}

	v, err, _ := s.sfg.Do(visitorID, func() (interface{}, error) {
		s.mu.RLock()
		existing, ok := s.sessions[visitorID]
		s.mu.RUnlock()
		if ok {
			return existing, nil
		}

		// shared by every caller waiting on this visitor, so it must not
		// inherit the first caller's cancellation
		openCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.HydrateTimeout)
		defer cancel()
		store, err := cart.Open(openCtx, s.kv, cart.Key(visitorID), s.log)
		if err != nil {
			return nil, err
		}

		created := &session{
			cart:     store,
			coupon:   coupon.NewStore(s.opts.AutoClearDelay),
			lastSeen: time.Now(),
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			created.coupon.Close()
			return nil, ErrClosed
		}
		s.sessions[visitorID] = created
		return created, nil
	})
	if err != nil {
		return nil, err
	}

	sess = v.(*session)
	sess.touch()
	return sess, nil
}

func (s *Storefront) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictIdle(time.Now())
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *Storefront) evictIdle(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.sessions {
		if sess.idleSince(now) >= s.opts.SessionIdleTTL {
			sess.coupon.Close()
			delete(s.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		s.log.Debug("evicted idle sessions", zap.Int("count", evicted))
	}
	return evicted
}

func summarize(sess *session) *Summary {
	state := sess.cart.Snapshot()

	summary := &Summary{
		Items:      make([]Line, len(state.Items)),
		TotalItems: state.TotalItemCount(),
		TotalPrice: state.TotalPrice(),
	}
	if c, ok := sess.coupon.Active(); ok {
		summary.Coupon = &c
	}

	for i, item := range state.Items {
		line := Line{LineItem: item, Subtotal: item.Subtotal()}
		if d, ok := sess.coupon.DiscountedPrice(line.Subtotal); ok {
			line.DiscountedSubtotal = &d
		}
		summary.Items[i] = line
	}
	if d, ok := sess.coupon.DiscountedPrice(summary.TotalPrice); ok {
		summary.DiscountedTotal = &d
	}

	return summary
}

func couponStatus(sess *session) *CouponStatus {
	status := &CouponStatus{}
	if c, ok := sess.coupon.Active(); ok {
		status.Coupon = &c
	}
	if n, ok := sess.coupon.Notice(); ok {
		status.Notice = &n
	}
	return status
}
