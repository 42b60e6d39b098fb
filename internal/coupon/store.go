package coupon

import (
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

const DefaultAutoClearDelay = 2 * time.Second

const removedMessage = "Coupon removed"

// Store is a visitor's coupon state plus the notice shown about it.
// It is held in memory only.
type Store struct {
	mu        sync.Mutex
	state     State
	board     *Board
	autoClear time.Duration
}

func NewStore(autoClear time.Duration) *Store {
	if autoClear <= 0 {
		autoClear = DefaultAutoClearDelay
	}
	return &Store{
		board:     &Board{},
		autoClear: autoClear,
	}
}

// Apply replaces the active coupon wholesale.
func (s *Store) Apply(c domain.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Active = &c
	s.board.Post(KindSuccess, appliedMessage(c), 0)
}

// applyIfNone applies c only when no coupon is active, checked and set under
// one lock. It reports whether c was applied.
func (s *Store) applyIfNone(c domain.Coupon) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Active != nil {
		return false
	}
	s.state.Active = &c
	s.board.Post(KindSuccess, appliedMessage(c), 0)
	return true
}

func appliedMessage(c domain.Coupon) string {
	return fmt.Sprintf("Coupon %s applied: %s%% off", c.DisplayName, c.DiscountPercent.String())
}

func (s *Store) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Active = nil
	s.board.Post(KindSuccess, removedMessage, s.autoClear)
}

func (s *Store) ShowError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Active = nil
	s.board.Post(KindError, message, 0)
}

func (s *Store) ClearMessage() {
	s.board.Clear()
}

func (s *Store) Active() (domain.Coupon, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Active == nil {
		return domain.Coupon{}, false
	}
	return *s.state.Active, true
}

func (s *Store) DiscountedPrice(price decimal.Decimal) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DiscountedPrice(price)
}

func (s *Store) Notice() (Notice, bool) {
	return s.board.Current()
}

func (s *Store) Close() {
	s.board.Close()
}
