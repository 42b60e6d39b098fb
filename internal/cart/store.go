package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	keyPrefix     = "cart:"
	formatVersion = 1
)

// Key returns the storage key holding a visitor's cart.
func Key(visitorID string) string {
	return keyPrefix + visitorID
}

type snapshot struct {
	Version int               `json:"version"`
	Items   []domain.LineItem `json:"items"`
}

// Store is a visitor cart persisted write-through to a key-value store.
// Every accepted mutation is written before it becomes visible.
type Store struct {
	mu    sync.Mutex
	kv    storage.KV
	key   string
	state State
	log   *zap.Logger
}

// Open hydrates the cart stored under key. A missing or unreadable value
// yields an empty cart; only storage I/O failures are returned.
func Open(ctx context.Context, kv storage.KV, key string, log *zap.Logger) (*Store, error) {
	s := &Store{
		kv:    kv,
		key:   key,
		state: State{Items: []domain.LineItem{}},
		log:   log.With(zap.String("cart_key", key)),
	}

	data, err := kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}

	items, err := decode(data)
	if err != nil {
		s.log.Warn("discarding unreadable cart", zap.Error(err))
		return s, nil
	}

	out, _ := Reduce(s.state, Load(items))
	if dropped := len(items) - len(out.State.Items); dropped > 0 {
		s.log.Warn("dropped invalid line items on load", zap.Int("dropped", dropped))
	}
	s.state = out.State
	return s, nil
}

func (s *Store) AddItem(ctx context.Context, p domain.Product, quantity int) error {
	return s.Dispatch(ctx, Add(p, quantity))
}

func (s *Store) RemoveItem(ctx context.Context, productID int64) error {
	return s.Dispatch(ctx, Remove(productID))
}

func (s *Store) UpdateQuantity(ctx context.Context, productID int64, quantity int) error {
	return s.Dispatch(ctx, UpdateQuantity(productID, quantity))
}

func (s *Store) Clear(ctx context.Context) error {
	return s.Dispatch(ctx, Clear())
}

// Dispatch runs a through the reducer and persists the result when it changed
// the cart. On a storage failure the in-memory cart keeps its previous state.
func (s *Store) Dispatch(ctx context.Context, a Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := Reduce(s.state, a)
	if err != nil {
		return err
	}
	if !out.Changed {
		return nil
	}

	if err := s.persist(ctx, out.State); err != nil {
		s.log.Error("cart write failed", zap.Stringer("action", a.Kind), zap.Error(err))
		return err
	}
	s.state = out.State
	return nil
}

// Snapshot returns a copy of the current cart.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Store) TotalItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TotalItemCount()
}

func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TotalPrice()
}

func (s *Store) ItemQuantity(productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ItemQuantity(productID)
}

func (s *Store) CanAdd(p domain.Product, quantity int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CanAdd(p, quantity)
}

func (s *Store) persist(ctx context.Context, st State) error {
	data, err := json.Marshal(snapshot{Version: formatVersion, Items: st.Items})
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("failed to write cart: %w", err)
	}
	return nil
}

// decode accepts the versioned snapshot and the older bare item array.
func decode(data []byte) ([]domain.LineItem, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []domain.LineItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("unmarshal cart failed: %w", err)
		}
		return items, nil
	}

	var snap snapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	if snap.Version > formatVersion {
		return nil, fmt.Errorf("unsupported cart format version %d", snap.Version)
	}
	return snap.Items, nil
}
