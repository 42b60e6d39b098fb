package cart

import (
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type ActionKind int

const (
	ActionAdd ActionKind = iota
	ActionRemove
	ActionUpdateQuantity
	ActionClear
	ActionLoad
)

func (k ActionKind) String() string {
	switch k {
	case ActionAdd:
		return "ADD"
	case ActionRemove:
		return "REMOVE"
	case ActionUpdateQuantity:
		return "UPDATE_QUANTITY"
	case ActionClear:
		return "CLEAR"
	case ActionLoad:
		return "LOAD"
	default:
		return "UNKNOWN"
	}
}

// Action is a cart mutation. Only the fields relevant to Kind are read.
type Action struct {
	Kind      ActionKind
	Product   domain.Product
	ProductID int64
	Quantity  int
	Items     []domain.LineItem
}

func Add(p domain.Product, quantity int) Action {
	return Action{Kind: ActionAdd, Product: p, ProductID: p.ID, Quantity: quantity}
}

func Remove(productID int64) Action {
	return Action{Kind: ActionRemove, ProductID: productID}
}

func UpdateQuantity(productID int64, quantity int) Action {
	return Action{Kind: ActionUpdateQuantity, ProductID: productID, Quantity: quantity}
}

func Clear() Action {
	return Action{Kind: ActionClear}
}

func Load(items []domain.LineItem) Action {
	return Action{Kind: ActionLoad, Items: items}
}

// Outcome is the result of an accepted action. Changed is false for no-ops
// such as removing a product that is not in the cart.
type Outcome struct {
	State   State
	Changed bool
}

// Reduce applies a to s. A rejected action returns the input state unchanged
// together with the reason.
func Reduce(s State, a Action) (Outcome, error) {
	switch a.Kind {
	case ActionAdd:
		return reduceAdd(s, a.Product, a.Quantity)
	case ActionRemove:
		return reduceRemove(s, a.ProductID), nil
	case ActionUpdateQuantity:
		return reduceUpdate(s, a.ProductID, a.Quantity)
	case ActionClear:
		return Outcome{State: State{Items: []domain.LineItem{}}, Changed: true}, nil
	case ActionLoad:
		return Outcome{State: normalize(a.Items), Changed: true}, nil
	default:
		return Outcome{State: s}, fmt.Errorf("unknown cart action %d", a.Kind)
	}
}

func reduceAdd(s State, p domain.Product, quantity int) (Outcome, error) {
	if quantity <= 0 {
		return Outcome{State: s}, ErrInvalidQuantity
	}

	i := s.indexOf(p.ID)
	if i < 0 {
		if quantity > p.Stock {
			return Outcome{State: s}, stockExceeded(p.ID, quantity, p.Stock)
		}
		next := s.clone()
		next.Items = append(next.Items, domain.NewLineItem(p, quantity))
		return Outcome{State: next, Changed: true}, nil
	}

	// compared against the remaining room so huge quantities cannot wrap the sum
	room := p.Stock - s.Items[i].Quantity
	if quantity > room {
		return Outcome{State: s}, stockExceeded(p.ID, quantity, max(room, 0))
	}
	merged := s.Items[i].Quantity + quantity
	next := s.clone()
	// refresh the snapshot so price and stock reflect the latest descriptor
	next.Items[i] = domain.NewLineItem(p, merged)
	return Outcome{State: next, Changed: true}, nil
}

func reduceRemove(s State, productID int64) Outcome {
	i := s.indexOf(productID)
	if i < 0 {
		return Outcome{State: s}
	}
	next := State{Items: make([]domain.LineItem, 0, len(s.Items)-1)}
	next.Items = append(next.Items, s.Items[:i]...)
	next.Items = append(next.Items, s.Items[i+1:]...)
	return Outcome{State: next, Changed: true}
}

func reduceUpdate(s State, productID int64, quantity int) (Outcome, error) {
	if quantity <= 0 {
		return reduceRemove(s, productID), nil
	}

	i := s.indexOf(productID)
	if i < 0 {
		return Outcome{State: s}, ErrItemNotFound
	}
	if quantity > s.Items[i].Stock {
		return Outcome{State: s}, stockExceeded(productID, quantity, s.Items[i].Stock)
	}
	if quantity == s.Items[i].Quantity {
		return Outcome{State: s}, nil
	}
	next := s.clone()
	next.Items[i].Quantity = quantity
	return Outcome{State: next, Changed: true}, nil
}

// normalize keeps the first occurrence of each product and drops items that
// break the stock-bound invariant.
func normalize(items []domain.LineItem) State {
	out := State{Items: make([]domain.LineItem, 0, len(items))}
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.ProductID]; dup || !item.Valid() {
			continue
		}
		seen[item.ProductID] = struct{}{}
		out.Items = append(out.Items, item)
	}
	return out
}

func stockExceeded(productID int64, requested, available int) error {
	return fmt.Errorf("%w: product %d requested %d, available %d", ErrStockExceeded, productID, requested, available)
}
