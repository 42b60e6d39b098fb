package cart

import (
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// State is an ordered list of line items, at most one per product.
// Insertion order is display order.
type State struct {
	Items []domain.LineItem `json:"items"`
}

func (s State) TotalItemCount() int {
	total := 0
	for _, item := range s.Items {
		total += item.Quantity
	}
	return total
}

func (s State) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ItemQuantity returns 0 when the product is not in the cart.
func (s State) ItemQuantity(productID int64) int {
	if i := s.indexOf(productID); i >= 0 {
		return s.Items[i].Quantity
	}
	return 0
}

// CanAdd reports whether adding quantity units of p keeps the cart within p's stock.
func (s State) CanAdd(p domain.Product, quantity int) bool {
	if quantity <= 0 {
		return false
	}
	return quantity <= p.Stock-s.ItemQuantity(p.ID)
}

func (s State) indexOf(productID int64) int {
	for i, item := range s.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// clone copies the item slice so reducer results never alias the input state.
func (s State) clone() State {
	items := make([]domain.LineItem, len(s.Items))
	copy(items, s.Items)
	return State{Items: items}
}
