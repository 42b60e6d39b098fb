package cart

import "errors"

var (
	ErrStockExceeded   = errors.New("quantity exceeds available stock")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrItemNotFound    = errors.New("item not found in cart")
)
