package orders

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrBadTransition = errors.New("illegal status transition")
)

// ValidationError marks a malformed request; the caller can fix and retry.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError: a requested item referenced a product that does not exist.
type NotFoundError struct{ ProductID int64 }

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product not found: %d", e.ProductID)
}

// InsufficientStockError: a sale would drive the product's stock negative.
// Nothing from the order creation is committed when it is returned.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}
