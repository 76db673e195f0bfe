package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount   = errors.New("amount must be zero or positive")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrEmptyOrder      = errors.New("order has no items")
	ErrProductNotFound = errors.New("product not found")
	ErrProductDeleted  = errors.New("product is deleted")
	ErrOrderNotFound   = errors.New("order not found")

	// ErrInsufficientStock classifies InsufficientStockError for errors.Is.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrLockWaitTimeout is returned when a product row lock could not be
	// acquired within the configured wait window. Transient: the caller
	// may retry the whole placement.
	ErrLockWaitTimeout = errors.New("lock wait timeout")
)

// InsufficientStockError carries the quantities a caller needs to react
// programmatically, not just a message.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (available: %d, requested: %d)",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }
