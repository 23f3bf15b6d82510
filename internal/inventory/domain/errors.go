package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInventoryNotFound indicates the inventory record could not be located
	ErrInventoryNotFound = errors.New("inventory not found")
	// ErrInsufficientStock indicates an outbound movement would drive quantity negative
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrValidation signals the caller provided invalid data
	ErrValidation = errors.New("validation failed")
)

// InsufficientStockError carries the stock level that blocked a movement
type InsufficientStockError struct {
	InventoryID uint
	OnHand      int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for inventory %d: requested %d, on hand %d", e.InventoryID, e.Requested, e.OnHand)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// Validationf builds an ErrValidation with a message
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
