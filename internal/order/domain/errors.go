package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound indicates the order could not be located
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidTransition indicates the status table forbids the requested change
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotRefundable indicates the payment state does not allow a refund
	ErrNotRefundable = errors.New("order is not refundable")
	// ErrValidation signals the caller provided invalid data
	ErrValidation = errors.New("validation failed")
)

// InvalidTransitionError carries both ends of a rejected transition
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// NotRefundableError carries the payment status that blocked a refund
type NotRefundableError struct {
	PaymentStatus PaymentStatus
}

func (e *NotRefundableError) Error() string {
	return fmt.Sprintf("Cannot refund order with payment status: %s", e.PaymentStatus)
}

func (e *NotRefundableError) Unwrap() error {
	return ErrNotRefundable
}

// Validationf builds an ErrValidation with a message
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
