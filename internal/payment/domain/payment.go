package domain

import (
	"context"
	"errors"
	"fmt"

	cartdomain "github.com/tair/commerce-core/internal/cart/domain"
	orderdomain "github.com/tair/commerce-core/internal/order/domain"
)

var (
	// ErrEmptyCart indicates checkout was attempted with no cart items
	ErrEmptyCart = errors.New("cart is empty")
	// ErrSignatureVerificationFailed indicates the gateway callback signature did not match.
	// The order is cancelled and cannot be confirmed again.
	ErrSignatureVerificationFailed = errors.New("payment signature verification failed")
	// ErrGatewayUnavailable indicates the gateway could not be reached. Safe to retry.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrGatewayRejected indicates the gateway refused the request
	ErrGatewayRejected = errors.New("payment gateway rejected the request")
	// ErrAlreadyPaid indicates a second, different payment was reported for a paid order
	ErrAlreadyPaid = errors.New("order is already paid")
	// ErrPaymentClosed indicates the order no longer accepts payment: it was cancelled,
	// its payment failed, or it was refunded
	ErrPaymentClosed = errors.New("order no longer accepts payment")
	// ErrValidation signals the caller provided invalid data
	ErrValidation = errors.New("validation failed")
)

// Validationf builds an ErrValidation with a message
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// PaymentClosedError carries the state of an order that refused a payment callback
type PaymentClosedError struct {
	Status        orderdomain.Status
	PaymentStatus orderdomain.PaymentStatus
}

func (e *PaymentClosedError) Error() string {
	return fmt.Sprintf("order no longer accepts payment (status: %s, payment status: %s)", e.Status, e.PaymentStatus)
}

func (e *PaymentClosedError) Unwrap() error {
	return ErrPaymentClosed
}

// CreateGatewayOrderRequest registers an order with the payment gateway.
// Amount is in minor currency units.
type CreateGatewayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// GatewayOrder is the gateway's view of a registered order
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Gateway is the external payment processor
type Gateway interface {
	CreateOrder(ctx context.Context, req CreateGatewayOrderRequest) (*GatewayOrder, error)
	// VerifySignature returns ErrSignatureVerificationFailed when the triple does not match
	VerifySignature(gatewayOrderID, paymentID, signature string) error
	Currency() string
}

// CartStore reads and clears customer carts
type CartStore interface {
	ListByCustomer(ctx context.Context, customerID uint) ([]cartdomain.CartItem, error)
	DeleteByCustomer(ctx context.Context, customerID uint) (int64, error)
}
