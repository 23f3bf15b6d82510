package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a customer's purchase with its line items, fulfilment status and payment state
type Order struct {
	ID               uint                `json:"id" gorm:"primaryKey"`
	OrderNumber      string              `json:"order_number" gorm:"size:32;uniqueIndex;not null"`
	CustomerID       uint                `json:"customer_id" gorm:"not null;index"`
	AddressID        *uint               `json:"address_id,omitempty"`
	TotalAmount      decimal.Decimal     `json:"total_amount" gorm:"type:numeric(12,2);not null"`
	Status           Status              `json:"status" gorm:"size:20;not null;index"`
	PaymentStatus    PaymentStatus       `json:"payment_status" gorm:"size:20;not null;index"`
	PaymentMethod    string              `json:"payment_method" gorm:"size:50"`
	GatewayOrderID   *string             `json:"gateway_order_id,omitempty" gorm:"size:100;uniqueIndex"`
	GatewayPaymentID *string             `json:"gateway_payment_id,omitempty" gorm:"size:100"`
	PaymentError     *string             `json:"payment_error,omitempty"`
	PaidAt           *time.Time          `json:"paid_at,omitempty"`
	RefundAmount     decimal.NullDecimal `json:"refund_amount" gorm:"type:numeric(12,2)"`
	Notes            *string             `json:"notes,omitempty"`
	Items            []OrderItem         `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// TableName specifies the table name
func (Order) TableName() string {
	return "orders"
}

// OrderItem is one product line of an order. Price is the unit price captured
// when the order was placed and never changes afterwards.
type OrderItem struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	OrderID   uint            `json:"order_id" gorm:"not null;index"`
	ProductID uint            `json:"product_id" gorm:"not null;index"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Subtotal  decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2);not null"`
	CreatedAt time.Time       `json:"created_at"`
}

// TableName specifies the table name
func (OrderItem) TableName() string {
	return "order_items"
}

// NewOrderItem snapshots price and computes the subtotal
func NewOrderItem(productID uint, quantity int, price decimal.Decimal) OrderItem {
	return OrderItem{
		ProductID: productID,
		Quantity:  quantity,
		Price:     price,
		Subtotal:  price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// NewOrder builds a pending order whose total is the sum of its item subtotals
func NewOrder(customerID uint, addressID *uint, paymentMethod string, notes *string, items []OrderItem) *Order {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}

	return &Order{
		OrderNumber:   NewOrderNumber(),
		CustomerID:    customerID,
		AddressID:     addressID,
		TotalAmount:   total,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		PaymentMethod: paymentMethod,
		Notes:         notes,
		Items:         items,
	}
}

// NewOrderNumber returns an identifier of the form ORD-XXXXXXXX
func NewOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8])
}

// CanBeCancelled reports whether the order may still be cancelled. It agrees with the
// transition table: pending, confirmed and processing orders can move to cancelled.
func (o *Order) CanBeCancelled() bool {
	return CanTransition(o.Status, StatusCancelled)
}

// CanAcceptPayment reports whether a gateway callback may still settle or fail the
// payment. Only an order still waiting for its first payment qualifies.
func (o *Order) CanAcceptPayment() bool {
	return o.Status == StatusPending && o.PaymentStatus == PaymentPending
}

// CanBeShipped reports whether the order is ready to ship
func (o *Order) CanBeShipped() bool {
	return o.Status == StatusProcessing && o.PaymentStatus.IsSettled()
}

// CanBeRefunded reports whether the payment can be refunded
func (o *Order) CanBeRefunded() bool {
	return o.PaymentStatus.IsSettled()
}

// TransitionTo moves the order to the target status when the table allows it
func (o *Order) TransitionTo(target Status) error {
	if !target.IsValid() {
		return Validationf("unknown status %q", target)
	}
	if !CanTransition(o.Status, target) {
		return &InvalidTransitionError{From: o.Status, To: target}
	}
	o.Status = target
	return nil
}

// MarkPaid records a confirmed gateway payment
func (o *Order) MarkPaid(paymentID string, at time.Time) {
	o.PaymentStatus = PaymentPaid
	o.Status = StatusConfirmed
	o.GatewayPaymentID = &paymentID
	o.PaymentError = nil
	o.PaidAt = &at
}

// MarkPaymentFailed records a failed or rejected payment and cancels the order
func (o *Order) MarkPaymentFailed(reason string) {
	o.PaymentStatus = PaymentFailed
	o.Status = StatusCancelled
	if reason != "" {
		o.PaymentError = &reason
	}
}

// Refund marks the payment refunded. A nil amount refunds the full total.
func (o *Order) Refund(amount *decimal.Decimal) error {
	if !o.CanBeRefunded() {
		return &NotRefundableError{PaymentStatus: o.PaymentStatus}
	}

	refund := o.TotalAmount
	if amount != nil {
		refund = *amount
	}
	if !refund.IsPositive() {
		return Validationf("refund amount must be positive")
	}
	if refund.GreaterThan(o.TotalAmount) {
		return Validationf("refund amount %s exceeds order total %s", refund.StringFixed(2), o.TotalAmount.StringFixed(2))
	}

	o.PaymentStatus = PaymentRefunded
	o.RefundAmount = decimal.NullDecimal{Decimal: refund, Valid: true}
	return nil
}

// OrderFilter narrows ListOrders results
type OrderFilter struct {
	CustomerID    *uint
	Status        *Status
	PaymentStatus *PaymentStatus
	Limit         int
	Offset        int
}

// OrderRepository defines the contract for order data access. Lock* methods take a
// row lock and must run inside a transaction.
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id uint) (*Order, error)
	FindByNumber(ctx context.Context, number string) (*Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Order, error)
	LockByID(ctx context.Context, id uint) (*Order, error)
	LockByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Order, error)
	FindAll(ctx context.Context, filter OrderFilter) ([]Order, int64, error)
	Update(ctx context.Context, order *Order) error
	Delete(ctx context.Context, id uint) error
}
