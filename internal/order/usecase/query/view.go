package query

import (
	"time"

	"github.com/tair/commerce-core/internal/order/domain"
)

// OrderView is a fully materialized read model of an order
type OrderView struct {
	ID               uint            `json:"id"`
	OrderNumber      string          `json:"order_number"`
	CustomerID       uint            `json:"customer_id"`
	AddressID        *uint           `json:"address_id,omitempty"`
	TotalAmount      string          `json:"total_amount"`
	Status           domain.Status   `json:"status"`
	PaymentStatus    string          `json:"payment_status"`
	PaymentMethod    string          `json:"payment_method"`
	GatewayOrderID   *string         `json:"gateway_order_id,omitempty"`
	GatewayPaymentID *string         `json:"gateway_payment_id,omitempty"`
	PaymentError     *string         `json:"payment_error,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	RefundAmount     *string         `json:"refund_amount,omitempty"`
	Notes            *string         `json:"notes,omitempty"`
	Items            []OrderItemView `json:"items"`
	NextStatuses     []domain.Status `json:"next_statuses"`
	CanBeCancelled   bool            `json:"can_be_cancelled"`
	CanBeShipped     bool            `json:"can_be_shipped"`
	CanBeRefunded    bool            `json:"can_be_refunded"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// OrderItemView is one line of an OrderView
type OrderItemView struct {
	ProductID uint   `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Subtotal  string `json:"subtotal"`
}

// NewOrderView builds the read model of order
func NewOrderView(order *domain.Order) OrderView {
	view := OrderView{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		CustomerID:       order.CustomerID,
		AddressID:        order.AddressID,
		TotalAmount:      order.TotalAmount.StringFixed(2),
		Status:           order.Status,
		PaymentStatus:    string(order.PaymentStatus),
		PaymentMethod:    order.PaymentMethod,
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: order.GatewayPaymentID,
		PaymentError:     order.PaymentError,
		PaidAt:           order.PaidAt,
		Notes:            order.Notes,
		Items:            make([]OrderItemView, 0, len(order.Items)),
		NextStatuses:     domain.NextStatuses(order.Status),
		CanBeCancelled:   order.CanBeCancelled(),
		CanBeShipped:     order.CanBeShipped(),
		CanBeRefunded:    order.CanBeRefunded(),
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}

	if order.RefundAmount.Valid {
		amount := order.RefundAmount.Decimal.StringFixed(2)
		view.RefundAmount = &amount
	}

	for _, item := range order.Items {
		view.Items = append(view.Items, OrderItemView{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price.StringFixed(2),
			Subtotal:  item.Subtotal.StringFixed(2),
		})
	}

	return view
}
