package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	orderdomain "github.com/tair/commerce-core/internal/order/domain"
	"github.com/tair/commerce-core/internal/payment/domain"
	productdomain "github.com/tair/commerce-core/internal/product/domain"
	"github.com/tair/commerce-core/kafka"
	"github.com/tair/commerce-core/pkg/database"
	"github.com/tair/commerce-core/pkg/logger"
)

var minorUnits = decimal.NewFromInt(100)

// ProductLookup reads current product prices
type ProductLookup interface {
	FindByIDs(ctx context.Context, ids []uint) (map[uint]productdomain.Product, error)
}

// CreatePaymentOrderCommand starts checkout for the customer's current cart
type CreatePaymentOrderCommand struct {
	CustomerID    uint
	AddressID     *uint
	PaymentMethod string
	Notes         *string
}

// CreatePaymentOrderResult carries the stored order and its gateway registration
type CreatePaymentOrderResult struct {
	Order        *orderdomain.Order
	GatewayOrder *domain.GatewayOrder
}

// CreatePaymentOrderHandler handles create payment order command
type CreatePaymentOrderHandler struct {
	tx        database.Transactor
	orders    orderdomain.OrderRepository
	carts     domain.CartStore
	products  ProductLookup
	gateway   domain.Gateway
	publisher kafka.EventPublisher
}

// NewCreatePaymentOrderHandler creates a new create payment order handler
func NewCreatePaymentOrderHandler(
	tx database.Transactor,
	orders orderdomain.OrderRepository,
	carts domain.CartStore,
	products ProductLookup,
	gateway domain.Gateway,
	publisher kafka.EventPublisher,
) *CreatePaymentOrderHandler {
	return &CreatePaymentOrderHandler{
		tx:        tx,
		orders:    orders,
		carts:     carts,
		products:  products,
		gateway:   gateway,
		publisher: publisher,
	}
}

// Handle prices the cart, registers the order with the gateway and then stores the
// order and its items in one transaction. Nothing is stored when the gateway fails.
func (h *CreatePaymentOrderHandler) Handle(ctx context.Context, cmd CreatePaymentOrderCommand) (*CreatePaymentOrderResult, error) {
	if cmd.CustomerID == 0 {
		return nil, domain.Validationf("customer_id is required")
	}

	cart, err := h.carts.ListByCustomer(ctx, cmd.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(cart) == 0 {
		return nil, domain.ErrEmptyCart
	}

	ids := make([]uint, 0, len(cart))
	for _, line := range cart {
		ids = append(ids, line.ProductID)
	}
	products, err := h.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	items := make([]orderdomain.OrderItem, 0, len(cart))
	for _, line := range cart {
		if line.Quantity <= 0 {
			return nil, domain.Validationf("cart line for product %d has no quantity", line.ProductID)
		}
		price := line.Price
		if !price.IsPositive() {
			product, ok := products[line.ProductID]
			if !ok {
				return nil, domain.Validationf("product %d in cart no longer exists", line.ProductID)
			}
			price = product.Price
		}
		items = append(items, orderdomain.NewOrderItem(line.ProductID, line.Quantity, price))
	}

	order := orderdomain.NewOrder(cmd.CustomerID, cmd.AddressID, cmd.PaymentMethod, cmd.Notes, items)

	gatewayOrder, err := h.gateway.CreateOrder(ctx, domain.CreateGatewayOrderRequest{
		Amount:   order.TotalAmount.Mul(minorUnits).Round(0).IntPart(),
		Currency: h.gateway.Currency(),
		Receipt:  order.OrderNumber,
		Notes:    map[string]string{"customer_id": fmt.Sprint(cmd.CustomerID)},
	})
	if err != nil {
		if errors.Is(err, domain.ErrGatewayUnavailable) || errors.Is(err, domain.ErrGatewayRejected) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	order.GatewayOrderID = &gatewayOrder.ID

	err = h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return h.orders.Create(ctx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store order: %w", err)
	}

	logger.Info(ctx).
		Uint("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Str("gateway_order_id", gatewayOrder.ID).
		Str("total_amount", order.TotalAmount.StringFixed(2)).
		Msg("Checkout order created")

	kafka.PublishBestEffort(ctx, h.publisher, kafka.OrderCreatedEvent{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		CustomerID:     order.CustomerID,
		TotalAmount:    order.TotalAmount.StringFixed(2),
		GatewayOrderID: gatewayOrder.ID,
		OccurredAt:     time.Now().UTC(),
	})

	return &CreatePaymentOrderResult{Order: order, GatewayOrder: gatewayOrder}, nil
}
