package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tair/commerce-core/internal/order/domain"
	productdomain "github.com/tair/commerce-core/internal/product/domain"
	"github.com/tair/commerce-core/kafka"
	"github.com/tair/commerce-core/pkg/database"
	"github.com/tair/commerce-core/pkg/logger"
)

// ProductLookup reads current product prices
type ProductLookup interface {
	FindByIDs(ctx context.Context, ids []uint) (map[uint]productdomain.Product, error)
}

// CreateOrderItem is one requested line of a direct order
type CreateOrderItem struct {
	ProductID uint
	Quantity  int
}

// CreateOrderCommand places an order without going through the cart and gateway.
// Lines are priced at the current product price.
type CreateOrderCommand struct {
	CustomerID    uint
	AddressID     *uint
	Items         []CreateOrderItem
	PaymentMethod string
	Notes         *string
}

// CreateOrderHandler handles create order command
type CreateOrderHandler struct {
	tx        database.Transactor
	repo      domain.OrderRepository
	products  ProductLookup
	publisher kafka.EventPublisher
}

// NewCreateOrderHandler creates a new create order handler
func NewCreateOrderHandler(tx database.Transactor, repo domain.OrderRepository, products ProductLookup, publisher kafka.EventPublisher) *CreateOrderHandler {
	return &CreateOrderHandler{tx: tx, repo: repo, products: products, publisher: publisher}
}

// Handle executes the create order command
func (h *CreateOrderHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error) {
	if cmd.CustomerID == 0 {
		return nil, domain.Validationf("customer_id is required")
	}
	if len(cmd.Items) == 0 {
		return nil, domain.Validationf("at least one item is required")
	}

	ids := make([]uint, 0, len(cmd.Items))
	for _, item := range cmd.Items {
		if item.ProductID == 0 {
			return nil, domain.Validationf("product_id is required")
		}
		if item.Quantity <= 0 {
			return nil, domain.Validationf("quantity for product %d must be positive", item.ProductID)
		}
		ids = append(ids, item.ProductID)
	}

	var order *domain.Order
	err := h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		products, err := h.products.FindByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to load products: %w", err)
		}

		items := make([]domain.OrderItem, 0, len(cmd.Items))
		for _, item := range cmd.Items {
			product, ok := products[item.ProductID]
			if !ok {
				return fmt.Errorf("%w: %d", productdomain.ErrProductNotFound, item.ProductID)
			}
			items = append(items, domain.NewOrderItem(product.ID, item.Quantity, product.Price))
		}

		order = domain.NewOrder(cmd.CustomerID, cmd.AddressID, cmd.PaymentMethod, cmd.Notes, items)
		return h.repo.Create(ctx, order)
	})
	if err != nil {
		if errors.Is(err, productdomain.ErrProductNotFound) {
			return nil, domain.Validationf("%v", err)
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	logger.Info(ctx).
		Uint("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Uint("customer_id", order.CustomerID).
		Str("total_amount", order.TotalAmount.StringFixed(2)).
		Msg("Order created")

	kafka.PublishBestEffort(ctx, h.publisher, kafka.OrderCreatedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount.StringFixed(2),
		OccurredAt:  time.Now().UTC(),
	})

	return order, nil
}
