package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/tair/commerce-core/internal/order/domain"
)

// GetOrderQuery looks an order up by id or by order number
type GetOrderQuery struct {
	OrderID     uint
	OrderNumber string
}

// GetOrderHandler handles get order query
type GetOrderHandler struct {
	repo domain.OrderRepository
}

// NewGetOrderHandler creates a new get order handler
func NewGetOrderHandler(repo domain.OrderRepository) *GetOrderHandler {
	return &GetOrderHandler{repo: repo}
}

// Handle executes the get order query
func (h *GetOrderHandler) Handle(ctx context.Context, query GetOrderQuery) (*OrderView, error) {
	var (
		order *domain.Order
		err   error
	)
	switch {
	case query.OrderID != 0:
		order, err = h.repo.FindByID(ctx, query.OrderID)
	case query.OrderNumber != "":
		order, err = h.repo.FindByNumber(ctx, query.OrderNumber)
	default:
		return nil, domain.Validationf("order id or order number is required")
	}
	if errors.Is(err, domain.ErrOrderNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	view := NewOrderView(order)
	return &view, nil
}
