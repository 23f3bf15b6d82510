package query

import (
	"context"
	"fmt"

	"github.com/tair/commerce-core/internal/order/domain"
)

// ListOrdersQuery represents the query to list orders
type ListOrdersQuery struct {
	CustomerID    *uint
	Status        *domain.Status
	PaymentStatus *domain.PaymentStatus
	Limit         int
	Offset        int
}

// ListOrdersResult is one page of orders
type ListOrdersResult struct {
	Orders []OrderView `json:"orders"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// ListOrdersHandler handles list orders query
type ListOrdersHandler struct {
	repo domain.OrderRepository
}

// NewListOrdersHandler creates a new list orders handler
func NewListOrdersHandler(repo domain.OrderRepository) *ListOrdersHandler {
	return &ListOrdersHandler{repo: repo}
}

// Handle executes the list orders query
func (h *ListOrdersHandler) Handle(ctx context.Context, query ListOrdersQuery) (*ListOrdersResult, error) {
	if query.Limit <= 0 {
		query.Limit = 10
	}
	if query.Limit > 100 {
		query.Limit = 100
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	if query.Status != nil && !query.Status.IsValid() {
		return nil, domain.Validationf("unknown status %q", *query.Status)
	}
	if query.PaymentStatus != nil && !query.PaymentStatus.IsValid() {
		return nil, domain.Validationf("unknown payment status %q", *query.PaymentStatus)
	}

	orders, total, err := h.repo.FindAll(ctx, domain.OrderFilter{
		CustomerID:    query.CustomerID,
		Status:        query.Status,
		PaymentStatus: query.PaymentStatus,
		Limit:         query.Limit,
		Offset:        query.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	result := &ListOrdersResult{
		Orders: make([]OrderView, 0, len(orders)),
		Total:  total,
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	for i := range orders {
		result.Orders = append(result.Orders, NewOrderView(&orders[i]))
	}
	return result, nil
}
