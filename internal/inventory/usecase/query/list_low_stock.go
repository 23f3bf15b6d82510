package query

import (
	"context"
	"fmt"

	"github.com/tair/commerce-core/internal/inventory/domain"
)

// ListLowStockQuery lists records at or below their low stock threshold
type ListLowStockQuery struct {
	Limit  int
	Offset int
}

// ListLowStockHandler handles list low stock query
type ListLowStockHandler struct {
	repo domain.InventoryRepository
}

// NewListLowStockHandler creates a new list low stock handler
func NewListLowStockHandler(repo domain.InventoryRepository) *ListLowStockHandler {
	return &ListLowStockHandler{repo: repo}
}

// Handle executes the list low stock query. Records without a threshold never match.
func (h *ListLowStockHandler) Handle(ctx context.Context, query ListLowStockQuery) ([]domain.Inventory, error) {
	limit, offset := page(query.Limit, query.Offset)

	inventories, err := h.repo.FindLowStock(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock: %w", err)
	}
	if inventories == nil {
		inventories = []domain.Inventory{}
	}
	return inventories, nil
}
