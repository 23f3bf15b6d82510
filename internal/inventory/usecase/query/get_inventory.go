package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/tair/commerce-core/internal/inventory/domain"
)

// GetInventoryQuery represents the query to get an inventory record
type GetInventoryQuery struct {
	ID uint
}

// GetInventoryHandler handles get inventory query
type GetInventoryHandler struct {
	repo domain.InventoryRepository
}

// NewGetInventoryHandler creates a new get inventory handler
func NewGetInventoryHandler(repo domain.InventoryRepository) *GetInventoryHandler {
	return &GetInventoryHandler{repo: repo}
}

// Handle executes the get inventory query
func (h *GetInventoryHandler) Handle(ctx context.Context, query GetInventoryQuery) (*domain.Inventory, error) {
	if query.ID == 0 {
		return nil, domain.Validationf("id is required")
	}

	inventory, err := h.repo.FindByID(ctx, query.ID)
	if errors.Is(err, domain.ErrInventoryNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}

	return inventory, nil
}
