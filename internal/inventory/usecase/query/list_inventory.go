package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/tair/commerce-core/internal/inventory/domain"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ListInventoryQuery represents the query to list inventory records
type ListInventoryQuery struct {
	ProductID *uint
	Location  string
	Limit     int
	Offset    int
}

// ListInventoryResult is one page of inventory records
type ListInventoryResult struct {
	Inventories []domain.Inventory `json:"inventories"`
	Total       int64              `json:"total"`
	Limit       int                `json:"limit"`
	Offset      int                `json:"offset"`
}

// ListInventoryHandler handles list inventory query
type ListInventoryHandler struct {
	repo domain.InventoryRepository
}

// NewListInventoryHandler creates a new list inventory handler
func NewListInventoryHandler(repo domain.InventoryRepository) *ListInventoryHandler {
	return &ListInventoryHandler{repo: repo}
}

// Handle executes the list inventory query
func (h *ListInventoryHandler) Handle(ctx context.Context, query ListInventoryQuery) (*ListInventoryResult, error) {
	query.Limit, query.Offset = page(query.Limit, query.Offset)

	inventories, total, err := h.repo.FindAll(ctx, domain.InventoryFilter{
		ProductID: query.ProductID,
		Location:  strings.TrimSpace(query.Location),
		Limit:     query.Limit,
		Offset:    query.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list inventories: %w", err)
	}

	if inventories == nil {
		inventories = []domain.Inventory{}
	}
	return &ListInventoryResult{
		Inventories: inventories,
		Total:       total,
		Limit:       query.Limit,
		Offset:      query.Offset,
	}, nil
}
