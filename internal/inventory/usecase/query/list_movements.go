package query

import (
	"context"
	"fmt"
	"time"

	"github.com/tair/commerce-core/internal/inventory/domain"
)

// ListMovementsQuery reads the stock ledger
type ListMovementsQuery struct {
	ProductID   *uint
	InventoryID *uint
	Type        *domain.MovementType
	Location    string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// ListMovementsResult is one page of ledger entries, newest first
type ListMovementsResult struct {
	Movements []domain.StockMovement `json:"movements"`
	Total     int64                  `json:"total"`
	Limit     int                    `json:"limit"`
	Offset    int                    `json:"offset"`
}

// ListMovementsHandler handles list movements query
type ListMovementsHandler struct {
	repo domain.MovementRepository
}

// NewListMovementsHandler creates a new list movements handler
func NewListMovementsHandler(repo domain.MovementRepository) *ListMovementsHandler {
	return &ListMovementsHandler{repo: repo}
}

// Handle executes the list movements query
func (h *ListMovementsHandler) Handle(ctx context.Context, query ListMovementsQuery) (*ListMovementsResult, error) {
	if query.Type != nil && !query.Type.IsValid() {
		return nil, domain.Validationf("unknown movement type %q", *query.Type)
	}
	if query.From != nil && query.To != nil && query.To.Before(*query.From) {
		return nil, domain.Validationf("to must not be before from")
	}
	query.Limit, query.Offset = page(query.Limit, query.Offset)

	movements, total, err := h.repo.FindAll(ctx, domain.MovementFilter{
		ProductID:   query.ProductID,
		InventoryID: query.InventoryID,
		Type:        query.Type,
		Location:    query.Location,
		From:        query.From,
		To:          query.To,
		Limit:       query.Limit,
		Offset:      query.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list stock movements: %w", err)
	}

	if movements == nil {
		movements = []domain.StockMovement{}
	}
	return &ListMovementsResult{
		Movements: movements,
		Total:     total,
		Limit:     query.Limit,
		Offset:    query.Offset,
	}, nil
}
