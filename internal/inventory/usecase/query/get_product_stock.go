package query

import (
	"context"
	"fmt"

	"github.com/tair/commerce-core/internal/inventory/domain"
	"github.com/tair/commerce-core/pkg/logger"
)

// GetProductStockQuery asks for the available stock of a product across locations
type GetProductStockQuery struct {
	ProductID uint
}

// ProductStockView is the available stock of one product
type ProductStockView struct {
	ProductID uint `json:"product_id"`
	Available int  `json:"available"`
	Cached    bool `json:"cached"`
}

// GetProductStockHandler handles get product stock query
type GetProductStockHandler struct {
	repo  domain.InventoryRepository
	cache domain.StockCache
}

// NewGetProductStockHandler creates a new get product stock handler
func NewGetProductStockHandler(repo domain.InventoryRepository, cache domain.StockCache) *GetProductStockHandler {
	return &GetProductStockHandler{repo: repo, cache: cache}
}

// Handle executes the get product stock query. The cache is read first and filled on
// a miss; cache errors fall through to the database.
func (h *GetProductStockHandler) Handle(ctx context.Context, query GetProductStockQuery) (*ProductStockView, error) {
	if query.ProductID == 0 {
		return nil, domain.Validationf("product_id is required")
	}

	if h.cache != nil {
		available, ok, err := h.cache.GetProductStock(ctx, query.ProductID)
		switch {
		case err != nil:
			logger.Warn(ctx).Err(err).Uint("product_id", query.ProductID).Msg("Stock cache read failed")
		case ok:
			return &ProductStockView{ProductID: query.ProductID, Available: available, Cached: true}, nil
		}
	}

	available, err := h.repo.SumAvailableByProduct(ctx, query.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product stock: %w", err)
	}

	if h.cache != nil {
		if err := h.cache.SetProductStock(ctx, query.ProductID, available); err != nil {
			logger.Warn(ctx).Err(err).Uint("product_id", query.ProductID).Msg("Stock cache write failed")
		}
	}

	return &ProductStockView{ProductID: query.ProductID, Available: available}, nil
}
