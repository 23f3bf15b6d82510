package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/tair/commerce-core/internal/inventory/domain"
	productdomain "github.com/tair/commerce-core/internal/product/domain"
	"github.com/tair/commerce-core/pkg/database"
	"github.com/tair/commerce-core/pkg/logger"
)

// ProductStore is the slice of the product catalog the inventory service writes to
type ProductStore interface {
	LockByID(ctx context.Context, id uint) (*productdomain.Product, error)
	UpdateStockQuantity(ctx context.Context, id uint, quantity int) error
}

// ResyncProductStockCommand recomputes a product's denormalized stock quantity
type ResyncProductStockCommand struct {
	ProductID uint
}

// ResyncResult reports the outcome of a resync
type ResyncResult struct {
	ProductID     uint `json:"product_id"`
	StockQuantity int  `json:"stock_quantity"`
	// Skipped is set when the product does not track inventory
	Skipped bool `json:"skipped"`
}

// ResyncProductStockHandler handles resync product stock command. The other inventory
// commands call Sync inside their own transaction.
type ResyncProductStockHandler struct {
	tx          database.Transactor
	inventories domain.InventoryRepository
	products    ProductStore
	cache       domain.StockCache
}

// NewResyncProductStockHandler creates a new resync handler
func NewResyncProductStockHandler(tx database.Transactor, inventories domain.InventoryRepository, products ProductStore, cache domain.StockCache) *ResyncProductStockHandler {
	return &ResyncProductStockHandler{tx: tx, inventories: inventories, products: products, cache: cache}
}

// Handle executes the resync product stock command
func (h *ResyncProductStockHandler) Handle(ctx context.Context, cmd ResyncProductStockCommand) (*ResyncResult, error) {
	if cmd.ProductID == 0 {
		return nil, domain.Validationf("product_id is required")
	}

	var result *ResyncResult
	err := h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		result, err = h.Sync(ctx, cmd.ProductID)
		return err
	})
	if err != nil {
		return nil, err
	}

	h.invalidate(ctx, cmd.ProductID)
	return result, nil
}

// Sync writes the sum of available quantity across every location of the product to
// its stock quantity. Products that do not track inventory are left alone.
//
// The product row is locked before summing so concurrent changes to different
// locations of the same product resync one after another, each seeing the other's
// committed quantity.
func (h *ResyncProductStockHandler) Sync(ctx context.Context, productID uint) (*ResyncResult, error) {
	product, err := h.products.LockByID(ctx, productID)
	if err != nil {
		if errors.Is(err, productdomain.ErrProductNotFound) {
			return nil, domain.Validationf("product %d not found", productID)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	if !product.TrackInventory {
		logger.Debug(ctx).Uint("product_id", productID).Msg("Product does not track inventory, resync skipped")
		return &ResyncResult{ProductID: productID, StockQuantity: product.StockQuantity, Skipped: true}, nil
	}

	total, err := h.inventories.SumAvailableByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum available stock: %w", err)
	}

	if total != product.StockQuantity {
		if err := h.products.UpdateStockQuantity(ctx, productID, total); err != nil {
			return nil, fmt.Errorf("failed to update product stock: %w", err)
		}
	}

	return &ResyncResult{ProductID: productID, StockQuantity: total}, nil
}

// invalidate drops cached stock once the change has committed. A stale cache entry
// expires on its own, so failures are only logged.
func (h *ResyncProductStockHandler) invalidate(ctx context.Context, productIDs ...uint) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx, productIDs...); err != nil {
		logger.Warn(ctx).Err(err).Uints("product_ids", productIDs).Msg("Failed to invalidate stock cache")
	}
}
