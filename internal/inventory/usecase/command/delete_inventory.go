package command

import (
	"context"
	"fmt"

	"github.com/tair/commerce-core/internal/inventory/domain"
	"github.com/tair/commerce-core/kafka"
	"github.com/tair/commerce-core/pkg/database"
	"github.com/tair/commerce-core/pkg/logger"
)

// DeleteInventoryCommand represents the command to delete an inventory record
type DeleteInventoryCommand struct {
	InventoryID uint
	ActorID     uint
}

// DeleteInventoryHandler handles delete inventory command
type DeleteInventoryHandler struct {
	tx          database.Transactor
	inventories domain.InventoryRepository
	movements   domain.MovementRepository
	stock       *ResyncProductStockHandler
	publisher   kafka.EventPublisher
}

// NewDeleteInventoryHandler creates a new delete inventory handler
func NewDeleteInventoryHandler(
	tx database.Transactor,
	inventories domain.InventoryRepository,
	movements domain.MovementRepository,
	stock *ResyncProductStockHandler,
	publisher kafka.EventPublisher,
) *DeleteInventoryHandler {
	return &DeleteInventoryHandler{
		tx:          tx,
		inventories: inventories,
		movements:   movements,
		stock:       stock,
		publisher:   publisher,
	}
}

// Handle executes the delete inventory command. The remaining stock is written off
// with a final adjustment entry, and the ledger keeps every entry of the record
// with its inventory reference cleared.
func (h *DeleteInventoryHandler) Handle(ctx context.Context, cmd DeleteInventoryCommand) error {
	if cmd.InventoryID == 0 {
		return domain.Validationf("inventory_id is required")
	}

	var (
		movement     *domain.StockMovement
		productStock int
	)
	err := h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		inventory, err := h.inventories.LockByID(ctx, cmd.InventoryID)
		if err != nil {
			return err
		}

		zero := 0
		movement, err = inventory.Apply(domain.Adjustment{Type: domain.MovementAdjustment, SetQuantity: &zero})
		if err != nil {
			return err
		}
		reason := "inventory record deleted"
		MovementContext{Reason: &reason, ActorID: cmd.ActorID}.applyTo(movement)
		movement.InventoryID = nil

		if err := h.movements.Append(ctx, movement); err != nil {
			return fmt.Errorf("failed to append stock movement: %w", err)
		}
		if _, err := h.movements.DetachInventory(ctx, inventory.ID); err != nil {
			return fmt.Errorf("failed to detach stock movements: %w", err)
		}
		if err := h.inventories.Delete(ctx, inventory.ID); err != nil {
			return err
		}

		synced, err := h.stock.Sync(ctx, inventory.ProductID)
		if err != nil {
			return err
		}
		productStock = synced.StockQuantity
		return nil
	})
	if err != nil {
		if isBusinessError(err) {
			return err
		}
		return fmt.Errorf("failed to delete inventory: %w", err)
	}

	h.stock.invalidate(ctx, movement.ProductID)

	logger.Info(ctx).
		Uint("inventory_id", cmd.InventoryID).
		Uint("product_id", movement.ProductID).
		Int("written_off", movement.QuantityBefore).
		Uint("actor_id", cmd.ActorID).
		Msg("Inventory deleted")

	event := stockAdjustedEvent(movement, productStock, cmd.ActorID)
	event.InventoryID = cmd.InventoryID
	kafka.PublishBestEffort(ctx, h.publisher, event)

	return nil
}
