package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tair/commerce-core/internal/inventory/domain"
	"github.com/tair/commerce-core/kafka"
	"github.com/tair/commerce-core/pkg/database"
	"github.com/tair/commerce-core/pkg/logger"
)

// UpsertInventoryCommand creates or updates the record of a product at a location.
// Nil fields keep their current value.
type UpsertInventoryCommand struct {
	ProductID         uint
	Location          string
	Quantity          *int
	ReservedQuantity  *int
	LowStockThreshold *int
	CostPrice         *decimal.Decimal
	BatchNumber       *string
	ExpiryDate        *time.Time
	Notes             *string
	ActorID           uint
}

// UpsertInventoryResult carries the stored record and the movement, if the
// quantity changed
type UpsertInventoryResult struct {
	Inventory    *domain.Inventory
	Movement     *domain.StockMovement
	Created      bool
	ProductStock int
}

// UpsertInventoryHandler handles upsert inventory command
type UpsertInventoryHandler struct {
	tx          database.Transactor
	inventories domain.InventoryRepository
	movements   domain.MovementRepository
	stock       *ResyncProductStockHandler
	publisher   kafka.EventPublisher
}

// NewUpsertInventoryHandler creates a new upsert inventory handler
func NewUpsertInventoryHandler(
	tx database.Transactor,
	inventories domain.InventoryRepository,
	movements domain.MovementRepository,
	stock *ResyncProductStockHandler,
	publisher kafka.EventPublisher,
) *UpsertInventoryHandler {
	return &UpsertInventoryHandler{
		tx:          tx,
		inventories: inventories,
		movements:   movements,
		stock:       stock,
		publisher:   publisher,
	}
}

// Handle executes the upsert inventory command. Stock placed on a new record is
// logged as an "in" movement; a changed quantity on an existing record as an
// "adjustment".
func (h *UpsertInventoryHandler) Handle(ctx context.Context, cmd UpsertInventoryCommand) (*UpsertInventoryResult, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	location := domain.NormalizeLocation(cmd.Location)

	result := &UpsertInventoryResult{}
	err := h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		inventory, err := h.inventories.LockByProductAndLocation(ctx, cmd.ProductID, location)
		switch {
		case errors.Is(err, domain.ErrInventoryNotFound):
			inventory = &domain.Inventory{ProductID: cmd.ProductID, Location: location}
			result.Created = true
		case err != nil:
			return err
		}

		cmd.applyAttributes(inventory)

		if result.Created {
			inserted, err := h.inventories.CreateIfAbsent(ctx, inventory)
			if err != nil {
				return fmt.Errorf("failed to create inventory: %w", err)
			}
			if !inserted {
				// a concurrent upsert created the row first; update that row instead
				inventory, err = h.inventories.LockByProductAndLocation(ctx, cmd.ProductID, location)
				if err != nil {
					return err
				}
				result.Created = false
				cmd.applyAttributes(inventory)
			}
		}

		var adj *domain.Adjustment
		switch {
		case result.Created && cmd.Quantity != nil && *cmd.Quantity > 0:
			adj = &domain.Adjustment{Type: domain.MovementIn, Quantity: *cmd.Quantity}
		case !result.Created && cmd.Quantity != nil && *cmd.Quantity != inventory.Quantity:
			adj = &domain.Adjustment{Type: domain.MovementAdjustment, SetQuantity: cmd.Quantity}
		}

		if adj != nil {
			movement, err := inventory.Apply(*adj)
			if err != nil {
				return err
			}
			MovementContext{CostPrice: cmd.CostPrice, Notes: cmd.Notes, ActorID: cmd.ActorID}.applyTo(movement)
			result.Movement = movement
		}

		if inventory.ReservedQuantity > inventory.Quantity {
			return domain.Validationf("reserved quantity %d exceeds quantity %d", inventory.ReservedQuantity, inventory.Quantity)
		}

		if err := h.inventories.Save(ctx, inventory); err != nil {
			return fmt.Errorf("failed to save inventory: %w", err)
		}
		if result.Movement != nil {
			if err := h.movements.Append(ctx, result.Movement); err != nil {
				return fmt.Errorf("failed to append stock movement: %w", err)
			}
		}

		synced, err := h.stock.Sync(ctx, cmd.ProductID)
		if err != nil {
			return err
		}

		result.Inventory = inventory
		result.ProductStock = synced.StockQuantity
		return nil
	})
	if err != nil {
		if isBusinessError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to upsert inventory: %w", err)
	}

	h.stock.invalidate(ctx, cmd.ProductID)

	logger.Info(ctx).
		Uint("inventory_id", result.Inventory.ID).
		Uint("product_id", result.Inventory.ProductID).
		Str("location", result.Inventory.Location).
		Int("quantity", result.Inventory.Quantity).
		Bool("created", result.Created).
		Uint("actor_id", cmd.ActorID).
		Msg("Inventory saved")

	if result.Movement != nil {
		kafka.PublishBestEffort(ctx, h.publisher, stockAdjustedEvent(result.Movement, result.ProductStock, cmd.ActorID))
	}

	return result, nil
}

func (cmd UpsertInventoryCommand) validate() error {
	if cmd.ProductID == 0 {
		return domain.Validationf("product_id is required")
	}
	if cmd.Quantity != nil && *cmd.Quantity < 0 {
		return domain.Validationf("quantity cannot be negative")
	}
	if cmd.ReservedQuantity != nil && *cmd.ReservedQuantity < 0 {
		return domain.Validationf("reserved quantity cannot be negative")
	}
	if cmd.LowStockThreshold != nil && *cmd.LowStockThreshold < 0 {
		return domain.Validationf("low stock threshold cannot be negative")
	}
	if cmd.CostPrice != nil && cmd.CostPrice.IsNegative() {
		return domain.Validationf("cost price cannot be negative")
	}
	return nil
}

func (cmd UpsertInventoryCommand) applyAttributes(inventory *domain.Inventory) {
	if cmd.ReservedQuantity != nil {
		inventory.ReservedQuantity = *cmd.ReservedQuantity
	}
	if cmd.LowStockThreshold != nil {
		inventory.LowStockThreshold = *cmd.LowStockThreshold
	}
	if cmd.CostPrice != nil {
		inventory.CostPrice = decimal.NewNullDecimal(*cmd.CostPrice)
	}
	if cmd.BatchNumber != nil {
		inventory.BatchNumber = cmd.BatchNumber
	}
	if cmd.ExpiryDate != nil {
		inventory.ExpiryDate = cmd.ExpiryDate
	}
}
