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
	"github.com/tair/commerce-core/pkg/metrics"
)

// MovementContext is the attribution copied onto every movement a command writes
type MovementContext struct {
	ReferenceType *string
	ReferenceID   *uint
	CostPrice     *decimal.Decimal
	Reason        *string
	Notes         *string
	ActorID       uint
}

func (c MovementContext) applyTo(m *domain.StockMovement) {
	m.ReferenceType = c.ReferenceType
	m.ReferenceID = c.ReferenceID
	m.Reason = c.Reason
	m.Notes = c.Notes
	if c.CostPrice != nil {
		m.CostPrice = decimal.NewNullDecimal(*c.CostPrice)
	}
	if c.ActorID != 0 {
		actor := c.ActorID
		m.UserID = &actor
	}
}

// AdjustStockCommand changes the on-hand quantity of one inventory record.
// Quantity is signed for adjustment movements; SetQuantity sets an absolute
// target instead.
type AdjustStockCommand struct {
	InventoryID uint
	Type        domain.MovementType
	Quantity    int
	SetQuantity *int
	MovementContext
}

// AdjustStockResult carries the updated record and the movement that recorded it
type AdjustStockResult struct {
	Inventory    *domain.Inventory
	Movement     *domain.StockMovement
	ProductStock int
}

// AdjustStockHandler handles adjust stock command
type AdjustStockHandler struct {
	tx          database.Transactor
	inventories domain.InventoryRepository
	movements   domain.MovementRepository
	stock       *ResyncProductStockHandler
	publisher   kafka.EventPublisher
}

// NewAdjustStockHandler creates a new adjust stock handler
func NewAdjustStockHandler(
	tx database.Transactor,
	inventories domain.InventoryRepository,
	movements domain.MovementRepository,
	stock *ResyncProductStockHandler,
	publisher kafka.EventPublisher,
) *AdjustStockHandler {
	return &AdjustStockHandler{
		tx:          tx,
		inventories: inventories,
		movements:   movements,
		stock:       stock,
		publisher:   publisher,
	}
}

// Handle executes the adjust stock command. The record is locked from the read of
// quantity_before until the movement is appended, so concurrent adjustments of the
// same record serialize.
func (h *AdjustStockHandler) Handle(ctx context.Context, cmd AdjustStockCommand) (*AdjustStockResult, error) {
	if cmd.InventoryID == 0 {
		return nil, domain.Validationf("inventory_id is required")
	}

	result := &AdjustStockResult{}
	err := h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		inventory, err := h.inventories.LockByID(ctx, cmd.InventoryID)
		if err != nil {
			return err
		}

		movement, err := inventory.Apply(domain.Adjustment{
			Type:        cmd.Type,
			Quantity:    cmd.Quantity,
			SetQuantity: cmd.SetQuantity,
		})
		if err != nil {
			return err
		}
		cmd.MovementContext.applyTo(movement)
		if cmd.CostPrice != nil {
			inventory.CostPrice = decimal.NewNullDecimal(*cmd.CostPrice)
		}

		if err := h.inventories.Save(ctx, inventory); err != nil {
			return fmt.Errorf("failed to save inventory: %w", err)
		}
		if err := h.movements.Append(ctx, movement); err != nil {
			return fmt.Errorf("failed to append stock movement: %w", err)
		}

		synced, err := h.stock.Sync(ctx, inventory.ProductID)
		if err != nil {
			return err
		}

		result.Inventory = inventory
		result.Movement = movement
		result.ProductStock = synced.StockQuantity
		return nil
	})
	if err != nil {
		metrics.StockAdjustmentsTotal.WithLabelValues(string(cmd.Type), adjustmentResult(err)).Inc()
		if isBusinessError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}

	metrics.StockAdjustmentsTotal.WithLabelValues(string(cmd.Type), metrics.ResultSuccess).Inc()
	h.stock.invalidate(ctx, result.Inventory.ProductID)

	logger.Info(ctx).
		Uint("inventory_id", result.Inventory.ID).
		Uint("product_id", result.Inventory.ProductID).
		Str("type", string(cmd.Type)).
		Int("quantity_before", result.Movement.QuantityBefore).
		Int("quantity_after", result.Movement.QuantityAfter).
		Uint("actor_id", cmd.ActorID).
		Msg("Stock adjusted")

	kafka.PublishBestEffort(ctx, h.publisher, stockAdjustedEvent(result.Movement, result.ProductStock, cmd.ActorID))

	return result, nil
}

func stockAdjustedEvent(m *domain.StockMovement, productStock int, actorID uint) kafka.StockAdjustedEvent {
	event := kafka.StockAdjustedEvent{
		MovementID:     m.ID,
		ProductID:      m.ProductID,
		Location:       m.Location,
		MovementType:   string(m.Type),
		Quantity:       m.Quantity,
		QuantityBefore: m.QuantityBefore,
		QuantityAfter:  m.QuantityAfter,
		ProductStock:   productStock,
		ActorID:        actorID,
		OccurredAt:     time.Now().UTC(),
	}
	if m.InventoryID != nil {
		event.InventoryID = *m.InventoryID
	}
	return event
}

func isBusinessError(err error) bool {
	return errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrInventoryNotFound) ||
		errors.Is(err, domain.ErrValidation)
}

func adjustmentResult(err error) string {
	if isBusinessError(err) {
		return metrics.ResultRejected
	}
	return metrics.ResultError
}
