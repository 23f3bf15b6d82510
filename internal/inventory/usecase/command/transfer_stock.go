package command

import (
	"context"
	"fmt"

	"github.com/tair/commerce-core/internal/inventory/domain"
	"github.com/tair/commerce-core/kafka"
	"github.com/tair/commerce-core/pkg/database"
	"github.com/tair/commerce-core/pkg/logger"
	"github.com/tair/commerce-core/pkg/metrics"
)

// TransferStockCommand moves stock of one record to another location of the
// same product
type TransferStockCommand struct {
	InventoryID uint
	ToLocation  string
	Quantity    int
	Notes       *string
	ActorID     uint
}

// TransferStockResult carries both records and their movements
type TransferStockResult struct {
	Source              *domain.Inventory
	Destination         *domain.Inventory
	SourceMovement      *domain.StockMovement
	DestinationMovement *domain.StockMovement
	ProductStock        int
}

// TransferStockHandler handles transfer stock command
type TransferStockHandler struct {
	tx          database.Transactor
	inventories domain.InventoryRepository
	movements   domain.MovementRepository
	stock       *ResyncProductStockHandler
	publisher   kafka.EventPublisher
}

// NewTransferStockHandler creates a new transfer stock handler
func NewTransferStockHandler(
	tx database.Transactor,
	inventories domain.InventoryRepository,
	movements domain.MovementRepository,
	stock *ResyncProductStockHandler,
	publisher kafka.EventPublisher,
) *TransferStockHandler {
	return &TransferStockHandler{
		tx:          tx,
		inventories: inventories,
		movements:   movements,
		stock:       stock,
		publisher:   publisher,
	}
}

// Handle executes the transfer stock command. Both records are locked in id order.
// The destination record is created when the product has none at that location.
func (h *TransferStockHandler) Handle(ctx context.Context, cmd TransferStockCommand) (*TransferStockResult, error) {
	if cmd.InventoryID == 0 {
		return nil, domain.Validationf("inventory_id is required")
	}
	if cmd.Quantity <= 0 {
		return nil, domain.Validationf("quantity must be positive")
	}
	toLocation := domain.NormalizeLocation(cmd.ToLocation)

	result := &TransferStockResult{}
	err := h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		source, err := h.inventories.FindByID(ctx, cmd.InventoryID)
		if err != nil {
			return err
		}
		if source.Location == toLocation {
			return domain.Validationf("source and destination location are both %s", toLocation)
		}

		destination, err := h.destination(ctx, source, toLocation)
		if err != nil {
			return err
		}

		source, destination, err = h.lockPair(ctx, source.ID, destination.ID)
		if err != nil {
			return err
		}

		out, err := source.Apply(domain.Adjustment{Type: domain.MovementTransfer, Quantity: cmd.Quantity})
		if err != nil {
			return err
		}
		out.ToLocation = &destination.Location

		in, err := destination.Apply(domain.Adjustment{Type: domain.MovementIn, Quantity: cmd.Quantity})
		if err != nil {
			return err
		}
		in.Type = domain.MovementTransfer

		outReason := "transfer to " + destination.Location
		inReason := "transfer from " + source.Location
		MovementContext{Reason: &outReason, Notes: cmd.Notes, ActorID: cmd.ActorID}.applyTo(out)
		MovementContext{Reason: &inReason, Notes: cmd.Notes, ActorID: cmd.ActorID}.applyTo(in)

		for _, step := range []struct {
			inventory *domain.Inventory
			movement  *domain.StockMovement
		}{{source, out}, {destination, in}} {
			if err := h.inventories.Save(ctx, step.inventory); err != nil {
				return fmt.Errorf("failed to save inventory: %w", err)
			}
			if err := h.movements.Append(ctx, step.movement); err != nil {
				return fmt.Errorf("failed to append stock movement: %w", err)
			}
		}

		synced, err := h.stock.Sync(ctx, source.ProductID)
		if err != nil {
			return err
		}

		*result = TransferStockResult{
			Source:              source,
			Destination:         destination,
			SourceMovement:      out,
			DestinationMovement: in,
			ProductStock:        synced.StockQuantity,
		}
		return nil
	})
	if err != nil {
		metrics.StockAdjustmentsTotal.WithLabelValues(string(domain.MovementTransfer), adjustmentResult(err)).Inc()
		if isBusinessError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to transfer stock: %w", err)
	}

	metrics.StockAdjustmentsTotal.WithLabelValues(string(domain.MovementTransfer), metrics.ResultSuccess).Inc()
	h.stock.invalidate(ctx, result.Source.ProductID)

	logger.Info(ctx).
		Uint("product_id", result.Source.ProductID).
		Str("from", result.Source.Location).
		Str("to", result.Destination.Location).
		Int("quantity", cmd.Quantity).
		Uint("actor_id", cmd.ActorID).
		Msg("Stock transferred")

	kafka.PublishBestEffort(ctx, h.publisher, stockAdjustedEvent(result.SourceMovement, result.ProductStock, cmd.ActorID))
	kafka.PublishBestEffort(ctx, h.publisher, stockAdjustedEvent(result.DestinationMovement, result.ProductStock, cmd.ActorID))

	return result, nil
}

func (h *TransferStockHandler) destination(ctx context.Context, source *domain.Inventory, location string) (*domain.Inventory, error) {
	productID := source.ProductID
	existing, _, err := h.inventories.FindAll(ctx, domain.InventoryFilter{ProductID: &productID, Location: location, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to look up destination: %w", err)
	}
	if len(existing) > 0 {
		return &existing[0], nil
	}

	destination := &domain.Inventory{
		ProductID:         source.ProductID,
		Location:          location,
		LowStockThreshold: source.LowStockThreshold,
		CostPrice:         source.CostPrice,
	}
	inserted, err := h.inventories.CreateIfAbsent(ctx, destination)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination inventory: %w", err)
	}
	if !inserted {
		return h.inventories.LockByProductAndLocation(ctx, productID, location)
	}
	return destination, nil
}

// lockPair locks both rows lowest id first and returns them as (a, b)
func (h *TransferStockHandler) lockPair(ctx context.Context, a, b uint) (*domain.Inventory, *domain.Inventory, error) {
	first, second := a, b
	if second < first {
		first, second = second, first
	}

	locked := make(map[uint]*domain.Inventory, 2)
	for _, id := range []uint{first, second} {
		inventory, err := h.inventories.LockByID(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		locked[id] = inventory
	}
	return locked[a], locked[b], nil
}
