package repository

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/commerce-core/internal/inventory/domain"
)

var tracer = otel.Tracer("inventory-repository")

// TracingInventoryRepository wraps an InventoryRepository with spans
type TracingInventoryRepository struct {
	next domain.InventoryRepository
}

// NewTracingInventoryRepository creates a new repository with tracing
func NewTracingInventoryRepository(next domain.InventoryRepository) *TracingInventoryRepository {
	return &TracingInventoryRepository{next: next}
}

func (r *TracingInventoryRepository) Create(ctx context.Context, inventory *domain.Inventory) error {
	ctx, span := tracer.Start(ctx, "repository.Inventory.Create",
		trace.WithAttributes(
			attribute.Int("inventory.product_id", int(inventory.ProductID)),
			attribute.Int("inventory.quantity", inventory.Quantity),
			attribute.String("inventory.location", inventory.Location),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, inventory)
	if err != nil {
		recordError(span, err)
		return err
	}

	span.SetAttributes(attribute.Int("inventory.id", int(inventory.ID)))
	return nil
}

func (r *TracingInventoryRepository) CreateIfAbsent(ctx context.Context, inventory *domain.Inventory) (bool, error) {
	ctx, span := tracer.Start(ctx, "repository.Inventory.CreateIfAbsent",
		trace.WithAttributes(
			attribute.Int("inventory.product_id", int(inventory.ProductID)),
			attribute.String("inventory.location", inventory.Location),
		),
	)
	defer span.End()

	created, err := r.next.CreateIfAbsent(ctx, inventory)
	if err != nil {
		recordError(span, err)
		return false, err
	}

	span.SetAttributes(attribute.Bool("inventory.created", created))
	return created, nil
}

func (r *TracingInventoryRepository) FindByID(ctx context.Context, id uint) (*domain.Inventory, error) {
	ctx, span := tracer.Start(ctx, "repository.Inventory.FindByID",
		trace.WithAttributes(attribute.Int("inventory.id", int(id))),
	)
	defer span.End()

	inventory, err := r.next.FindByID(ctx, id)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	setInventoryAttributes(span, inventory)
	return inventory, nil
}

func (r *TracingInventoryRepository) LockByID(ctx context.Context, id uint) (*domain.Inventory, error) {
	ctx, span := tracer.Start(ctx, "repository.Inventory.LockByID",
		trace.WithAttributes(attribute.Int("inventory.id", int(id))),
	)
	defer span.End()

	inventory, err := r.next.LockByID(ctx, id)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	setInventoryAttributes(span, inventory)
	return inventory, nil
}

func (r *TracingInventoryRepository) LockByProductAndLocation(ctx context.Context, productID uint, location string) (*domain.Inventory, error) {
	ctx, span := tracer.Start(ctx, "repository.Inventory.LockByProductAndLocation",
		trace.WithAttributes(
			attribute.Int("inventory.product_id", int(productID)),
			attribute.String("inventory.location", location),
		),
	)
	defer span.End()

	inventory, err := r.next.LockByProductAndLocation(ctx, productID, location)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	setInventoryAttributes(span, inventory)
	return inventory, nil
}

func (r *TracingInventoryRepository) FindAll(ctx context.Context, filter domain.InventoryFilter) ([]domain.Inventory, int64, error) {
	ctx, span := tracer.Start(ctx, "repository.Inventory.FindAll",
		trace.WithAttributes(
			attribute.Int("query.limit", filter.Limit),
			attribute.Int("query.offset", filter.Offset),
		),
	)
	defer span.End()

	inventories, total, err := r.next.FindAll(ctx, filter)
	if err != nil {
		recordError(span, err)
		return nil, 0, err
	}

	span.SetAttributes(
		attribute.Int("result.count", len(inventories)),
		attribute.Int64("result.total", total),
	)
	return inventories, total, nil
}

func (r *TracingInventoryRepository) FindLowStock(ctx context.Context, limit, offset int) ([]domain.Inventory, error) {
	ctx, span := tracer.Start(ctx, "repository.Inventory.FindLowStock",
		trace.WithAttributes(
			attribute.Int("query.limit", limit),
			attribute.Int("query.offset", offset),
		),
	)
	defer span.End()

	inventories, err := r.next.FindLowStock(ctx, limit, offset)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("result.count", len(inventories)))
	return inventories, nil
}

func (r *TracingInventoryRepository) Save(ctx context.Context, inventory *domain.Inventory) error {
	ctx, span := tracer.Start(ctx, "repository.Inventory.Save")
	defer span.End()
	setInventoryAttributes(span, inventory)

	err := r.next.Save(ctx, inventory)
	recordError(span, err)
	return err
}

func (r *TracingInventoryRepository) Delete(ctx context.Context, id uint) error {
	ctx, span := tracer.Start(ctx, "repository.Inventory.Delete",
		trace.WithAttributes(attribute.Int("inventory.id", int(id))),
	)
	defer span.End()

	err := r.next.Delete(ctx, id)
	recordError(span, err)
	return err
}

func (r *TracingInventoryRepository) SumAvailableByProduct(ctx context.Context, productID uint) (int, error) {
	ctx, span := tracer.Start(ctx, "repository.Inventory.SumAvailableByProduct",
		trace.WithAttributes(attribute.Int("inventory.product_id", int(productID))),
	)
	defer span.End()

	total, err := r.next.SumAvailableByProduct(ctx, productID)
	if err != nil {
		recordError(span, err)
		return 0, err
	}

	span.SetAttributes(attribute.Int("result.available", total))
	return total, nil
}

// TracingMovementRepository wraps a MovementRepository with spans
type TracingMovementRepository struct {
	next domain.MovementRepository
}

// NewTracingMovementRepository creates a new ledger repository with tracing
func NewTracingMovementRepository(next domain.MovementRepository) *TracingMovementRepository {
	return &TracingMovementRepository{next: next}
}

func (r *TracingMovementRepository) Append(ctx context.Context, movement *domain.StockMovement) error {
	ctx, span := tracer.Start(ctx, "repository.StockMovement.Append",
		trace.WithAttributes(
			attribute.Int("movement.product_id", int(movement.ProductID)),
			attribute.String("movement.type", string(movement.Type)),
			attribute.Int("movement.quantity", movement.Quantity),
			attribute.Int("movement.quantity_before", movement.QuantityBefore),
			attribute.Int("movement.quantity_after", movement.QuantityAfter),
		),
	)
	defer span.End()

	err := r.next.Append(ctx, movement)
	if err != nil {
		recordError(span, err)
		return err
	}

	span.SetAttributes(attribute.Int("movement.id", int(movement.ID)))
	return nil
}

func (r *TracingMovementRepository) FindAll(ctx context.Context, filter domain.MovementFilter) ([]domain.StockMovement, int64, error) {
	ctx, span := tracer.Start(ctx, "repository.StockMovement.FindAll",
		trace.WithAttributes(
			attribute.Int("query.limit", filter.Limit),
			attribute.Int("query.offset", filter.Offset),
		),
	)
	defer span.End()

	movements, total, err := r.next.FindAll(ctx, filter)
	if err != nil {
		recordError(span, err)
		return nil, 0, err
	}

	span.SetAttributes(
		attribute.Int("result.count", len(movements)),
		attribute.Int64("result.total", total),
	)
	return movements, total, nil
}

func (r *TracingMovementRepository) DetachInventory(ctx context.Context, inventoryID uint) (int64, error) {
	ctx, span := tracer.Start(ctx, "repository.StockMovement.DetachInventory",
		trace.WithAttributes(attribute.Int("inventory.id", int(inventoryID))),
	)
	defer span.End()

	detached, err := r.next.DetachInventory(ctx, inventoryID)
	recordError(span, err)
	span.SetAttributes(attribute.Int64("result.detached", detached))
	return detached, err
}

func setInventoryAttributes(span trace.Span, inventory *domain.Inventory) {
	span.SetAttributes(
		attribute.Int("inventory.id", int(inventory.ID)),
		attribute.Int("inventory.product_id", int(inventory.ProductID)),
		attribute.Int("inventory.quantity", inventory.Quantity),
		attribute.String("inventory.location", inventory.Location),
	)
}

func recordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
