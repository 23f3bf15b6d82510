package repository

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/commerce-core/internal/product/domain"
)

var tracer = otel.Tracer("product-repository")

// TracingProductRepository wraps a ProductRepository with spans
type TracingProductRepository struct {
	next domain.ProductRepository
}

// NewTracingProductRepository creates a new repository with tracing
func NewTracingProductRepository(next domain.ProductRepository) *TracingProductRepository {
	return &TracingProductRepository{next: next}
}

func (r *TracingProductRepository) Create(ctx context.Context, product *domain.Product) error {
	ctx, span := tracer.Start(ctx, "repository.Product.Create",
		trace.WithAttributes(attribute.String("product.sku", product.SKU)),
	)
	defer span.End()

	err := r.next.Create(ctx, product)
	recordError(span, err)
	return err
}

func (r *TracingProductRepository) FindByID(ctx context.Context, id uint) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "repository.Product.FindByID",
		trace.WithAttributes(attribute.Int("product.id", int(id))),
	)
	defer span.End()

	product, err := r.next.FindByID(ctx, id)
	recordError(span, err)
	return product, err
}

func (r *TracingProductRepository) LockByID(ctx context.Context, id uint) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "repository.Product.LockByID",
		trace.WithAttributes(attribute.Int("product.id", int(id))),
	)
	defer span.End()

	product, err := r.next.LockByID(ctx, id)
	recordError(span, err)
	return product, err
}

func (r *TracingProductRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "repository.Product.FindByIDs",
		trace.WithAttributes(attribute.Int("query.ids", len(ids))),
	)
	defer span.End()

	products, err := r.next.FindByIDs(ctx, ids)
	recordError(span, err)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(products)))
	}
	return products, err
}

func (r *TracingProductRepository) UpdateStockQuantity(ctx context.Context, id uint, quantity int) error {
	ctx, span := tracer.Start(ctx, "repository.Product.UpdateStockQuantity",
		trace.WithAttributes(
			attribute.Int("product.id", int(id)),
			attribute.Int("quantity.new_value", quantity),
		),
	)
	defer span.End()

	err := r.next.UpdateStockQuantity(ctx, id, quantity)
	recordError(span, err)
	return err
}

func recordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
