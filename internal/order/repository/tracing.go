package repository

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/commerce-core/internal/order/domain"
)

var tracer = otel.Tracer("order-repository")

// TracingOrderRepository wraps an OrderRepository with spans
type TracingOrderRepository struct {
	next domain.OrderRepository
}

// NewTracingOrderRepository creates a new repository with tracing
func NewTracingOrderRepository(next domain.OrderRepository) *TracingOrderRepository {
	return &TracingOrderRepository{next: next}
}

func (r *TracingOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	ctx, span := tracer.Start(ctx, "repository.Order.Create",
		trace.WithAttributes(
			attribute.String("order.number", order.OrderNumber),
			attribute.Int("order.customer_id", int(order.CustomerID)),
			attribute.Int("order.items", len(order.Items)),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, order)
	if err != nil {
		recordError(span, err)
		return err
	}

	span.SetAttributes(attribute.Int("order.id", int(order.ID)))
	return nil
}

func (r *TracingOrderRepository) FindByID(ctx context.Context, id uint) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "repository.Order.FindByID",
		trace.WithAttributes(attribute.Int("order.id", int(id))),
	)
	defer span.End()

	order, err := r.next.FindByID(ctx, id)
	recordError(span, err)
	return order, err
}

func (r *TracingOrderRepository) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "repository.Order.FindByNumber",
		trace.WithAttributes(attribute.String("order.number", number)),
	)
	defer span.End()

	order, err := r.next.FindByNumber(ctx, number)
	recordError(span, err)
	return order, err
}

func (r *TracingOrderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "repository.Order.FindByGatewayOrderID",
		trace.WithAttributes(attribute.String("order.gateway_order_id", gatewayOrderID)),
	)
	defer span.End()

	order, err := r.next.FindByGatewayOrderID(ctx, gatewayOrderID)
	recordError(span, err)
	return order, err
}

func (r *TracingOrderRepository) LockByID(ctx context.Context, id uint) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "repository.Order.LockByID",
		trace.WithAttributes(attribute.Int("order.id", int(id))),
	)
	defer span.End()

	order, err := r.next.LockByID(ctx, id)
	recordError(span, err)
	return order, err
}

func (r *TracingOrderRepository) LockByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "repository.Order.LockByGatewayOrderID",
		trace.WithAttributes(attribute.String("order.gateway_order_id", gatewayOrderID)),
	)
	defer span.End()

	order, err := r.next.LockByGatewayOrderID(ctx, gatewayOrderID)
	recordError(span, err)
	return order, err
}

func (r *TracingOrderRepository) FindAll(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	ctx, span := tracer.Start(ctx, "repository.Order.FindAll",
		trace.WithAttributes(
			attribute.Int("query.limit", filter.Limit),
			attribute.Int("query.offset", filter.Offset),
		),
	)
	defer span.End()

	orders, total, err := r.next.FindAll(ctx, filter)
	if err != nil {
		recordError(span, err)
		return nil, 0, err
	}

	span.SetAttributes(
		attribute.Int("result.count", len(orders)),
		attribute.Int64("result.total", total),
	)
	return orders, total, nil
}

func (r *TracingOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	ctx, span := tracer.Start(ctx, "repository.Order.Update",
		trace.WithAttributes(
			attribute.Int("order.id", int(order.ID)),
			attribute.String("order.status", string(order.Status)),
			attribute.String("order.payment_status", string(order.PaymentStatus)),
		),
	)
	defer span.End()

	err := r.next.Update(ctx, order)
	recordError(span, err)
	return err
}

func (r *TracingOrderRepository) Delete(ctx context.Context, id uint) error {
	ctx, span := tracer.Start(ctx, "repository.Order.Delete",
		trace.WithAttributes(attribute.Int("order.id", int(id))),
	)
	defer span.End()

	err := r.next.Delete(ctx, id)
	recordError(span, err)
	return err
}

func recordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
