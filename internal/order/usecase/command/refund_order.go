package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tair/commerce-core/internal/order/domain"
	"github.com/tair/commerce-core/kafka"
	"github.com/tair/commerce-core/pkg/database"
	"github.com/tair/commerce-core/pkg/logger"
	"github.com/tair/commerce-core/pkg/metrics"
)

// RefundOrderCommand represents a refund request. A nil Amount refunds the order total.
type RefundOrderCommand struct {
	OrderID uint
	Amount  *decimal.Decimal
	ActorID uint
}

// RefundOrderHandler handles refund order command
type RefundOrderHandler struct {
	tx        database.Transactor
	repo      domain.OrderRepository
	publisher kafka.EventPublisher
}

// NewRefundOrderHandler creates a new refund order handler
func NewRefundOrderHandler(tx database.Transactor, repo domain.OrderRepository, publisher kafka.EventPublisher) *RefundOrderHandler {
	return &RefundOrderHandler{tx: tx, repo: repo, publisher: publisher}
}

// Handle executes the refund order command. The order status is left as it was.
func (h *RefundOrderHandler) Handle(ctx context.Context, cmd RefundOrderCommand) (*domain.Order, error) {
	if cmd.OrderID == 0 {
		return nil, domain.Validationf("order_id is required")
	}

	var order *domain.Order
	err := h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = h.repo.LockByID(ctx, cmd.OrderID)
		if err != nil {
			return err
		}

		if err := order.Refund(cmd.Amount); err != nil {
			return err
		}
		return h.repo.Update(ctx, order)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotRefundable) || errors.Is(err, domain.ErrValidation) {
			metrics.PaymentEventsTotal.WithLabelValues("refund", metrics.ResultRejected).Inc()
			return nil, err
		}
		metrics.PaymentEventsTotal.WithLabelValues("refund", metrics.ResultError).Inc()
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to refund order: %w", err)
	}

	metrics.PaymentEventsTotal.WithLabelValues("refund", metrics.ResultSuccess).Inc()

	amount := order.RefundAmount.Decimal.StringFixed(2)
	logger.Info(ctx).
		Uint("order_id", order.ID).
		Str("amount", amount).
		Uint("actor_id", cmd.ActorID).
		Msg("Order refunded")

	kafka.PublishBestEffort(ctx, h.publisher, kafka.OrderRefundedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Amount:      amount,
		ActorID:     cmd.ActorID,
		OccurredAt:  time.Now().UTC(),
	})

	return order, nil
}
