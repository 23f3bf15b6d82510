package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	orderdomain "github.com/tair/commerce-core/internal/order/domain"
	"github.com/tair/commerce-core/internal/payment/domain"
	"github.com/tair/commerce-core/kafka"
	"github.com/tair/commerce-core/pkg/database"
	"github.com/tair/commerce-core/pkg/logger"
	"github.com/tair/commerce-core/pkg/metrics"
)

const defaultFailureReason = "payment failed"

// PaymentFailedCommand is the gateway's failure callback
type PaymentFailedCommand struct {
	GatewayOrderID   string
	ErrorDescription string
}

// PaymentFailedResult reports what the callback did. Found is false when no order
// carries the gateway order id; that is not an error.
type PaymentFailedResult struct {
	Order   *orderdomain.Order
	Found   bool
	Ignored bool
}

// PaymentFailedHandler handles payment failed command
type PaymentFailedHandler struct {
	tx        database.Transactor
	orders    orderdomain.OrderRepository
	publisher kafka.EventPublisher
}

// NewPaymentFailedHandler creates a new payment failed handler
func NewPaymentFailedHandler(tx database.Transactor, orders orderdomain.OrderRepository, publisher kafka.EventPublisher) *PaymentFailedHandler {
	return &PaymentFailedHandler{tx: tx, orders: orders, publisher: publisher}
}

// Handle marks the order's payment failed and cancels it
func (h *PaymentFailedHandler) Handle(ctx context.Context, cmd PaymentFailedCommand) (*PaymentFailedResult, error) {
	if cmd.GatewayOrderID == "" {
		return nil, domain.Validationf("gateway order id is required")
	}

	reason := cmd.ErrorDescription
	if reason == "" {
		reason = defaultFailureReason
	}

	result := &PaymentFailedResult{}
	err := h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := h.orders.LockByGatewayOrderID(ctx, cmd.GatewayOrderID)
		if err != nil {
			return err
		}
		result.Order = order
		result.Found = true

		if !order.CanAcceptPayment() {
			result.Ignored = true
			return nil
		}

		order.MarkPaymentFailed(reason)
		return h.orders.Update(ctx, order)
	})
	if errors.Is(err, orderdomain.ErrOrderNotFound) {
		logger.Warn(ctx).
			Str("gateway_order_id", cmd.GatewayOrderID).
			Str("reason", reason).
			Msg("Payment failure reported for unknown order")
		metrics.PaymentEventsTotal.WithLabelValues("failure", metrics.ResultRejected).Inc()
		return &PaymentFailedResult{Found: false}, nil
	}
	if err != nil {
		metrics.PaymentEventsTotal.WithLabelValues("failure", metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to record payment failure: %w", err)
	}

	if result.Ignored {
		logger.Warn(ctx).
			Uint("order_id", result.Order.ID).
			Str("payment_status", string(result.Order.PaymentStatus)).
			Str("status", string(result.Order.Status)).
			Msg("Payment failure ignored for order no longer awaiting payment")
		metrics.PaymentEventsTotal.WithLabelValues("failure", metrics.ResultRejected).Inc()
		return result, nil
	}

	metrics.PaymentEventsTotal.WithLabelValues("failure", metrics.ResultSuccess).Inc()

	logger.Info(ctx).
		Uint("order_id", result.Order.ID).
		Str("gateway_order_id", cmd.GatewayOrderID).
		Str("reason", reason).
		Msg("Payment failure recorded")

	kafka.PublishBestEffort(ctx, h.publisher, kafka.PaymentFailedEvent{
		OrderID:        result.Order.ID,
		OrderNumber:    result.Order.OrderNumber,
		GatewayOrderID: cmd.GatewayOrderID,
		Reason:         reason,
		OccurredAt:     time.Now().UTC(),
	})

	return result, nil
}
