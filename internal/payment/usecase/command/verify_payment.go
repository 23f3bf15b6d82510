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

const signatureFailureReason = "payment signature verification failed"

// VerifyPaymentCommand is the gateway's success callback
type VerifyPaymentCommand struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// VerifyPaymentHandler handles verify payment command
type VerifyPaymentHandler struct {
	tx        database.Transactor
	orders    orderdomain.OrderRepository
	carts     domain.CartStore
	gateway   domain.Gateway
	publisher kafka.EventPublisher
	now       func() time.Time
}

// NewVerifyPaymentHandler creates a new verify payment handler
func NewVerifyPaymentHandler(
	tx database.Transactor,
	orders orderdomain.OrderRepository,
	carts domain.CartStore,
	gateway domain.Gateway,
	publisher kafka.EventPublisher,
) *VerifyPaymentHandler {
	return &VerifyPaymentHandler{
		tx:        tx,
		orders:    orders,
		carts:     carts,
		gateway:   gateway,
		publisher: publisher,
		now:       time.Now,
	}
}

// Handle verifies the callback signature. A valid signature marks the order paid and
// confirmed and clears the customer's cart in the same transaction. An invalid one
// cancels the order and returns ErrSignatureVerificationFailed.
func (h *VerifyPaymentHandler) Handle(ctx context.Context, cmd VerifyPaymentCommand) (*orderdomain.Order, error) {
	if cmd.GatewayOrderID == "" {
		return nil, domain.Validationf("gateway order id is required")
	}

	if _, err := h.orders.FindByGatewayOrderID(ctx, cmd.GatewayOrderID); err != nil {
		if errors.Is(err, orderdomain.ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	if err := h.gateway.VerifySignature(cmd.GatewayOrderID, cmd.GatewayPaymentID, cmd.Signature); err != nil {
		return nil, h.reject(ctx, cmd)
	}

	var (
		order   *orderdomain.Order
		cleared int64
		replay  bool
	)
	err := h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = h.orders.LockByGatewayOrderID(ctx, cmd.GatewayOrderID)
		if err != nil {
			return err
		}

		if order.PaymentStatus.IsSettled() {
			if order.GatewayPaymentID != nil && *order.GatewayPaymentID == cmd.GatewayPaymentID {
				replay = true
				return nil
			}
			return domain.ErrAlreadyPaid
		}
		if !order.CanAcceptPayment() {
			return &domain.PaymentClosedError{Status: order.Status, PaymentStatus: order.PaymentStatus}
		}

		order.MarkPaid(cmd.GatewayPaymentID, h.now().UTC())
		if err := h.orders.Update(ctx, order); err != nil {
			return err
		}

		cleared, err = h.carts.DeleteByCustomer(ctx, order.CustomerID)
		if err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.PaymentEventsTotal.WithLabelValues("confirm", metrics.ResultError).Inc()
		if errors.Is(err, domain.ErrAlreadyPaid) || errors.Is(err, domain.ErrPaymentClosed) ||
			errors.Is(err, orderdomain.ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}

	if replay {
		logger.Info(ctx).
			Uint("order_id", order.ID).
			Str("gateway_payment_id", cmd.GatewayPaymentID).
			Msg("Duplicate payment confirmation ignored")
		return order, nil
	}

	metrics.PaymentEventsTotal.WithLabelValues("confirm", metrics.ResultSuccess).Inc()

	logger.Info(ctx).
		Uint("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Str("gateway_payment_id", cmd.GatewayPaymentID).
		Int64("cart_items_cleared", cleared).
		Msg("Payment confirmed")

	kafka.PublishBestEffort(ctx, h.publisher, kafka.PaymentConfirmedEvent{
		OrderID:          order.ID,
		OrderNumber:      order.OrderNumber,
		CustomerID:       order.CustomerID,
		GatewayOrderID:   cmd.GatewayOrderID,
		GatewayPaymentID: cmd.GatewayPaymentID,
		Amount:           order.TotalAmount.StringFixed(2),
		CartItemsCleared: cleared,
		OccurredAt:       *order.PaidAt,
	})

	return order, nil
}

// reject cancels the order after a bad signature. Only an order still waiting for its
// first payment is cancelled; settled, refunded and already cancelled orders are left
// as they are.
func (h *VerifyPaymentHandler) reject(ctx context.Context, cmd VerifyPaymentCommand) error {
	var (
		order     *orderdomain.Order
		cancelled bool
	)
	err := h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = h.orders.LockByGatewayOrderID(ctx, cmd.GatewayOrderID)
		if err != nil {
			return err
		}
		if !order.CanAcceptPayment() {
			return nil
		}

		order.MarkPaymentFailed(signatureFailureReason)
		cancelled = true
		return h.orders.Update(ctx, order)
	})
	metrics.PaymentEventsTotal.WithLabelValues("confirm", metrics.ResultRejected).Inc()
	if err != nil {
		return fmt.Errorf("%w: recording failure: %v", domain.ErrSignatureVerificationFailed, err)
	}

	logger.Warn(ctx).
		Uint("order_id", order.ID).
		Str("gateway_order_id", cmd.GatewayOrderID).
		Str("gateway_payment_id", cmd.GatewayPaymentID).
		Bool("order_cancelled", cancelled).
		Msg("Payment signature verification failed")

	if cancelled {
		kafka.PublishBestEffort(ctx, h.publisher, kafka.PaymentFailedEvent{
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			GatewayOrderID: cmd.GatewayOrderID,
			Reason:         signatureFailureReason,
			OccurredAt:     time.Now().UTC(),
		})
	}

	return domain.ErrSignatureVerificationFailed
}
