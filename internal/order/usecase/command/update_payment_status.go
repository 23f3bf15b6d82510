package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/tair/commerce-core/internal/order/domain"
	"github.com/tair/commerce-core/pkg/database"
	"github.com/tair/commerce-core/pkg/logger"
)

// UpdatePaymentStatusCommand sets the payment status directly. Operators may pick
// any known value; there is no transition table on this path.
type UpdatePaymentStatusCommand struct {
	OrderID       uint
	PaymentStatus domain.PaymentStatus
	ActorID       uint
}

// UpdatePaymentStatusHandler handles update payment status command
type UpdatePaymentStatusHandler struct {
	tx   database.Transactor
	repo domain.OrderRepository
}

// NewUpdatePaymentStatusHandler creates a new update payment status handler
func NewUpdatePaymentStatusHandler(tx database.Transactor, repo domain.OrderRepository) *UpdatePaymentStatusHandler {
	return &UpdatePaymentStatusHandler{tx: tx, repo: repo}
}

// Handle executes the update payment status command
func (h *UpdatePaymentStatusHandler) Handle(ctx context.Context, cmd UpdatePaymentStatusCommand) (*domain.Order, error) {
	if cmd.OrderID == 0 {
		return nil, domain.Validationf("order_id is required")
	}
	if !cmd.PaymentStatus.IsValid() {
		return nil, domain.Validationf("unknown payment status %q", cmd.PaymentStatus)
	}

	var (
		order    *domain.Order
		previous domain.PaymentStatus
	)
	err := h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = h.repo.LockByID(ctx, cmd.OrderID)
		if err != nil {
			return err
		}

		previous = order.PaymentStatus
		order.PaymentStatus = cmd.PaymentStatus
		return h.repo.Update(ctx, order)
	})
	if errors.Is(err, domain.ErrOrderNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	logger.Info(ctx).
		Uint("order_id", order.ID).
		Str("from", string(previous)).
		Str("to", string(order.PaymentStatus)).
		Uint("actor_id", cmd.ActorID).
		Msg("Order payment status set by operator")

	return order, nil
}
