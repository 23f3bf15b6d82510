package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tair/commerce-core/internal/order/domain"
	"github.com/tair/commerce-core/kafka"
	"github.com/tair/commerce-core/pkg/database"
	"github.com/tair/commerce-core/pkg/logger"
	"github.com/tair/commerce-core/pkg/metrics"
)

// TransitionStatusCommand represents an operator request to move an order to a new status
type TransitionStatusCommand struct {
	OrderID uint
	Status  domain.Status
	// Notes replaces the order notes when set
	Notes   *string
	ActorID uint
}

// TransitionStatusHandler handles transition status command
type TransitionStatusHandler struct {
	tx        database.Transactor
	repo      domain.OrderRepository
	publisher kafka.EventPublisher
}

// NewTransitionStatusHandler creates a new transition status handler
func NewTransitionStatusHandler(tx database.Transactor, repo domain.OrderRepository, publisher kafka.EventPublisher) *TransitionStatusHandler {
	return &TransitionStatusHandler{tx: tx, repo: repo, publisher: publisher}
}

// Handle executes the transition status command. The order row stays locked from
// the table check until the new status is written.
func (h *TransitionStatusHandler) Handle(ctx context.Context, cmd TransitionStatusCommand) (*domain.Order, error) {
	if cmd.OrderID == 0 {
		return nil, domain.Validationf("order_id is required")
	}
	if !cmd.Status.IsValid() {
		return nil, domain.Validationf("unknown status %q", cmd.Status)
	}

	var (
		order *domain.Order
		from  domain.Status
	)
	err := h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = h.repo.LockByID(ctx, cmd.OrderID)
		if err != nil {
			return err
		}

		from = order.Status
		if err := order.TransitionTo(cmd.Status); err != nil {
			return err
		}
		if cmd.Notes != nil {
			order.Notes = cmd.Notes
		}

		return h.repo.Update(ctx, order)
	})
	if err != nil {
		result := metrics.ResultError
		if errors.Is(err, domain.ErrInvalidTransition) {
			result = metrics.ResultRejected
		}
		metrics.OrderTransitionsTotal.WithLabelValues(string(from), string(cmd.Status), result).Inc()

		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to transition order status: %w", err)
	}

	metrics.OrderTransitionsTotal.WithLabelValues(string(from), string(order.Status), metrics.ResultSuccess).Inc()

	logger.Info(ctx).
		Uint("order_id", order.ID).
		Str("from", string(from)).
		Str("to", string(order.Status)).
		Uint("actor_id", cmd.ActorID).
		Msg("Order status changed")

	kafka.PublishBestEffort(ctx, h.publisher, kafka.OrderStatusChangedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		From:        string(from),
		To:          string(order.Status),
		ActorID:     cmd.ActorID,
		OccurredAt:  time.Now().UTC(),
	})

	return order, nil
}
