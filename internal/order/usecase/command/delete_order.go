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
)

// DeleteOrderCommand represents the command to permanently remove an order
type DeleteOrderCommand struct {
	OrderID uint
	ActorID uint
}

// DeleteOrderHandler handles delete order command. Deletion is outside the status
// machine and cannot be undone.
type DeleteOrderHandler struct {
	tx        database.Transactor
	repo      domain.OrderRepository
	publisher kafka.EventPublisher
}

// NewDeleteOrderHandler creates a new delete order handler
func NewDeleteOrderHandler(tx database.Transactor, repo domain.OrderRepository, publisher kafka.EventPublisher) *DeleteOrderHandler {
	return &DeleteOrderHandler{tx: tx, repo: repo, publisher: publisher}
}

// Handle executes the delete order command
func (h *DeleteOrderHandler) Handle(ctx context.Context, cmd DeleteOrderCommand) error {
	if cmd.OrderID == 0 {
		return domain.Validationf("order_id is required")
	}

	var number string
	err := h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := h.repo.LockByID(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		number = order.OrderNumber
		return h.repo.Delete(ctx, order.ID)
	})
	if errors.Is(err, domain.ErrOrderNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	logger.Warn(ctx).
		Uint("order_id", cmd.OrderID).
		Str("order_number", number).
		Uint("actor_id", cmd.ActorID).
		Msg("Order permanently deleted")

	kafka.PublishBestEffort(ctx, h.publisher, kafka.OrderDeletedEvent{
		OrderID:     cmd.OrderID,
		OrderNumber: number,
		ActorID:     cmd.ActorID,
		OccurredAt:  time.Now().UTC(),
	})

	return nil
}
