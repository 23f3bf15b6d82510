package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/tair/commerce-core/pkg/logger"
)

// Event is a domain event that can be published to Kafka
type Event interface {
	EventType() string
	// PartitionKey keeps events of one aggregate on one partition
	PartitionKey() string
}

// EventPublisher publishes domain events. Publishing happens after the owning
// transaction commits; a failed publish never undoes the business change.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Event types
const (
	EventTypeOrderCreated          = "order.created"
	EventTypeOrderStatusChanged    = "order.status_changed"
	EventTypeOrderPaymentConfirmed = "order.payment_confirmed"
	EventTypeOrderPaymentFailed    = "order.payment_failed"
	EventTypeOrderRefunded         = "order.refunded"
	EventTypeOrderDeleted          = "order.deleted"
	EventTypeStockAdjusted         = "inventory.stock_adjusted"
)

// Kafka topics
const (
	TopicOrderEvents     = "order-events"
	TopicInventoryEvents = "inventory-events"
)

// AllTopics lists every topic this system writes to
var AllTopics = []string{TopicOrderEvents, TopicInventoryEvents}

// TopicFor routes an event type to its topic
func TopicFor(eventType string) string {
	switch eventType {
	case EventTypeStockAdjusted:
		return TopicInventoryEvents
	default:
		return TopicOrderEvents
	}
}

// OrderCreatedEvent is emitted when an order row is first written
type OrderCreatedEvent struct {
	OrderID        uint      `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	CustomerID     uint      `json:"customer_id"`
	TotalAmount    string    `json:"total_amount"`
	GatewayOrderID string    `json:"gateway_order_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (e OrderCreatedEvent) EventType() string    { return EventTypeOrderCreated }
func (e OrderCreatedEvent) PartitionKey() string { return orderKey(e.OrderID) }

// OrderStatusChangedEvent is emitted after an order status transition commits
type OrderStatusChangedEvent struct {
	OrderID     uint      `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	ActorID     uint      `json:"actor_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (e OrderStatusChangedEvent) EventType() string    { return EventTypeOrderStatusChanged }
func (e OrderStatusChangedEvent) PartitionKey() string { return orderKey(e.OrderID) }

// PaymentConfirmedEvent is emitted once a verified payment is recorded
type PaymentConfirmedEvent struct {
	OrderID          uint      `json:"order_id"`
	OrderNumber      string    `json:"order_number"`
	CustomerID       uint      `json:"customer_id"`
	GatewayOrderID   string    `json:"gateway_order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	Amount           string    `json:"amount"`
	CartItemsCleared int64     `json:"cart_items_cleared"`
	OccurredAt       time.Time `json:"occurred_at"`
}

func (e PaymentConfirmedEvent) EventType() string    { return EventTypeOrderPaymentConfirmed }
func (e PaymentConfirmedEvent) PartitionKey() string { return orderKey(e.OrderID) }

// PaymentFailedEvent is emitted when a payment is marked failed
type PaymentFailedEvent struct {
	OrderID        uint      `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	GatewayOrderID string    `json:"gateway_order_id"`
	Reason         string    `json:"reason"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (e PaymentFailedEvent) EventType() string    { return EventTypeOrderPaymentFailed }
func (e PaymentFailedEvent) PartitionKey() string { return orderKey(e.OrderID) }

// OrderRefundedEvent is emitted after a refund is recorded
type OrderRefundedEvent struct {
	OrderID     uint      `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Amount      string    `json:"amount"`
	ActorID     uint      `json:"actor_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (e OrderRefundedEvent) EventType() string    { return EventTypeOrderRefunded }
func (e OrderRefundedEvent) PartitionKey() string { return orderKey(e.OrderID) }

// OrderDeletedEvent is emitted when an administrator hard-deletes an order
type OrderDeletedEvent struct {
	OrderID     uint      `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	ActorID     uint      `json:"actor_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (e OrderDeletedEvent) EventType() string    { return EventTypeOrderDeleted }
func (e OrderDeletedEvent) PartitionKey() string { return orderKey(e.OrderID) }

// StockAdjustedEvent mirrors one appended stock movement
type StockAdjustedEvent struct {
	MovementID     uint      `json:"movement_id"`
	InventoryID    uint      `json:"inventory_id"`
	ProductID      uint      `json:"product_id"`
	Location       string    `json:"location"`
	MovementType   string    `json:"movement_type"`
	Quantity       int       `json:"quantity"`
	QuantityBefore int       `json:"quantity_before"`
	QuantityAfter  int       `json:"quantity_after"`
	ProductStock   int       `json:"product_stock"`
	ActorID        uint      `json:"actor_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (e StockAdjustedEvent) EventType() string    { return EventTypeStockAdjusted }
func (e StockAdjustedEvent) PartitionKey() string { return fmt.Sprintf("product_%d", e.ProductID) }

func orderKey(id uint) string {
	return fmt.Sprintf("order_%d", id)
}

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// PublishBestEffort publishes event once the business change is durable. Errors are
// logged and swallowed.
func PublishBestEffort(ctx context.Context, publisher EventPublisher, event Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn(ctx).
			Err(err).
			Str("event_type", event.EventType()).
			Str("partition_key", event.PartitionKey()).
			Msg("Domain event was not published")
	}
}
