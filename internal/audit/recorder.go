// Package audit turns the domain event stream into a structured log trail.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tair/commerce-core/kafka"
	"github.com/tair/commerce-core/pkg/logger"
)

// warnEvents are logged at warn level so they stand out in the trail
var warnEvents = map[string]bool{
	kafka.EventTypeOrderPaymentFailed: true,
	kafka.EventTypeOrderDeleted:       true,
	kafka.EventTypeOrderRefunded:      true,
}

// Register attaches the recorder to every event type of consumer
func Register(consumer *kafka.Consumer) {
	consumer.RegisterFallback(Record)
}

// Record logs one domain event with its payload fields flattened into the entry.
// Undecodable payloads are logged raw and are not retried.
func Record(ctx context.Context, msg kafka.Message) error {
	var event *zerolog.Event
	if warnEvents[msg.EventType] {
		event = logger.Warn(ctx)
	} else {
		event = logger.Info(ctx)
	}

	event = event.
		Str("event_type", msg.EventType).
		Str("event_id", msg.EventID).
		Str("topic", msg.Topic).
		Str("key", msg.Key).
		Int64("offset", msg.Offset)

	var payload map[string]interface{}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		event.Bytes("raw_payload", msg.Payload).Msg("Audit event with undecodable payload")
		return fmt.Errorf("failed to decode %s payload: %w", msg.EventType, err)
	}

	event.Fields(map[string]interface{}{"payload": payload}).Msg("Audit event")
	return nil
}
