package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicFor(t *testing.T) {
	assert.Equal(t, TopicInventoryEvents, TopicFor(EventTypeStockAdjusted))
	assert.Equal(t, TopicOrderEvents, TopicFor(EventTypeOrderStatusChanged))
	assert.Equal(t, TopicOrderEvents, TopicFor(EventTypeOrderRefunded))
}

func TestPublisher_PublishSendsJSON(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got OrderStatusChangedEvent
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.From != "pending" || got.To != "processing" {
			return errors.New("unexpected payload")
		}
		return nil
	})

	p := NewPublisherWithProducer(producer, nil)
	defer p.Close()

	err := p.Publish(context.Background(), OrderStatusChangedEvent{OrderID: 1, From: "pending", To: "processing"})
	require.NoError(t, err)
}

func TestPublisher_PublishReturnsSendError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewPublisherWithProducer(producer, nil)
	defer p.Close()

	err := p.Publish(context.Background(), StockAdjustedEvent{ProductID: 3})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

func TestConsumer_HandleMessageDispatchesByEventType(t *testing.T) {
	c := newConsumer("audit", AllTopics)

	var dedicated, fallback []Message
	c.RegisterHandler(EventTypeOrderRefunded, func(_ context.Context, msg Message) error {
		dedicated = append(dedicated, msg)
		return nil
	})
	c.RegisterFallback(func(_ context.Context, msg Message) error {
		fallback = append(fallback, msg)
		return nil
	})

	record := func(eventType string) *sarama.ConsumerMessage {
		return &sarama.ConsumerMessage{
			Topic: TopicOrderEvents,
			Key:   []byte("order_1"),
			Value: []byte(`{}`),
			Headers: []*sarama.RecordHeader{
				{Key: []byte(HeaderEventType), Value: []byte(eventType)},
				{Key: []byte(HeaderEventID), Value: []byte("evt_1")},
			},
		}
	}

	c.handleMessage(context.Background(), record(EventTypeOrderRefunded))
	c.handleMessage(context.Background(), record(EventTypeOrderCreated))
	c.handleMessage(context.Background(), &sarama.ConsumerMessage{Topic: TopicOrderEvents})

	require.Len(t, dedicated, 1)
	assert.Equal(t, "evt_1", dedicated[0].EventID)
	assert.Equal(t, "order_1", dedicated[0].Key)
	require.Len(t, fallback, 1)
	assert.Equal(t, EventTypeOrderCreated, fallback[0].EventType)
}
