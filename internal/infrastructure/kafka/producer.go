package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/andreyxaxa/order-saga/internal/infrastructure"
	"github.com/andreyxaxa/order-saga/pkg/kafka/producer"
	"github.com/segmentio/kafka-go"
)

const _eventIDHeader = "event_id"

// EventProducer publishes outbox records to topic = event type, keyed by
// aggregate id.
type EventProducer struct {
	*producer.Producer
}

func NewEventProducer(producer *producer.Producer) *EventProducer {
	return &EventProducer{producer}
}

func (ep *EventProducer) SendEvents(ctx context.Context, events []*entity.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}

	err := ep.Writer.WriteMessages(ctx, outboxMessages(events)...)
	if err != nil {
		var writeErrs kafka.WriteErrors
		if errors.As(err, &writeErrs) && len(writeErrs) == len(events) {
			return infrastructure.SendErrors(writeErrs)
		}

		return fmt.Errorf("EventProducer - SendEvents - ep.Writer.WriteMessages: %w", err)
	}

	return nil
}

// outboxMessages maps records to messages one to one, in order.
func outboxMessages(events []*entity.OutboxEvent) []kafka.Message {
	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		msgs = append(msgs, kafka.Message{
			Topic: event.EventType,
			Key:   []byte(event.AggregateID),
			Value: event.Payload,
			Headers: []kafka.Header{
				{Key: _eventIDHeader, Value: []byte(event.EventID)},
			},
		})
	}

	return msgs
}

func (ep *EventProducer) Close() error {
	err := ep.Producer.Close()
	if err != nil {
		return fmt.Errorf("EventProducer - Close: %w", err)
	}

	return nil
}
