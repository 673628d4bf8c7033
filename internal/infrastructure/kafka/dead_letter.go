package kafka

import (
	"context"
	"fmt"

	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/andreyxaxa/order-saga/internal/event"
	"github.com/andreyxaxa/order-saga/pkg/kafka/producer"
	"github.com/segmentio/kafka-go"
)

// DeadLetterProducer writes dead-letter envelopes to the dead-letter topic.
type DeadLetterProducer struct {
	*producer.Producer
}

func NewDeadLetterProducer(producer *producer.Producer) *DeadLetterProducer {
	return &DeadLetterProducer{producer}
}

func (dp *DeadLetterProducer) SendDeadLetter(ctx context.Context, key []byte, dl *entity.DeadLetter) error {
	value, err := dl.Encode()
	if err != nil {
		return fmt.Errorf("DeadLetterProducer - SendDeadLetter - dl.Encode: %w", err)
	}

	err = dp.Writer.WriteMessages(ctx, kafka.Message{
		Topic: event.DeadLetterTopic,
		Key:   key,
		Value: value,
		Headers: []kafka.Header{
			{Key: _eventIDHeader, Value: []byte(dl.EventID)},
		},
	})
	if err != nil {
		return fmt.Errorf("DeadLetterProducer - SendDeadLetter - dp.Writer.WriteMessages: %w", err)
	}

	return nil
}

func (dp *DeadLetterProducer) Close() error {
	err := dp.Producer.Close()
	if err != nil {
		return fmt.Errorf("DeadLetterProducer - Close: %w", err)
	}

	return nil
}
