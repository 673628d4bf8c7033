package infrastructure

import (
	"context"
	"fmt"

	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/segmentio/kafka-go"
)

type (
	// EventsSender publishes outbox records. When only part of a batch is
	// acknowledged it returns SendErrors.
	EventsSender interface {
		SendEvents(ctx context.Context, events []*entity.OutboxEvent) error
		Close() error
	}

	DeadLetterSender interface {
		SendDeadLetter(ctx context.Context, key []byte, dl *entity.DeadLetter) error
		Close() error
	}

	EventReader interface {
		ReadEvent(ctx context.Context) (kafka.Message, error)
		CommitEvent(ctx context.Context, msg kafka.Message) error
		Topic() string
		Close() error
	}
)

// SendErrors has one entry per event of the batch, in batch order; nil
// entries were acknowledged.
type SendErrors []error

func (e SendErrors) Error() string {
	failed := 0
	var first error
	for _, err := range e {
		if err != nil {
			if first == nil {
				first = err
			}
			failed++
		}
	}

	return fmt.Sprintf("%d of %d events not sent, first: %v", failed, len(e), first)
}
