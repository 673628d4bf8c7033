package entity

import (
	"fmt"
	"time"

	"github.com/andreyxaxa/order-saga/internal/event"
	"github.com/google/uuid"
)

// OutboxEvent is an event written in the same transaction as the state
// change it announces. AggregateID is the order id and is used as the
// partition key.
type OutboxEvent struct {
	ID          uuid.UUID  `json:"id"`
	AggregateID string     `json:"aggregate_id"`
	EventType   string     `json:"event_type"`
	EventID     string     `json:"event_id"`
	Payload     []byte     `json:"payload"`
	Published   bool       `json:"published"`
	CreatedAt   time.Time  `json:"created_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// NewOutboxEvent wraps an encoded event. Ids are UUIDv7 so they sort in
// creation order.
func NewOutboxEvent(aggregateID string, env *event.Envelope, now time.Time) (*OutboxEvent, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("entity - NewOutboxEvent - uuid.NewV7: %w", err)
	}

	return &OutboxEvent{
		ID:          id,
		AggregateID: aggregateID,
		EventType:   env.EventType,
		EventID:     env.EventID,
		Payload:     env.Raw,
		CreatedAt:   now,
	}, nil
}
