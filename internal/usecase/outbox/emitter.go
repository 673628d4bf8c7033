package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/andreyxaxa/order-saga/internal/event"
	"github.com/andreyxaxa/order-saga/internal/repo"
)

// Emitter writes events to the outbox. Call it inside the transaction of
// the state change the event announces.
type Emitter struct {
	repo repo.OutboxRepo
	now  func() time.Time
}

func NewEmitter(r repo.OutboxRepo) *Emitter {
	return &Emitter{repo: r, now: time.Now}
}

// Emit encodes payload as an event of eventType and stores it keyed by
// aggregateID.
func (e *Emitter) Emit(ctx context.Context, aggregateID, eventType, correlationID string, payload any) (*event.Envelope, error) {
	env, err := event.New(eventType, correlationID, payload)
	if err != nil {
		return nil, fmt.Errorf("Emitter - Emit - event.New: %w", err)
	}

	record, err := entity.NewOutboxEvent(aggregateID, env, e.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("Emitter - Emit - entity.NewOutboxEvent: %w", err)
	}

	err = e.repo.Create(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("Emitter - Emit - e.repo.Create: %w", err)
	}

	return env, nil
}
