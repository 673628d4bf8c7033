package order

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/andreyxaxa/order-saga/internal/event"
	"github.com/andreyxaxa/order-saga/pkg/types/errs"
	"github.com/google/uuid"
)

type passthroughTx struct{}

func (passthroughTx) WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error {
	return f(ctx)
}

type memOrders struct {
	mu     sync.Mutex
	orders map[string]entity.Order
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[string]entity.Order)}
}

func (m *memOrders) Create(_ context.Context, o *entity.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.orders[o.OrderID] = *o

	return nil
}

func (m *memOrders) GetByID(_ context.Context, orderID string) (*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}

	return &o, nil
}

func (m *memOrders) ListByUser(_ context.Context, userID string) ([]*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entity.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, &o)
		}
	}

	return out, nil
}

func (m *memOrders) UpdateStatus(_ context.Context, o *entity.Order, from entity.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.orders[o.OrderID]
	if !ok || stored.Status != from {
		return false, nil
	}
	m.orders[o.OrderID] = *o

	return true, nil
}

func (m *memOrders) ListPaidBefore(_ context.Context, before time.Time, limit int) ([]*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entity.Order
	for _, o := range m.orders {
		if o.Status == entity.StatusPaid && o.UpdatedAt.Before(before) {
			out = append(out, &o)
		}
	}
	slices.SortFunc(out, func(a, b *entity.Order) int {
		return a.UpdatedAt.Compare(b.UpdatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (m *memOrders) status(orderID string) entity.Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.orders[orderID].Status
}

// put stores o as is, bypassing the transition table.
func (m *memOrders) put(o entity.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.orders[o.OrderID] = o
}

type memOutbox struct {
	mu     sync.Mutex
	events []*entity.OutboxEvent
}

func (m *memOutbox) Create(_ context.Context, e *entity.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, e)

	return nil
}

func (m *memOutbox) GetUnpublished(context.Context, int) ([]*entity.OutboxEvent, error) {
	return nil, nil
}

func (m *memOutbox) TryLockRelay(context.Context) (bool, error) {
	return true, nil
}

func (m *memOutbox) MarkPublished(context.Context, uuid.UUIDs, time.Time) error {
	return nil
}

func (m *memOutbox) ListPublishedBefore(context.Context, time.Time, int) ([]*entity.OutboxEvent, error) {
	return nil, nil
}

func (m *memOutbox) DeleteByIDs(context.Context, uuid.UUIDs) (int64, error) {
	return 0, nil
}

func (m *memOutbox) envelopes() []*event.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*event.Envelope, 0, len(m.events))
	for _, e := range m.events {
		env, err := event.Parse(e.Payload)
		if err != nil {
			panic(err)
		}
		out = append(out, env)
	}

	return out
}

func (m *memOutbox) aggregates() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.AggregateID)
	}

	return out
}
