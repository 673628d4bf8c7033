package inventory

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

type memProducts struct {
	mu       sync.Mutex
	products map[string]entity.Product

	// beforeAdjust runs ahead of every AdjustStock, outside the lock
	beforeAdjust func(productID string)
	failAdjust   map[string]error
}

func newMemProducts(products ...entity.Product) *memProducts {
	m := &memProducts{products: make(map[string]entity.Product)}
	for _, p := range products {
		m.products[p.ProductID] = p
	}

	return m
}

func (m *memProducts) Create(_ context.Context, p *entity.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.products[p.ProductID] = *p

	return nil
}

func (m *memProducts) GetByID(_ context.Context, productID string) (*entity.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}

	return &p, nil
}

func (m *memProducts) List(_ context.Context) ([]*entity.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*entity.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, &p)
	}
	slices.SortFunc(out, func(a, b *entity.Product) int {
		if a.ProductID < b.ProductID {
			return -1
		}

		return 1
	})

	return out, nil
}

func (m *memProducts) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return int64(len(m.products)), nil
}

func (m *memProducts) AdjustStock(_ context.Context, productID string, delta int, expectedVersion int64) (bool, error) {
	if m.beforeAdjust != nil {
		m.beforeAdjust(productID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failAdjust[productID]; err != nil {
		return false, err
	}

	p, ok := m.products[productID]
	if !ok || p.Version != expectedVersion || p.Stock+delta < 0 {
		return false, nil
	}

	p.Stock += delta
	p.Version++
	m.products[productID] = p

	return true, nil
}

func (m *memProducts) get(productID string) entity.Product {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.products[productID]
}

// set overwrites a product, as a concurrent writer would.
func (m *memProducts) set(p entity.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.products[p.ProductID] = p
}

type reservationKey struct {
	orderID   string
	productID string
}

type memReservations struct {
	mu   sync.Mutex
	rows map[reservationKey]entity.StockReservation
}

func newMemReservations() *memReservations {
	return &memReservations{rows: make(map[reservationKey]entity.StockReservation)}
}

func (m *memReservations) Create(_ context.Context, r *entity.StockReservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows[reservationKey{r.OrderID, r.ProductID}] = *r

	return nil
}

func (m *memReservations) Exists(_ context.Context, orderID, productID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.rows[reservationKey{orderID, productID}]

	return ok, nil
}

func (m *memReservations) ListByOrder(_ context.Context, orderID string) ([]*entity.StockReservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entity.StockReservation
	for key, r := range m.rows {
		if key.orderID == orderID {
			out = append(out, &r)
		}
	}

	return out, nil
}

func (m *memReservations) Delete(_ context.Context, orderID, productID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := reservationKey{orderID, productID}
	if _, ok := m.rows[key]; !ok {
		return false, nil
	}
	delete(m.rows, key)

	return true, nil
}

func (m *memReservations) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.rows)
}

func (m *memReservations) quantity(orderID, productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.rows[reservationKey{orderID, productID}].Quantity
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

// ofType returns the emitted envelopes of eventType, in emission order.
func (m *memOutbox) ofType(eventType string) []*event.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*event.Envelope
	for _, e := range m.events {
		if e.EventType != eventType {
			continue
		}

		env, err := event.Parse(e.Payload)
		if err != nil {
			panic(err)
		}
		out = append(out, env)
	}

	return out
}

func (m *memOutbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.events)
}
