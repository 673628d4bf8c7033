package outbox

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type passthroughTx struct{}

func (passthroughTx) WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error {
	return f(ctx)
}

type memOutboxRepo struct {
	mu      sync.Mutex
	records []*entity.OutboxEvent
	locked  bool
}

func newMemOutboxRepo() *memOutboxRepo {
	return &memOutboxRepo{}
}

func (m *memOutboxRepo) Create(_ context.Context, e *entity.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, e)

	return nil
}

func (m *memOutboxRepo) GetUnpublished(_ context.Context, limit int) ([]*entity.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entity.OutboxEvent
	for _, r := range m.records {
		if !r.Published && len(out) < limit {
			out = append(out, r)
		}
	}

	return out, nil
}

func (m *memOutboxRepo) TryLockRelay(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return !m.locked, nil
}

func (m *memOutboxRepo) MarkPublished(_ context.Context, ids uuid.UUIDs, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.records {
		if slices.Contains(ids, r.ID) {
			r.Published = true
			r.PublishedAt = &at
		}
	}

	return nil
}

func (m *memOutboxRepo) ListPublishedBefore(_ context.Context, before time.Time, limit int) ([]*entity.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entity.OutboxEvent
	for _, r := range m.records {
		if r.Published && r.PublishedAt.Before(before) && len(out) < limit {
			out = append(out, r)
		}
	}

	return out, nil
}

func (m *memOutboxRepo) DeleteByIDs(_ context.Context, ids uuid.UUIDs) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := len(m.records)
	m.records = slices.DeleteFunc(m.records, func(r *entity.OutboxEvent) bool {
		return slices.Contains(ids, r.ID)
	})

	return int64(before - len(m.records)), nil
}

func (m *memOutboxRepo) published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for _, r := range m.records {
		if r.Published {
			out = append(out, r.EventID)
		}
	}

	return out
}

func (m *memOutboxRepo) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.records)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendEvents(ctx context.Context, events []*entity.OutboxEvent) error {
	args := m.Called(ctx, events)

	return args.Error(0)
}

func (m *mockSender) Close() error {
	return nil
}

type mockArchive struct {
	mock.Mock
}

func (m *mockArchive) Archive(ctx context.Context, key string, events []*entity.OutboxEvent) error {
	args := m.Called(ctx, key, events)

	return args.Error(0)
}
