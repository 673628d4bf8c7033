package kafka

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/segmentio/kafka-go"
)

// memProcessed is a processed-events table whose writes roll back with
// memTx.
type memProcessed struct {
	mu  sync.Mutex
	ids map[string]entity.ProcessedEvent
}

func newMemProcessed() *memProcessed {
	return &memProcessed{ids: make(map[string]entity.ProcessedEvent)}
}

func (m *memProcessed) IsProcessed(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.ids[eventID]

	return ok, nil
}

func (m *memProcessed) MarkProcessed(_ context.Context, pe *entity.ProcessedEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ids[pe.EventID]; ok {
		return false, nil
	}
	m.ids[pe.EventID] = *pe

	return true, nil
}

func (m *memProcessed) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.ids)
}

type memTx struct {
	processed *memProcessed
}

func (tx *memTx) WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error {
	tx.processed.mu.Lock()
	snapshot := maps.Clone(tx.processed.ids)
	tx.processed.mu.Unlock()

	err := f(ctx)
	if err != nil {
		tx.processed.mu.Lock()
		tx.processed.ids = snapshot
		tx.processed.mu.Unlock()
	}

	return err
}

type deadLetterRecord struct {
	key []byte
	dl  *entity.DeadLetter
}

type fakeDeadLetters struct {
	mu      sync.Mutex
	sent    []deadLetterRecord
	failErr error
}

func (f *fakeDeadLetters) SendDeadLetter(_ context.Context, key []byte, dl *entity.DeadLetter) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failErr != nil {
		return f.failErr
	}
	f.sent = append(f.sent, deadLetterRecord{key: key, dl: dl})

	return nil
}

func (f *fakeDeadLetters) Close() error {
	return nil
}

func (f *fakeDeadLetters) records() []deadLetterRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]deadLetterRecord(nil), f.sent...)
}

var errReaderClosed = errors.New("reader closed")

// chanReader serves messages from a channel and records commits.
type chanReader struct {
	topic    string
	messages chan kafka.Message

	mu        sync.Mutex
	committed []kafka.Message
	closed    bool
}

func newChanReader(topic string, n int) *chanReader {
	return &chanReader{topic: topic, messages: make(chan kafka.Message, n)}
}

func (r *chanReader) ReadEvent(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case msg, ok := <-r.messages:
		if !ok {
			<-ctx.Done()

			return kafka.Message{}, errReaderClosed
		}

		return msg, nil
	}
}

func (r *chanReader) CommitEvent(_ context.Context, msg kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.committed = append(r.committed, msg)

	return nil
}

func (r *chanReader) Topic() string {
	return r.topic
}

func (r *chanReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	return nil
}

func (r *chanReader) commits() []kafka.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]kafka.Message(nil), r.committed...)
}
