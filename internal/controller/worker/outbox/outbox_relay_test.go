package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/andreyxaxa/order-saga/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedOutbox returns the queued PublishPending results in order, then 0.
type scriptedOutbox struct {
	mu       sync.Mutex
	results  []int
	publish  int
	cleanups int
	err      error
}

func (s *scriptedOutbox) PublishPending(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.publish++
	if s.err != nil {
		return 0, s.err
	}
	if len(s.results) == 0 {
		return 0, nil
	}

	n := s.results[0]
	s.results = s.results[1:]

	return n, nil
}

func (s *scriptedOutbox) Cleanup(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanups++

	return 1, nil
}

func (s *scriptedOutbox) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.publish, s.cleanups
}

func TestOutboxRelay_DrainsUntilEmpty(t *testing.T) {
	// Arrange
	ob := &scriptedOutbox{results: []int{100, 100, 3}}
	r := New(ob, logger.Discard(), time.Hour, time.Hour, time.Second)

	// Act
	r.processEventsBatch(context.Background())

	// Assert
	publish, _ := ob.counts()
	assert.Equal(t, 4, publish, "three batches plus the empty one")
}

func TestOutboxRelay_StopsOnError(t *testing.T) {
	ob := &scriptedOutbox{err: errors.New("pg down")}
	r := New(ob, logger.Discard(), time.Hour, time.Hour, time.Second)

	r.processEventsBatch(context.Background())

	publish, _ := ob.counts()
	assert.Equal(t, 1, publish)
}

func TestOutboxRelay_RunsBothWorkers(t *testing.T) {
	ob := &scriptedOutbox{}
	r := New(ob, logger.Discard(), 5*time.Millisecond, 5*time.Millisecond, time.Second)

	require.NoError(t, r.Start(context.Background()))
	assert.Error(t, r.Start(context.Background()))

	assert.Eventually(t, func() bool {
		publish, cleanups := ob.counts()

		return publish >= 2 && cleanups >= 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, r.Shutdown(context.Background()))
}
