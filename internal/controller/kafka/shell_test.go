package kafka

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andreyxaxa/order-saga/internal/event"
	"github.com/andreyxaxa/order-saga/pkg/logger"
	"github.com/andreyxaxa/order-saga/pkg/telemetry"
	"github.com/andreyxaxa/order-saga/pkg/types/errs"
	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shellFixture struct {
	shell     *Shell
	processed *memProcessed
	dlq       *fakeDeadLetters
}

func newShellFixture(opts ...ShellOption) *shellFixture {
	processed := newMemProcessed()
	dlq := &fakeDeadLetters{}

	opts = append([]ShellOption{Backoff(time.Millisecond, 2)}, opts...)

	return &shellFixture{
		shell:     NewShell(&memTx{processed: processed}, processed, dlq, telemetry.NewMetrics(), logger.Discard(), opts...),
		processed: processed,
		dlq:       dlq,
	}
}

func orderCreatedMessage(t *testing.T) kafka.Message {
	t.Helper()

	env, err := event.New(event.OrderCreated, "corr-1", &event.OrderFulfilledPayload{OrderID: "ORD-1", TrackingNumber: "T"})
	require.NoError(t, err)

	return kafka.Message{Topic: event.OrderCreated, Key: []byte("ORD-1"), Value: env.Raw, Offset: 7}
}

func countingHandler(calls *atomic.Int32, err error) Handler {
	return func(context.Context, *event.Envelope) error {
		calls.Add(1)

		return err
	}
}

func TestShell_AppliesOnce(t *testing.T) {
	// Arrange
	f := newShellFixture()
	msg := orderCreatedMessage(t)

	var calls atomic.Int32
	h := countingHandler(&calls, nil)

	// Act
	first, err := f.shell.Handle(context.Background(), msg, h)
	require.NoError(t, err)
	second, err := f.shell.Handle(context.Background(), msg, h)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, OutcomeApplied, first)
	assert.Equal(t, OutcomeDuplicate, second)
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, 1, f.processed.count())
	assert.Empty(t, f.dlq.records())
}

func TestShell_TransientFailuresDeadLetter(t *testing.T) {
	// Arrange
	f := newShellFixture()
	msg := orderCreatedMessage(t)

	var calls atomic.Int32
	h := countingHandler(&calls, errors.New("connection reset"))

	// Act
	outcome, err := f.shell.Handle(context.Background(), msg, h)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeadLettered, outcome)
	assert.EqualValues(t, 3, calls.Load())
	assert.Zero(t, f.processed.count(), "a dead-lettered event is not recorded as processed")

	records := f.dlq.records()
	require.Len(t, records, 1)

	dl := records[0].dl
	assert.Equal(t, []byte("ORD-1"), records[0].key)
	assert.Equal(t, event.OrderCreated, dl.OriginalTopic)
	assert.Equal(t, 3, dl.RetryCount)
	assert.Contains(t, dl.ErrorReason, "connection reset")
	assert.JSONEq(t, string(msg.Value), string(dl.Payload))

	env, err := event.Parse(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, env.EventID, dl.EventID)
}

func TestShell_RecoversWithinBudget(t *testing.T) {
	f := newShellFixture()
	msg := orderCreatedMessage(t)

	var calls atomic.Int32
	h := func(context.Context, *event.Envelope) error {
		if calls.Add(1) < 3 {
			return errors.New("deadlock detected")
		}

		return nil
	}

	outcome, err := f.shell.Handle(context.Background(), msg, h)

	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, 1, f.processed.count())
	assert.Empty(t, f.dlq.records())
}

func TestShell_PermanentErrorsSkipRetries(t *testing.T) {
	tests := []struct {
		name    string
		handler func(calls *atomic.Int32) Handler
	}{
		{
			name: "validation",
			handler: func(calls *atomic.Int32) Handler {
				return countingHandler(calls, errs.Validation("missing order_id"))
			},
		},
		{
			name: "not found",
			handler: func(calls *atomic.Int32) Handler {
				return countingHandler(calls, errs.ErrRecordNotFound)
			},
		},
		{
			name: "panic",
			handler: func(calls *atomic.Int32) Handler {
				return func(context.Context, *event.Envelope) error {
					calls.Add(1)
					panic("nil map")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newShellFixture()

			var calls atomic.Int32
			outcome, err := f.shell.Handle(context.Background(), orderCreatedMessage(t), tt.handler(&calls))

			require.NoError(t, err)
			assert.Equal(t, OutcomeDeadLettered, outcome)
			assert.EqualValues(t, 1, calls.Load())

			records := f.dlq.records()
			require.Len(t, records, 1)
			assert.Equal(t, 1, records[0].dl.RetryCount)
		})
	}
}

func TestShell_UnparseableMessage(t *testing.T) {
	f := newShellFixture()
	msg := kafka.Message{Topic: event.PaymentFailed, Key: []byte("k"), Value: []byte(`{"order_id":"ORD-1"}`)}

	var calls atomic.Int32
	outcome, err := f.shell.Handle(context.Background(), msg, countingHandler(&calls, nil))

	require.NoError(t, err)
	assert.Equal(t, OutcomeDeadLettered, outcome)
	assert.Zero(t, calls.Load())

	records := f.dlq.records()
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].dl.RetryCount)
	assert.Empty(t, records[0].dl.EventID)
	assert.Contains(t, records[0].dl.ErrorReason, "event_id")
}

func TestShell_ContextCancelledNoDeadLetter(t *testing.T) {
	f := newShellFixture(Backoff(time.Hour, 2))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := func(context.Context, *event.Envelope) error {
		cancel()

		return errors.New("broker unavailable")
	}

	_, err := f.shell.Handle(ctx, orderCreatedMessage(t), h)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.dlq.records())
	assert.Zero(t, f.processed.count())
}

func TestShell_DeadLetterSendFailure(t *testing.T) {
	f := newShellFixture()
	f.dlq.failErr = errors.New("dlq down")

	var calls atomic.Int32
	outcome, err := f.shell.Handle(context.Background(), orderCreatedMessage(t), countingHandler(&calls, errs.Validation("bad")))

	assert.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, OutcomeDeadLettered, outcome)
}

func TestShell_BackoffSchedule(t *testing.T) {
	s := NewShell(nil, nil, nil, telemetry.NewMetrics(), logger.Discard())

	b := s.newBackOff()

	// the first attempt runs immediately, the waits follow
	assert.Equal(t, time.Second, b.NextBackOff())
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, 3, s.maxAttempts)
}

func TestShell_DeadLetterEnvelopeShape(t *testing.T) {
	f := newShellFixture()

	_, err := f.shell.Handle(context.Background(), orderCreatedMessage(t), countingHandler(new(atomic.Int32), errs.Validation("bad")))
	require.NoError(t, err)

	raw, err := f.dlq.records()[0].dl.Encode()
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))

	for _, name := range []string{"original_topic", "event_id", "error_reason", "retry_count", "timestamp", "payload"} {
		assert.Contains(t, fields, name)
	}
	assert.Len(t, fields, 6)
}
