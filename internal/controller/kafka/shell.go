package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/andreyxaxa/order-saga/internal/event"
	"github.com/andreyxaxa/order-saga/internal/infrastructure"
	"github.com/andreyxaxa/order-saga/internal/repo"
	"github.com/andreyxaxa/order-saga/pkg/logger"
	"github.com/andreyxaxa/order-saga/pkg/telemetry"
	"github.com/andreyxaxa/order-saga/pkg/types/errs"
	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	_defaultMaxAttempts    = 3
	_defaultInitialBackoff = time.Second
	_defaultMultiplier     = 2
)

// Handler applies one event to business state. Errors wrapping
// errs.ErrValidation or errs.ErrRecordNotFound are permanent; every other
// error is retried.
type Handler func(ctx context.Context, env *event.Envelope) error

var errHandlerPanic = errors.New("handler panicked")

type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeDuplicate
	OutcomeDeadLettered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeDeadLettered:
		return "dead_lettered"
	}

	return "unknown"
}

// Shell wraps handlers with deduplication, bounded retry and dead-letter
// escalation.
type Shell struct {
	tx        repo.Transactor
	processed repo.ProcessedEventRepo
	dlq       infrastructure.DeadLetterSender
	metrics   *telemetry.Metrics
	tracer    trace.Tracer
	logger    logger.Interface

	maxAttempts    int
	initialBackoff time.Duration
	multiplier     float64

	now func() time.Time
}

type ShellOption func(*Shell)

func MaxAttempts(n int) ShellOption {
	return func(s *Shell) {
		s.maxAttempts = n
	}
}

func Backoff(initial time.Duration, multiplier float64) ShellOption {
	return func(s *Shell) {
		s.initialBackoff = initial
		s.multiplier = multiplier
	}
}

func NewShell(
	tx repo.Transactor,
	processed repo.ProcessedEventRepo,
	dlq infrastructure.DeadLetterSender,
	metrics *telemetry.Metrics,
	l logger.Interface,
	opts ...ShellOption,
) *Shell {
	s := &Shell{
		tx:             tx,
		processed:      processed,
		dlq:            dlq,
		metrics:        metrics,
		tracer:         otel.Tracer("github.com/andreyxaxa/order-saga/internal/controller/kafka"),
		logger:         l,
		maxAttempts:    _defaultMaxAttempts,
		initialBackoff: _defaultInitialBackoff,
		multiplier:     _defaultMultiplier,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// newBackOff waits initial, initial*multiplier, ... between attempts, with
// no jitter.
func (s *Shell) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.initialBackoff
	b.RandomizationFactor = 0
	b.Multiplier = s.multiplier
	b.Reset()

	return b
}

// Handle processes msg with h. A nil error means msg is done with and its
// offset may be committed. An error means it must be delivered again: ctx
// ended or the dead-letter topic could not be written.
func (s *Shell) Handle(ctx context.Context, msg kafka.Message, h Handler) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "consume "+msg.Topic, trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	env, err := event.Parse(msg.Value)
	if err != nil {
		s.logger.Warn("Shell - Handle - topic %s offset %d: unparseable message: %v", msg.Topic, msg.Offset, err)

		return s.deadLetter(ctx, span, msg, "", err, 1)
	}

	span.SetAttributes(
		attribute.String("event.id", env.EventID),
		attribute.String("event.type", env.EventType),
		attribute.String("event.correlation_id", env.CorrelationID),
	)

	l := s.logger.With(map[string]interface{}{
		"event_id":       env.EventID,
		"event_type":     env.EventType,
		"correlation_id": env.CorrelationID,
		"topic":          msg.Topic,
	})

	done, err := s.processed.IsProcessed(ctx, env.EventID)
	if err == nil && done {
		s.duplicate(ctx, l, msg.Topic)

		return OutcomeDuplicate, nil
	}

	attempts := 0
	operation := func() (Outcome, error) {
		attempts++

		var outcome Outcome

		err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			// the insert claims the id; a concurrent redelivery waits on it
			claimed, err := s.processed.MarkProcessed(ctx, &entity.ProcessedEvent{
				EventID:     env.EventID,
				EventType:   env.EventType,
				ProcessedAt: s.now().UTC(),
			})
			if err != nil {
				return err
			}
			if !claimed {
				outcome = OutcomeDuplicate

				return nil
			}

			return callHandler(ctx, h, env)
		})
		if err != nil {
			if errs.IsPermanent(err) || errors.Is(err, errHandlerPanic) {
				return outcome, backoff.Permanent(err)
			}

			return outcome, err
		}

		return outcome, nil
	}

	outcome, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxTries(uint(s.maxAttempts)), //nolint:gosec // positive by config
		backoff.WithNotify(func(err error, next time.Duration) {
			l.Warn("Shell - Handle - attempt %d failed, retrying in %s: %v", attempts, next, err)
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return outcome, fmt.Errorf("Shell - Handle - %s: %w", env.EventID, ctx.Err())
		}

		l.Error(err, "Shell - Handle - handler failed after %d attempt(s)", attempts)

		return s.deadLetter(ctx, span, msg, env.EventID, err, attempts)
	}

	if outcome == OutcomeDuplicate {
		s.duplicate(ctx, l, msg.Topic)
	}

	return outcome, nil
}

// callHandler turns a panic into an error so the transaction rolls back.
func callHandler(ctx context.Context, h Handler, env *event.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errHandlerPanic, r)
		}
	}()

	return h(ctx, env)
}

func (s *Shell) duplicate(ctx context.Context, l logger.Interface, topic string) {
	s.metrics.Duplicate(ctx, topic)
	l.Debug("Shell - Handle - already processed, skipping")
}

func (s *Shell) deadLetter(
	ctx context.Context,
	span trace.Span,
	msg kafka.Message,
	eventID string,
	cause error,
	attempts int,
) (Outcome, error) {
	span.RecordError(cause)
	span.SetStatus(codes.Error, "dead-lettered")

	dl := entity.NewDeadLetter(msg.Topic, eventID, cause, attempts, msg.Value, s.now())

	err := s.dlq.SendDeadLetter(ctx, msg.Key, dl)
	if err != nil {
		return OutcomeDeadLettered, fmt.Errorf("Shell - deadLetter - s.dlq.SendDeadLetter: %w", errors.Join(err, cause))
	}

	s.metrics.DeadLettered(ctx, msg.Topic)

	return OutcomeDeadLettered, nil
}
