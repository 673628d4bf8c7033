package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/andreyxaxa/order-saga/internal/infrastructure"
	"github.com/andreyxaxa/order-saga/internal/repo"
	"github.com/andreyxaxa/order-saga/pkg/logger"
	"github.com/andreyxaxa/order-saga/pkg/telemetry"
	"github.com/google/uuid"
)

// UseCase moves outbox records to the bus and prunes published ones.
type UseCase struct {
	repo       repo.OutboxRepo
	archive    repo.OutboxArchive
	sender     infrastructure.EventsSender
	transactor repo.Transactor
	metrics    *telemetry.Metrics

	logger logger.Interface

	batchSize int
	retention time.Duration
	now       func() time.Time
}

// New -. archive may be nil: published records are then deleted without a
// copy.
func New(
	r repo.OutboxRepo,
	archive repo.OutboxArchive,
	sender infrastructure.EventsSender,
	transactor repo.Transactor,
	metrics *telemetry.Metrics,
	l logger.Interface,
	batchSize int,
	retention time.Duration,
) *UseCase {
	return &UseCase{
		repo:       r,
		archive:    archive,
		sender:     sender,
		transactor: transactor,
		metrics:    metrics,
		logger:     l,
		batchSize:  batchSize,
		retention:  retention,
		now:        time.Now,
	}
}

// PublishPending sends one batch of unpublished records and returns how
// many were marked published. It holds the relay lock for the whole batch,
// so concurrent relays never interleave the records of one order.
func (uc *UseCase) PublishPending(ctx context.Context) (int, error) {
	var published int

	err := uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		// 1. only one relay at a time
		locked, err := uc.repo.TryLockRelay(ctx)
		if err != nil {
			return fmt.Errorf("OutboxUseCase - PublishPending - uc.repo.TryLockRelay: %w", err)
		}
		if !locked {
			return nil
		}

		// 2. oldest first
		events, err := uc.repo.GetUnpublished(ctx, uc.batchSize)
		if err != nil {
			return fmt.Errorf("OutboxUseCase - PublishPending - uc.repo.GetUnpublished: %w", err)
		}
		if len(events) == 0 {
			return nil
		}

		// 3. send, keeping what the broker acknowledged
		sendErr := uc.sender.SendEvents(ctx, events)
		acked, err := acknowledged(events, sendErr)
		if err != nil {
			return fmt.Errorf("OutboxUseCase - PublishPending - uc.sender.SendEvents: %w", err)
		}
		if sendErr != nil {
			uc.logger.Warn("OutboxUseCase - PublishPending - %d of %d events acknowledged: %v",
				len(acked), len(events), sendErr)
		}

		// 4. mark the acknowledged prefix of every order
		err = uc.repo.MarkPublished(ctx, acked, uc.now().UTC())
		if err != nil {
			return fmt.Errorf("OutboxUseCase - PublishPending - uc.repo.MarkPublished: %w", err)
		}

		published = len(acked)

		return nil
	})
	if err != nil {
		return 0, err
	}

	if published > 0 {
		uc.metrics.Published(ctx, published)
	}

	return published, nil
}

// acknowledged returns the ids safe to mark published: a record counts only
// when it and every earlier record of its aggregate in the batch were
// acknowledged. A send error that is not per-message fails the batch.
func acknowledged(events []*entity.OutboxEvent, sendErr error) (uuid.UUIDs, error) {
	if sendErr == nil {
		ids := make(uuid.UUIDs, 0, len(events))
		for _, e := range events {
			ids = append(ids, e.ID)
		}

		return ids, nil
	}

	var perMessage infrastructure.SendErrors
	if !errors.As(sendErr, &perMessage) || len(perMessage) != len(events) {
		return nil, sendErr
	}

	blocked := make(map[string]bool)
	ids := make(uuid.UUIDs, 0, len(events))

	for i, e := range events {
		if perMessage[i] != nil {
			blocked[e.AggregateID] = true
		}
		if blocked[e.AggregateID] {
			continue
		}
		ids = append(ids, e.ID)
	}

	return ids, nil
}

// Cleanup archives then deletes published records older than the retention
// window. It returns the number of deleted records.
func (uc *UseCase) Cleanup(ctx context.Context) (int64, error) {
	before := uc.now().UTC().Add(-uc.retention)

	var total int64

	for {
		events, err := uc.repo.ListPublishedBefore(ctx, before, uc.batchSize)
		if err != nil {
			return total, fmt.Errorf("OutboxUseCase - Cleanup - uc.repo.ListPublishedBefore: %w", err)
		}
		if len(events) == 0 {
			return total, nil
		}

		if uc.archive != nil {
			key := archiveKey(events[0].CreatedAt, events[0].ID)

			err = uc.archive.Archive(ctx, key, events)
			if err != nil {
				return total, fmt.Errorf("OutboxUseCase - Cleanup - uc.archive.Archive: %w", err)
			}
		}

		ids := make(uuid.UUIDs, 0, len(events))
		for _, e := range events {
			ids = append(ids, e.ID)
		}

		deleted, err := uc.repo.DeleteByIDs(ctx, ids)
		if err != nil {
			return total, fmt.Errorf("OutboxUseCase - Cleanup - uc.repo.DeleteByIDs: %w", err)
		}
		total += deleted

		if deleted == 0 || len(events) < uc.batchSize {
			return total, nil
		}
	}
}

func archiveKey(first time.Time, id uuid.UUID) string {
	return fmt.Sprintf("%s/%s.jsonl", first.UTC().Format("2006/01/02"), id)
}
