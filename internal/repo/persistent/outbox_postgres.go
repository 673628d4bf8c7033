package persistent

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/andreyxaxa/order-saga/pkg/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	// Table
	outboxTable = "outbox_events"

	// Columns
	outboxIDColumn          = "id"
	outboxAggregateIDColumn = "order_id"
	outboxEventTypeColumn   = "event_type"
	outboxEventIDColumn     = "event_id"
	outboxPayloadColumn     = "event_data"
	outboxPublishedColumn   = "published"
	outboxCreatedAtColumn   = "created_at"
	outboxPublishedAtColumn = "published_at"

	// pg_try_advisory_xact_lock key held by the publishing relay
	_relayLockKey int64 = 0x6f7574626f78
)

var _outboxColumns = []string{
	outboxIDColumn,
	outboxAggregateIDColumn,
	outboxEventTypeColumn,
	outboxEventIDColumn,
	outboxPayloadColumn,
	outboxPublishedColumn,
	outboxCreatedAtColumn,
	outboxPublishedAtColumn,
}

type OutboxRepo struct {
	*postgres.Postgres
}

func NewOutboxRepo(pg *postgres.Postgres) *OutboxRepo {
	return &OutboxRepo{pg}
}

func (r *OutboxRepo) Create(ctx context.Context, event *entity.OutboxEvent) error {
	sql, args, err := r.Builder.
		Insert(outboxTable).
		Columns(_outboxColumns...).
		Values(
			event.ID,
			event.AggregateID,
			event.EventType,
			event.EventID,
			event.Payload,
			event.Published,
			event.CreatedAt,
			event.PublishedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("OutboxRepo - Create - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("OutboxRepo - Create - executor.Exec: %w", err)
	}

	return nil
}

// GetUnpublished returns the oldest unpublished records in creation order.
func (r *OutboxRepo) GetUnpublished(ctx context.Context, limit int) ([]*entity.OutboxEvent, error) {
	sql, args, err := r.Builder.
		Select(_outboxColumns...).
		From(outboxTable).
		Where(squirrel.Eq{outboxPublishedColumn: false}).
		OrderBy(outboxCreatedAtColumn+" ASC", outboxIDColumn+" ASC").
		Limit(uint64(limit)). //nolint:gosec // limit comes from config
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("OutboxRepo - GetUnpublished - r.Builder.ToSql: %w", err)
	}

	return r.query(ctx, "GetUnpublished", limit, sql, args)
}

// TryLockRelay takes the relay lock for the current transaction.
func (r *OutboxRepo) TryLockRelay(ctx context.Context) (bool, error) {
	locked, err := r.TryAdvisoryXactLock(ctx, _relayLockKey)
	if err != nil {
		return false, fmt.Errorf("OutboxRepo - TryLockRelay: %w", err)
	}

	return locked, nil
}

func (r *OutboxRepo) MarkPublished(ctx context.Context, ids uuid.UUIDs, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	sql, args, err := r.Builder.
		Update(outboxTable).
		Set(outboxPublishedColumn, true).
		Set(outboxPublishedAtColumn, at).
		Where(squirrel.Eq{outboxIDColumn: []uuid.UUID(ids)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("OutboxRepo - MarkPublished - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("OutboxRepo - MarkPublished - executor.Exec: %w", err)
	}

	return nil
}

func (r *OutboxRepo) ListPublishedBefore(ctx context.Context, before time.Time, limit int) ([]*entity.OutboxEvent, error) {
	sql, args, err := r.Builder.
		Select(_outboxColumns...).
		From(outboxTable).
		Where(squirrel.And{
			squirrel.Eq{outboxPublishedColumn: true},
			squirrel.Lt{outboxPublishedAtColumn: before},
		}).
		OrderBy(outboxCreatedAtColumn+" ASC", outboxIDColumn+" ASC").
		Limit(uint64(limit)). //nolint:gosec // limit comes from config
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("OutboxRepo - ListPublishedBefore - r.Builder.ToSql: %w", err)
	}

	return r.query(ctx, "ListPublishedBefore", limit, sql, args)
}

// DeleteByIDs removes published records only.
func (r *OutboxRepo) DeleteByIDs(ctx context.Context, ids uuid.UUIDs) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	sql, args, err := r.Builder.
		Delete(outboxTable).
		Where(squirrel.And{
			squirrel.Eq{outboxIDColumn: []uuid.UUID(ids)},
			squirrel.Eq{outboxPublishedColumn: true},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("OutboxRepo - DeleteByIDs - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("OutboxRepo - DeleteByIDs - executor.Exec: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *OutboxRepo) query(ctx context.Context, method string, limit int, sql string, args []any) ([]*entity.OutboxEvent, error) {
	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("OutboxRepo - %s - executor.Query: %w", method, err)
	}
	defer rows.Close()

	events := make([]*entity.OutboxEvent, 0, limit)
	for rows.Next() {
		event, err := scanOutboxEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("OutboxRepo - %s - rows.Scan: %w", method, err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("OutboxRepo - %s - rows.Err: %w", method, err)
	}

	return events, nil
}

func scanOutboxEvent(row pgx.Row) (*entity.OutboxEvent, error) {
	var event entity.OutboxEvent

	err := row.Scan(
		&event.ID,
		&event.AggregateID,
		&event.EventType,
		&event.EventID,
		&event.Payload,
		&event.Published,
		&event.CreatedAt,
		&event.PublishedAt,
	)
	if err != nil {
		return nil, err
	}

	return &event, nil
}
