package persistent

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/andreyxaxa/order-saga/pkg/postgres"
)

const (
	// Table
	processedEventsTable = "processed_events"

	// Columns
	processedEventConsumerColumn    = "consumer"
	processedEventIDColumn          = "event_id"
	processedEventTypeColumn        = "event_type"
	processedEventProcessedAtColumn = "processed_at"
)

// ProcessedEventRepo keeps the dedupe ledger of one consumer group, so
// services sharing a database do not see each other's claims.
type ProcessedEventRepo struct {
	*postgres.Postgres
	consumer string
}

func NewProcessedEventRepo(pg *postgres.Postgres, consumer string) *ProcessedEventRepo {
	return &ProcessedEventRepo{pg, consumer}
}

func (r *ProcessedEventRepo) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	sql, args, err := r.isProcessedQuery(eventID)
	if err != nil {
		return false, fmt.Errorf("ProcessedEventRepo - IsProcessed - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var exists bool

	err = executor.QueryRow(ctx, sql, args...).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ProcessedEventRepo - IsProcessed - executor.QueryRow: %w", err)
	}

	return exists, nil
}

// MarkProcessed reports false for an id already recorded.
func (r *ProcessedEventRepo) MarkProcessed(ctx context.Context, event *entity.ProcessedEvent) (bool, error) {
	sql, args, err := r.markProcessedQuery(event)
	if err != nil {
		return false, fmt.Errorf("ProcessedEventRepo - MarkProcessed - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("ProcessedEventRepo - MarkProcessed - executor.Exec: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *ProcessedEventRepo) isProcessedQuery(eventID string) (string, []interface{}, error) {
	return r.Builder.
		Select("1").
		Prefix("SELECT EXISTS (").
		From(processedEventsTable).
		Where(squirrel.Eq{
			processedEventConsumerColumn: r.consumer,
			processedEventIDColumn:       eventID,
		}).
		Suffix(")").
		ToSql()
}

func (r *ProcessedEventRepo) markProcessedQuery(event *entity.ProcessedEvent) (string, []interface{}, error) {
	return r.Builder.
		Insert(processedEventsTable).
		Columns(
			processedEventConsumerColumn,
			processedEventIDColumn,
			processedEventTypeColumn,
			processedEventProcessedAtColumn,
		).
		Values(
			r.consumer,
			event.EventID,
			event.EventType,
			event.ProcessedAt,
		).
		Suffix("ON CONFLICT (" + processedEventConsumerColumn + ", " + processedEventIDColumn + ") DO NOTHING").
		ToSql()
}
