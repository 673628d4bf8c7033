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
	reservationsTable = "stock_reservations"

	// Columns
	reservationOrderIDColumn   = "order_id"
	reservationProductIDColumn = "product_id"
	reservationQuantityColumn  = "quantity"
	reservationCreatedAtColumn = "created_at"
)

type ReservationRepo struct {
	*postgres.Postgres
}

func NewReservationRepo(pg *postgres.Postgres) *ReservationRepo {
	return &ReservationRepo{pg}
}

func (r *ReservationRepo) Create(ctx context.Context, reservation *entity.StockReservation) error {
	sql, args, err := r.Builder.
		Insert(reservationsTable).
		Columns(
			reservationOrderIDColumn,
			reservationProductIDColumn,
			reservationQuantityColumn,
			reservationCreatedAtColumn,
		).
		Values(
			reservation.OrderID,
			reservation.ProductID,
			reservation.Quantity,
			reservation.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("ReservationRepo - Create - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("ReservationRepo - Create - executor.Exec: %w", err)
	}

	return nil
}

func (r *ReservationRepo) Exists(ctx context.Context, orderID, productID string) (bool, error) {
	sql, args, err := r.Builder.
		Select("1").
		Prefix("SELECT EXISTS (").
		From(reservationsTable).
		Where(squirrel.Eq{
			reservationOrderIDColumn:   orderID,
			reservationProductIDColumn: productID,
		}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("ReservationRepo - Exists - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var exists bool

	err = executor.QueryRow(ctx, sql, args...).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ReservationRepo - Exists - executor.QueryRow: %w", err)
	}

	return exists, nil
}

func (r *ReservationRepo) ListByOrder(ctx context.Context, orderID string) ([]*entity.StockReservation, error) {
	sql, args, err := r.Builder.
		Select(
			reservationOrderIDColumn,
			reservationProductIDColumn,
			reservationQuantityColumn,
			reservationCreatedAtColumn,
		).
		From(reservationsTable).
		Where(squirrel.Eq{reservationOrderIDColumn: orderID}).
		OrderBy(reservationProductIDColumn + " ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ReservationRepo - ListByOrder - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepo - ListByOrder - executor.Query: %w", err)
	}
	defer rows.Close()

	reservations := make([]*entity.StockReservation, 0)
	for rows.Next() {
		var reservation entity.StockReservation
		err = rows.Scan(
			&reservation.OrderID,
			&reservation.ProductID,
			&reservation.Quantity,
			&reservation.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ReservationRepo - ListByOrder - rows.Scan: %w", err)
		}
		reservations = append(reservations, &reservation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ReservationRepo - ListByOrder - rows.Err: %w", err)
	}

	return reservations, nil
}

func (r *ReservationRepo) Delete(ctx context.Context, orderID, productID string) (bool, error) {
	sql, args, err := r.Builder.
		Delete(reservationsTable).
		Where(squirrel.Eq{
			reservationOrderIDColumn:   orderID,
			reservationProductIDColumn: productID,
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("ReservationRepo - Delete - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("ReservationRepo - Delete - executor.Exec: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
