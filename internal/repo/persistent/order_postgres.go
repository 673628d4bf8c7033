package persistent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/andreyxaxa/order-saga/pkg/postgres"
	"github.com/andreyxaxa/order-saga/pkg/types/errs"
	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
)

const (
	// Table
	ordersTable = "orders"

	// Columns
	orderIDColumn                 = "order_id"
	orderUserIDColumn             = "user_id"
	orderStatusColumn             = "status"
	orderCancellationSourceColumn = "cancellation_source"
	orderItemsColumn              = "items"
	orderTotalAmountColumn        = "total_amount"
	orderCorrelationIDColumn      = "correlation_id"
	orderCreatedAtColumn          = "created_at"
	orderUpdatedAtColumn          = "updated_at"
)

var _orderColumns = []string{
	orderIDColumn,
	orderUserIDColumn,
	orderStatusColumn,
	orderCancellationSourceColumn,
	orderItemsColumn,
	orderTotalAmountColumn,
	orderCorrelationIDColumn,
	orderCreatedAtColumn,
	orderUpdatedAtColumn,
}

type OrderRepo struct {
	*postgres.Postgres
}

func NewOrderRepo(pg *postgres.Postgres) *OrderRepo {
	return &OrderRepo{pg}
}

func (r *OrderRepo) Create(ctx context.Context, order *entity.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("OrderRepo - Create - json.Marshal: %w", err)
	}

	sql, args, err := r.Builder.
		Insert(ordersTable).
		Columns(_orderColumns...).
		Values(
			order.OrderID,
			order.UserID,
			order.Status,
			order.CancellationSource,
			items,
			order.TotalAmount,
			order.CorrelationID,
			order.CreatedAt,
			order.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("OrderRepo - Create - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("OrderRepo - Create - executor.Exec: %w", err)
	}

	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, orderID string) (*entity.Order, error) {
	sql, args, err := r.Builder.
		Select(_orderColumns...).
		From(ordersTable).
		Where(squirrel.Eq{orderIDColumn: orderID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("OrderRepo - GetByID - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	order, err := scanOrder(executor.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("OrderRepo - GetByID - %s: %w", orderID, errs.ErrRecordNotFound)
		}

		return nil, fmt.Errorf("OrderRepo - GetByID - scanOrder: %w", err)
	}

	return order, nil
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]*entity.Order, error) {
	sql, args, err := r.Builder.
		Select(_orderColumns...).
		From(ordersTable).
		Where(squirrel.Eq{orderUserIDColumn: userID}).
		OrderBy(orderCreatedAtColumn + " DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("OrderRepo - ListByUser - r.Builder.ToSql: %w", err)
	}

	return r.query(ctx, "ListByUser", sql, args)
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, order *entity.Order, from entity.Status) (bool, error) {
	sql, args, err := r.Builder.
		Update(ordersTable).
		Set(orderStatusColumn, order.Status).
		Set(orderCancellationSourceColumn, order.CancellationSource).
		Set(orderUpdatedAtColumn, order.UpdatedAt).
		Where(squirrel.And{
			squirrel.Eq{orderIDColumn: order.OrderID},
			squirrel.Eq{orderStatusColumn: from},
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("OrderRepo - UpdateStatus - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("OrderRepo - UpdateStatus - executor.Exec: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *OrderRepo) ListPaidBefore(ctx context.Context, before time.Time, limit int) ([]*entity.Order, error) {
	sql, args, err := r.Builder.
		Select(_orderColumns...).
		From(ordersTable).
		Where(squirrel.And{
			squirrel.Eq{orderStatusColumn: entity.StatusPaid},
			squirrel.Lt{orderUpdatedAtColumn: before},
		}).
		OrderBy(orderUpdatedAtColumn + " ASC").
		Limit(uint64(limit)). //nolint:gosec // limit comes from config
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("OrderRepo - ListPaidBefore - r.Builder.ToSql: %w", err)
	}

	return r.query(ctx, "ListPaidBefore", sql, args)
}

func (r *OrderRepo) query(ctx context.Context, method, sql string, args []any) ([]*entity.Order, error) {
	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("OrderRepo - %s - executor.Query: %w", method, err)
	}
	defer rows.Close()

	orders := make([]*entity.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("OrderRepo - %s - scanOrder: %w", method, err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("OrderRepo - %s - rows.Err: %w", method, err)
	}

	return orders, nil
}

func scanOrder(row pgx.Row) (*entity.Order, error) {
	var (
		order entity.Order
		items []byte
	)

	err := row.Scan(
		&order.OrderID,
		&order.UserID,
		&order.Status,
		&order.CancellationSource,
		&items,
		&order.TotalAmount,
		&order.CorrelationID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(items, &order.Items)
	if err != nil {
		return nil, fmt.Errorf("json.Unmarshal items: %w", err)
	}

	return &order, nil
}
