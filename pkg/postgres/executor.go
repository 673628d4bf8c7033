package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type txKey struct{}

type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (p *Postgres) GetExecutor(ctx context.Context) Executor {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return p.Pool
}

// 1) Begin Tx (a savepoint when ctx already carries one);
// 2) Updates ctx -> context.WithValue(Tx) && func call;
// 3) err = Tx.Rollback, ok = Tx.Commit.
func (p *Postgres) WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error {
	var (
		tx  pgx.Tx
		err error
	)

	if outer, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		tx, err = outer.Begin(ctx)
	} else {
		tx, err = p.Pool.Begin(ctx)
	}
	if err != nil {
		return fmt.Errorf("Postgres - WithinTransaction - Begin: %w", err)
	}

	err = f(context.WithValue(ctx, txKey{}, tx))
	if err != nil {
		_ = tx.Rollback(ctx)

		return fmt.Errorf("Postgres - WithinTransaction: %w", err)
	}

	err = tx.Commit(ctx)
	if err != nil {
		return fmt.Errorf("Postgres - WithinTransaction - tx.Commit: %w", err)
	}

	return nil
}

// TryAdvisoryXactLock takes a transaction-scoped advisory lock without
// waiting. It must run inside WithinTransaction.
func (p *Postgres) TryAdvisoryXactLock(ctx context.Context, key int64) (bool, error) {
	var locked bool

	err := p.GetExecutor(ctx).QueryRow(ctx, "SELECT pg_try_advisory_xact_lock($1)", key).Scan(&locked)
	if err != nil {
		return false, fmt.Errorf("Postgres - TryAdvisoryXactLock - QueryRow: %w", err)
	}

	return locked, nil
}
