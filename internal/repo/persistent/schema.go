package persistent

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/andreyxaxa/order-saga/pkg/postgres"
)

//go:embed schema.sql
var _schema string

// ApplySchema creates the tables that do not exist yet.
func ApplySchema(ctx context.Context, pg *postgres.Postgres) error {
	_, err := pg.Pool.Exec(ctx, _schema)
	if err != nil {
		return fmt.Errorf("persistent - ApplySchema - pg.Pool.Exec: %w", err)
	}

	return nil
}
