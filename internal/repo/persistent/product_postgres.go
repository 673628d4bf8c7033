package persistent

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/andreyxaxa/order-saga/pkg/postgres"
	"github.com/andreyxaxa/order-saga/pkg/types/errs"
	"github.com/jackc/pgx/v5"
)

const (
	// Table
	productsTable = "products"

	// Columns
	productIDColumn          = "product_id"
	productNameColumn        = "name"
	productDescriptionColumn = "description"
	productPriceColumn       = "price"
	productStockColumn       = "stock"
	productVersionColumn     = "version"
	productCreatedAtColumn   = "created_at"
	productUpdatedAtColumn   = "updated_at"
)

var _productColumns = []string{
	productIDColumn,
	productNameColumn,
	productDescriptionColumn,
	productPriceColumn,
	productStockColumn,
	productVersionColumn,
	productCreatedAtColumn,
	productUpdatedAtColumn,
}

type ProductRepo struct {
	*postgres.Postgres
}

func NewProductRepo(pg *postgres.Postgres) *ProductRepo {
	return &ProductRepo{pg}
}

func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	sql, args, err := r.Builder.
		Insert(productsTable).
		Columns(_productColumns...).
		Values(
			product.ProductID,
			product.Name,
			product.Description,
			product.Price,
			product.Stock,
			product.Version,
			product.CreatedAt,
			product.UpdatedAt,
		).
		Suffix("ON CONFLICT (" + productIDColumn + ") DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("ProductRepo - Create - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("ProductRepo - Create - executor.Exec: %w", err)
	}

	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, productID string) (*entity.Product, error) {
	sql, args, err := r.Builder.
		Select(_productColumns...).
		From(productsTable).
		Where(squirrel.Eq{productIDColumn: productID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ProductRepo - GetByID - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	product, err := scanProduct(executor.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ProductRepo - GetByID - %s: %w", productID, errs.ErrRecordNotFound)
		}

		return nil, fmt.Errorf("ProductRepo - GetByID - scanProduct: %w", err)
	}

	return product, nil
}

func (r *ProductRepo) List(ctx context.Context) ([]*entity.Product, error) {
	sql, args, err := r.Builder.
		Select(_productColumns...).
		From(productsTable).
		OrderBy(productIDColumn + " ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ProductRepo - List - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("ProductRepo - List - executor.Query: %w", err)
	}
	defer rows.Close()

	products := make([]*entity.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("ProductRepo - List - scanProduct: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ProductRepo - List - rows.Err: %w", err)
	}

	return products, nil
}

func (r *ProductRepo) Count(ctx context.Context) (int64, error) {
	sql, args, err := r.Builder.
		Select("COUNT(*)").
		From(productsTable).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ProductRepo - Count - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var n int64

	err = executor.QueryRow(ctx, sql, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("ProductRepo - Count - executor.QueryRow: %w", err)
	}

	return n, nil
}

// AdjustStock is the compare-and-swap on version. The stock guard makes a
// stale read unable to drive stock below zero.
func (r *ProductRepo) AdjustStock(ctx context.Context, productID string, delta int, expectedVersion int64) (bool, error) {
	sql, args, err := r.Builder.
		Update(productsTable).
		Set(productStockColumn, squirrel.Expr(productStockColumn+" + ?", delta)).
		Set(productVersionColumn, squirrel.Expr(productVersionColumn+" + 1")).
		Set(productUpdatedAtColumn, squirrel.Expr("now()")).
		Where(squirrel.And{
			squirrel.Eq{productIDColumn: productID},
			squirrel.Eq{productVersionColumn: expectedVersion},
			squirrel.Expr(productStockColumn+" + ? >= 0", delta),
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("ProductRepo - AdjustStock - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("ProductRepo - AdjustStock - executor.Exec: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var product entity.Product

	err := row.Scan(
		&product.ProductID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.Version,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &product, nil
}
