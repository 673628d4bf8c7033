package repo

import (
	"context"
	"time"

	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/google/uuid"
)

type (
	// Transactor runs f in one store transaction carried by ctx. Nested
	// calls run in a savepoint of the outer transaction.
	Transactor interface {
		WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error
	}

	OrderRepo interface {
		Create(ctx context.Context, order *entity.Order) error
		GetByID(ctx context.Context, orderID string) (*entity.Order, error)
		ListByUser(ctx context.Context, userID string) ([]*entity.Order, error)
		// UpdateStatus applies the change only when the stored status is
		// still order's previous status. It reports whether a row changed.
		UpdateStatus(ctx context.Context, order *entity.Order, from entity.Status) (bool, error)
		ListPaidBefore(ctx context.Context, before time.Time, limit int) ([]*entity.Order, error)
	}

	OutboxRepo interface {
		Create(ctx context.Context, event *entity.OutboxEvent) error
		GetUnpublished(ctx context.Context, limit int) ([]*entity.OutboxEvent, error)
		TryLockRelay(ctx context.Context) (bool, error)
		MarkPublished(ctx context.Context, ids uuid.UUIDs, at time.Time) error
		ListPublishedBefore(ctx context.Context, before time.Time, limit int) ([]*entity.OutboxEvent, error)
		DeleteByIDs(ctx context.Context, ids uuid.UUIDs) (int64, error)
	}

	ProcessedEventRepo interface {
		IsProcessed(ctx context.Context, eventID string) (bool, error)
		// MarkProcessed records the id and reports false when it was
		// already recorded.
		MarkProcessed(ctx context.Context, event *entity.ProcessedEvent) (bool, error)
	}

	ProductRepo interface {
		Create(ctx context.Context, product *entity.Product) error
		GetByID(ctx context.Context, productID string) (*entity.Product, error)
		List(ctx context.Context) ([]*entity.Product, error)
		Count(ctx context.Context) (int64, error)
		// AdjustStock adds delta to stock when the stored version equals
		// expectedVersion and the result stays non-negative, bumping the
		// version. It reports whether the row changed.
		AdjustStock(ctx context.Context, productID string, delta int, expectedVersion int64) (bool, error)
	}

	ReservationRepo interface {
		Create(ctx context.Context, reservation *entity.StockReservation) error
		Exists(ctx context.Context, orderID, productID string) (bool, error)
		ListByOrder(ctx context.Context, orderID string) ([]*entity.StockReservation, error)
		// Delete reports whether the row existed.
		Delete(ctx context.Context, orderID, productID string) (bool, error)
	}

	OutboxArchive interface {
		Archive(ctx context.Context, key string, events []*entity.OutboxEvent) error
	}
)
