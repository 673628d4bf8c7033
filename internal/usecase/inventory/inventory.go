package inventory

import (
	"context"
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/andreyxaxa/order-saga/internal/event"
	"github.com/andreyxaxa/order-saga/internal/repo"
	"github.com/andreyxaxa/order-saga/internal/usecase/outbox"
	"github.com/andreyxaxa/order-saga/pkg/logger"
	"github.com/andreyxaxa/order-saga/pkg/telemetry"
	"github.com/andreyxaxa/order-saga/pkg/types/errs"
)

const (
	_defaultMaxAttempts       = 3
	_defaultLowStockThreshold = 10
)

// errInsufficientStock is internal: depletion is an outcome, not a failure.
var errInsufficientStock = errors.New("insufficient stock")

type UseCase struct {
	products     repo.ProductRepo
	reservations repo.ReservationRepo
	emitter      *outbox.Emitter
	transactor   repo.Transactor
	metrics      *telemetry.Metrics

	logger logger.Interface

	maxAttempts       int
	lowStockThreshold int
	now               func() time.Time
}

type Option func(*UseCase)

// MaxAttempts bounds the compare-and-swap attempts per stock change.
func MaxAttempts(n int) Option {
	return func(uc *UseCase) {
		uc.maxAttempts = n
	}
}

func LowStockThreshold(n int) Option {
	return func(uc *UseCase) {
		uc.lowStockThreshold = n
	}
}

func New(
	products repo.ProductRepo,
	reservations repo.ReservationRepo,
	emitter *outbox.Emitter,
	transactor repo.Transactor,
	metrics *telemetry.Metrics,
	l logger.Interface,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		products:          products,
		reservations:      reservations,
		emitter:           emitter,
		transactor:        transactor,
		metrics:           metrics,
		logger:            l,
		maxAttempts:       _defaultMaxAttempts,
		lowStockThreshold: _defaultLowStockThreshold,
		now:               time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Reserve takes stock for every item of a new order, all or nothing. On
// success it emits inventory.reserved and inventory.low for products left
// under the threshold; when an item cannot be covered it gives back what it
// took and emits inventory.depleted. A compare-and-swap budget exhausted on
// any item is returned as errs.ErrVersionConflict.
func (uc *UseCase) Reserve(ctx context.Context, correlationID string, order *event.OrderCreatedPayload) error {
	items := mergeItems(order.Items)

	err := uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		taken := make([]event.ReservedItem, 0, len(items))
		reserved := make([]event.ReservedItem, 0, len(items))
		lows := make([]event.InventoryLowPayload, 0)

		for _, item := range items {
			// 1. a row already there is a reservation made by an earlier delivery
			exists, err := uc.reservations.Exists(ctx, order.OrderID, item.ProductID)
			if err != nil {
				return uc.undo(ctx, order.OrderID, taken,
					fmt.Errorf("InventoryUseCase - Reserve - uc.reservations.Exists: %w", err))
			}
			if exists {
				reserved = append(reserved, item)

				continue
			}

			// 2. optimistic decrement
			remaining, err := uc.reserveItem(ctx, order.OrderID, item)
			if errors.Is(err, errInsufficientStock) {
				// a depleted order must hold no stock at all
				if undoErr := uc.undo(ctx, order.OrderID, reserved, nil); undoErr != nil {
					return undoErr
				}

				return uc.emitDepleted(ctx, correlationID, order.OrderID, item, remaining)
			}
			if err != nil {
				return uc.undo(ctx, order.OrderID, taken,
					fmt.Errorf("InventoryUseCase - Reserve - uc.reserveItem: %w", err))
			}

			taken = append(taken, item)
			reserved = append(reserved, item)

			if remaining < uc.lowStockThreshold {
				lows = append(lows, event.InventoryLowPayload{
					ProductID:    item.ProductID,
					CurrentStock: remaining,
					Threshold:    uc.lowStockThreshold,
				})
			}
		}

		// 3. announce
		_, err := uc.emitter.Emit(ctx, order.OrderID, event.InventoryReserved, correlationID,
			&event.InventoryReservedPayload{OrderID: order.OrderID, Items: reserved})
		if err != nil {
			return fmt.Errorf("InventoryUseCase - Reserve - uc.emitter.Emit reserved: %w", err)
		}

		for i := range lows {
			_, err = uc.emitter.Emit(ctx, order.OrderID, event.InventoryLow, correlationID, &lows[i])
			if err != nil {
				return fmt.Errorf("InventoryUseCase - Reserve - uc.emitter.Emit low: %w", err)
			}
		}

		uc.logger.Info("InventoryUseCase - Reserve - order %s reserved %d item(s)", order.OrderID, len(reserved))

		return nil
	})
	if err != nil {
		return fmt.Errorf("InventoryUseCase - Reserve - uc.transactor.WithinTransaction: %w", err)
	}

	return nil
}

// reserveItem returns the stock left after the decrement. With
// errInsufficientStock it returns the stock observed.
func (uc *UseCase) reserveItem(ctx context.Context, orderID string, item event.ReservedItem) (int, error) {
	for attempt := 1; attempt <= uc.maxAttempts; attempt++ {
		product, err := uc.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, errs.ErrRecordNotFound) {
				return 0, errInsufficientStock
			}

			return 0, fmt.Errorf("uc.products.GetByID: %w", err)
		}

		if product.Stock < item.Quantity {
			return product.Stock, errInsufficientStock
		}

		ok, err := uc.products.AdjustStock(ctx, item.ProductID, -item.Quantity, product.Version)
		if err != nil {
			return 0, fmt.Errorf("uc.products.AdjustStock: %w", err)
		}

		if ok {
			err = uc.reservations.Create(ctx, &entity.StockReservation{
				OrderID:   orderID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				CreatedAt: uc.now().UTC(),
			})
			if err != nil {
				// the decrement already happened; give it back before failing
				return 0, errors.Join(
					fmt.Errorf("uc.reservations.Create: %w", err),
					uc.restoreStock(ctx, item.ProductID, item.Quantity),
				)
			}

			return product.Stock - item.Quantity, nil
		}

		uc.metrics.VersionConflict(ctx, item.ProductID)
		uc.logger.Debug("InventoryUseCase - reserveItem - %s: version %d changed, attempt %d/%d",
			item.ProductID, product.Version, attempt, uc.maxAttempts)
	}

	return 0, fmt.Errorf("reserve %s after %d attempts: %w", item.ProductID, uc.maxAttempts, errs.ErrVersionConflict)
}

// undo gives back the given reservations of the order. cause is returned
// joined with any undo failure.
func (uc *UseCase) undo(ctx context.Context, orderID string, taken []event.ReservedItem, cause error) error {
	var undoErrs []error

	for i := len(taken) - 1; i >= 0; i-- {
		if _, err := uc.release(ctx, orderID, taken[i].ProductID, taken[i].Quantity); err != nil {
			undoErrs = append(undoErrs, err)
		}
	}

	if len(undoErrs) == 0 {
		return cause
	}

	return errors.Join(append([]error{cause}, undoErrs...)...)
}

func (uc *UseCase) emitDepleted(
	ctx context.Context,
	correlationID string,
	orderID string,
	item event.ReservedItem,
	available int,
) error {
	reason := fmt.Sprintf("Out of stock or insufficient stock: %s (requested %d, available %d)",
		item.ProductID, item.Quantity, available)

	_, err := uc.emitter.Emit(ctx, orderID, event.InventoryDepleted, correlationID, &event.InventoryDepletedPayload{
		OrderID:   orderID,
		ProductID: item.ProductID,
		Reason:    &reason,
	})
	if err != nil {
		return fmt.Errorf("InventoryUseCase - emitDepleted - uc.emitter.Emit: %w", err)
	}

	uc.logger.Info("InventoryUseCase - Reserve - order %s depleted on %s", orderID, item.ProductID)

	return nil
}

// Release gives stock back for an order cancelled by a failed payment. Any
// other cancellation source, or none, leaves inventory untouched: nothing
// was reserved for a depleted order.
func (uc *UseCase) Release(ctx context.Context, order *event.OrderCancelledPayload) error {
	source := event.StringOr(order.CancellationSource, "")

	switch source {
	case event.SourcePaymentFailed:
	case event.SourceInventoryDepleted:
		uc.logger.Debug("InventoryUseCase - Release - order %s cancelled by depletion, nothing to release", order.OrderID)

		return nil
	case "":
		uc.logger.Warn("InventoryUseCase - Release - order %s cancelled without cancellation_source, not releasing", order.OrderID)

		return nil
	default:
		uc.logger.Warn("InventoryUseCase - Release - order %s has unknown cancellation_source %q, not releasing",
			order.OrderID, source)

		return nil
	}

	err := uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		reservations, err := uc.reservations.ListByOrder(ctx, order.OrderID)
		if err != nil {
			return fmt.Errorf("InventoryUseCase - Release - uc.reservations.ListByOrder: %w", err)
		}

		released := 0
		for _, reservation := range reservations {
			ok, err := uc.release(ctx, reservation.OrderID, reservation.ProductID, reservation.Quantity)
			if err != nil {
				return fmt.Errorf("InventoryUseCase - Release: %w", err)
			}
			if ok {
				released++
			}
		}

		uc.logger.Info("InventoryUseCase - Release - order %s released %d reservation(s)", order.OrderID, released)

		return nil
	})
	if err != nil {
		return fmt.Errorf("InventoryUseCase - Release - uc.transactor.WithinTransaction: %w", err)
	}

	return nil
}

// release deletes the reservation row and credits its quantity back. The
// deletion is the release: a row already gone is never credited twice.
func (uc *UseCase) release(ctx context.Context, orderID, productID string, quantity int) (bool, error) {
	deleted, err := uc.reservations.Delete(ctx, orderID, productID)
	if err != nil {
		return false, fmt.Errorf("uc.reservations.Delete: %w", err)
	}
	if !deleted {
		return false, nil
	}

	err = uc.restoreStock(ctx, productID, quantity)
	if err != nil {
		return false, err
	}

	return true, nil
}

func (uc *UseCase) restoreStock(ctx context.Context, productID string, quantity int) error {
	for attempt := 1; attempt <= uc.maxAttempts; attempt++ {
		product, err := uc.products.GetByID(ctx, productID)
		if err != nil {
			return fmt.Errorf("uc.products.GetByID: %w", err)
		}

		ok, err := uc.products.AdjustStock(ctx, productID, quantity, product.Version)
		if err != nil {
			return fmt.Errorf("uc.products.AdjustStock: %w", err)
		}
		if ok {
			return nil
		}

		uc.metrics.VersionConflict(ctx, productID)
	}

	return fmt.Errorf("restore %s after %d attempts: %w", productID, uc.maxAttempts, errs.ErrVersionConflict)
}

func (uc *UseCase) GetProduct(ctx context.Context, productID string) (*entity.Product, error) {
	product, err := uc.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("InventoryUseCase - GetProduct - uc.products.GetByID: %w", err)
	}

	return product, nil
}

func (uc *UseCase) ListProducts(ctx context.Context) ([]*entity.Product, error) {
	products, err := uc.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("InventoryUseCase - ListProducts - uc.products.List: %w", err)
	}

	return products, nil
}

// mergeItems sums quantities of repeated products and sorts by product id,
// so concurrent orders lock product rows in the same order.
func mergeItems(items []event.Item) []event.ReservedItem {
	index := make(map[string]int, len(items))
	merged := make([]event.ReservedItem, 0, len(items))

	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			merged[i].Quantity += item.Quantity

			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, event.ReservedItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	slices.SortFunc(merged, func(a, b event.ReservedItem) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})

	return merged
}
