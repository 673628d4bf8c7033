package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/andreyxaxa/order-saga/internal/event"
	"github.com/andreyxaxa/order-saga/internal/repo"
	"github.com/andreyxaxa/order-saga/internal/usecase/outbox"
	"github.com/andreyxaxa/order-saga/pkg/logger"
	"github.com/andreyxaxa/order-saga/pkg/types/errs"
)

const _defaultPaymentFailedReason = "Payment processing failed"

// UseCase owns order status. Every transition commits together with the
// outbox event announcing it.
type UseCase struct {
	orders     repo.OrderRepo
	emitter    *outbox.Emitter
	transactor repo.Transactor

	logger logger.Interface

	now func() time.Time
}

func New(
	orders repo.OrderRepo,
	emitter *outbox.Emitter,
	transactor repo.Transactor,
	l logger.Interface,
) *UseCase {
	return &UseCase{
		orders:     orders,
		emitter:    emitter,
		transactor: transactor,
		logger:     l,
		now:        time.Now,
	}
}

// CreateOrder starts a saga: a PENDING order and its order.created event.
func (uc *UseCase) CreateOrder(ctx context.Context, correlationID string, checkout *event.CheckoutInitiatedPayload) (*entity.Order, error) {
	items := make([]entity.OrderItem, 0, len(checkout.Items))
	for _, item := range checkout.Items {
		items = append(items, entity.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
		})
	}

	order := entity.NewOrder(checkout.UserID, correlationID, items, checkout.Total(), uc.now().UTC())

	err := uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		// 1. order row
		if err := uc.orders.Create(ctx, order); err != nil {
			return fmt.Errorf("OrderUseCase - CreateOrder - uc.orders.Create: %w", err)
		}

		// 2. its outbox event
		_, err := uc.emitter.Emit(ctx, order.OrderID, event.OrderCreated, correlationID, &event.OrderCreatedPayload{
			OrderID:     order.OrderID,
			UserID:      order.UserID,
			Items:       checkout.Items,
			TotalAmount: order.TotalAmount,
		})
		if err != nil {
			return fmt.Errorf("OrderUseCase - CreateOrder - uc.emitter.Emit: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("OrderUseCase - CreateOrder - uc.transactor.WithinTransaction: %w", err)
	}

	uc.logger.Info("OrderUseCase - CreateOrder - saga started for order %s", order.OrderID)

	return order, nil
}

// ConfirmReservation moves PENDING to RESERVATION_CONFIRMED.
func (uc *UseCase) ConfirmReservation(ctx context.Context, correlationID string, reserved *event.InventoryReservedPayload) error {
	return uc.transition(ctx, "ConfirmReservation", reserved.OrderID, correlationID, entity.TriggerInventoryReserved,
		func(o *entity.Order) (string, any) {
			return event.OrderReservationConfirmed, &event.OrderReservationConfirmedPayload{
				OrderID:     o.OrderID,
				UserID:      o.UserID,
				TotalAmount: o.TotalAmount,
			}
		})
}

// CancelForDepletion moves PENDING to CANCELLED. No stock is held, so the
// cancellation tells inventory not to release.
func (uc *UseCase) CancelForDepletion(ctx context.Context, correlationID string, depleted *event.InventoryDepletedPayload) error {
	reason := event.StringOr(depleted.Reason, "Out of stock or insufficient stock: "+depleted.ProductID)

	return uc.transition(ctx, "CancelForDepletion", depleted.OrderID, correlationID, entity.TriggerInventoryDepleted,
		func(o *entity.Order) (string, any) {
			return event.OrderCancelled, &event.OrderCancelledPayload{
				OrderID:            o.OrderID,
				UserID:             o.UserID,
				Reason:             reason,
				CancellationSource: event.Ptr(event.SourceInventoryDepleted),
			}
		})
}

// ConfirmPayment moves RESERVATION_CONFIRMED to PAID.
func (uc *UseCase) ConfirmPayment(ctx context.Context, correlationID string, payment *event.PaymentProcessedPayload) error {
	return uc.transition(ctx, "ConfirmPayment", payment.OrderID, correlationID, entity.TriggerPaymentProcessed,
		func(o *entity.Order) (string, any) {
			return event.OrderConfirmed, &event.OrderConfirmedPayload{
				OrderID:   o.OrderID,
				UserID:    o.UserID,
				PaymentID: payment.PaymentID,
			}
		})
}

// CancelForPaymentFailure moves RESERVATION_CONFIRMED to CANCELLED; the
// cancellation tells inventory to release the reservation.
func (uc *UseCase) CancelForPaymentFailure(ctx context.Context, correlationID string, failed *event.PaymentFailedPayload) error {
	reason := event.StringOr(failed.Reason, _defaultPaymentFailedReason)

	return uc.transition(ctx, "CancelForPaymentFailure", failed.OrderID, correlationID, entity.TriggerPaymentFailed,
		func(o *entity.Order) (string, any) {
			return event.OrderCancelled, &event.OrderCancelledPayload{
				OrderID:            o.OrderID,
				UserID:             o.UserID,
				Reason:             reason,
				CancellationSource: event.Ptr(event.SourcePaymentFailed),
			}
		})
}

// FulfillDueOrders ships PAID orders last updated before olderThan and
// returns how many it fulfilled.
func (uc *UseCase) FulfillDueOrders(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	orders, err := uc.orders.ListPaidBefore(ctx, olderThan, limit)
	if err != nil {
		return 0, fmt.Errorf("OrderUseCase - FulfillDueOrders - uc.orders.ListPaidBefore: %w", err)
	}

	var (
		fulfilled   int
		fulfillErrs []error
	)

	for _, o := range orders {
		applied, err := uc.fulfill(ctx, o)
		if err != nil {
			fulfillErrs = append(fulfillErrs, err)

			continue
		}
		if applied {
			fulfilled++
		}
	}

	return fulfilled, errors.Join(fulfillErrs...)
}

func (uc *UseCase) fulfill(ctx context.Context, o *entity.Order) (bool, error) {
	var applied bool

	err := uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		from, err := o.Apply(entity.TriggerFulfillmentDue, uc.now().UTC())
		if err != nil {
			return nil
		}

		ok, err := uc.orders.UpdateStatus(ctx, o, from)
		if err != nil {
			return fmt.Errorf("uc.orders.UpdateStatus: %w", err)
		}
		if !ok {
			// another poller got there first
			return nil
		}

		_, err = uc.emitter.Emit(ctx, o.OrderID, event.OrderFulfilled, o.CorrelationID, &event.OrderFulfilledPayload{
			OrderID:        o.OrderID,
			UserID:         o.UserID,
			TrackingNumber: entity.NewTrackingNumber(),
		})
		if err != nil {
			return fmt.Errorf("uc.emitter.Emit: %w", err)
		}

		applied = true

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("OrderUseCase - fulfill - %s: %w", o.OrderID, err)
	}

	if applied {
		uc.logger.Info("OrderUseCase - FulfillDueOrders - order %s fulfilled", o.OrderID)
	}

	return applied, nil
}

// transition applies trigger to the stored order and emits the event built
// by announce. A trigger that is not valid for the current status is a
// stale or duplicate signal: logged and acknowledged. A missing order is
// errs.ErrRecordNotFound.
func (uc *UseCase) transition(
	ctx context.Context,
	method string,
	orderID string,
	correlationID string,
	trigger entity.Trigger,
	announce func(o *entity.Order) (eventType string, payload any),
) error {
	err := uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		o, err := uc.orders.GetByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("uc.orders.GetByID: %w", err)
		}

		// 1. table check
		from, err := o.Apply(trigger, uc.now().UTC())
		if err != nil {
			uc.logger.Warn("OrderUseCase - %s - order %s: ignoring %s in status %s", method, orderID, trigger, from)

			return nil
		}

		// 2. conditional write
		ok, err := uc.orders.UpdateStatus(ctx, o, from)
		if err != nil {
			return fmt.Errorf("uc.orders.UpdateStatus: %w", err)
		}
		if !ok {
			uc.logger.Warn("OrderUseCase - %s - order %s left status %s concurrently, ignoring %s", method, orderID, from, trigger)

			return nil
		}

		// 3. announce in the same transaction
		if correlationID == "" {
			correlationID = o.CorrelationID
		}

		eventType, payload := announce(o)

		_, err = uc.emitter.Emit(ctx, o.OrderID, eventType, correlationID, payload)
		if err != nil {
			return fmt.Errorf("uc.emitter.Emit: %w", err)
		}

		uc.logger.Info("OrderUseCase - %s - order %s: %s -> %s", method, orderID, from, o.Status)

		return nil
	})
	if err != nil {
		return fmt.Errorf("OrderUseCase - %s - order %s: %w", method, orderID, err)
	}

	return nil
}

func (uc *UseCase) GetOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	o, err := uc.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("OrderUseCase - GetOrder - uc.orders.GetByID: %w", err)
	}

	return o, nil
}

func (uc *UseCase) ListUserOrders(ctx context.Context, userID string) ([]*entity.Order, error) {
	if userID == "" {
		return nil, errs.Validation("missing user_id")
	}

	orders, err := uc.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("OrderUseCase - ListUserOrders - uc.orders.ListByUser: %w", err)
	}

	return orders, nil
}
