package kafka

import (
	"context"
	"maps"
	"slices"

	"github.com/andreyxaxa/order-saga/internal/event"
	"github.com/andreyxaxa/order-saga/internal/usecase"
)

// OrderRoutes subscribes the order saga to its inbound topics.
func OrderRoutes(uc usecase.OrderUseCase) Routes {
	return Routes{
		event.CartCheckoutInitiated: func(ctx context.Context, env *event.Envelope) error {
			p, err := event.Decode[event.CheckoutInitiatedPayload](env)
			if err != nil {
				return err
			}

			_, err = uc.CreateOrder(ctx, env.CorrelationID, p)

			return err
		},
		event.InventoryReserved: func(ctx context.Context, env *event.Envelope) error {
			p, err := event.Decode[event.InventoryReservedPayload](env)
			if err != nil {
				return err
			}

			return uc.ConfirmReservation(ctx, env.CorrelationID, p)
		},
		event.InventoryDepleted: func(ctx context.Context, env *event.Envelope) error {
			p, err := event.Decode[event.InventoryDepletedPayload](env)
			if err != nil {
				return err
			}

			return uc.CancelForDepletion(ctx, env.CorrelationID, p)
		},
		event.PaymentProcessed: func(ctx context.Context, env *event.Envelope) error {
			p, err := event.Decode[event.PaymentProcessedPayload](env)
			if err != nil {
				return err
			}

			return uc.ConfirmPayment(ctx, env.CorrelationID, p)
		},
		event.PaymentFailed: func(ctx context.Context, env *event.Envelope) error {
			p, err := event.Decode[event.PaymentFailedPayload](env)
			if err != nil {
				return err
			}

			return uc.CancelForPaymentFailure(ctx, env.CorrelationID, p)
		},
	}
}

// InventoryRoutes subscribes the reservation engine to order events.
func InventoryRoutes(uc usecase.InventoryUseCase) Routes {
	return Routes{
		event.OrderCreated: func(ctx context.Context, env *event.Envelope) error {
			p, err := event.Decode[event.OrderCreatedPayload](env)
			if err != nil {
				return err
			}

			return uc.Reserve(ctx, env.CorrelationID, p)
		},
		event.OrderCancelled: func(ctx context.Context, env *event.Envelope) error {
			p, err := event.Decode[event.OrderCancelledPayload](env)
			if err != nil {
				return err
			}

			return uc.Release(ctx, p)
		},
	}
}

// Topics lists the topics of r, sorted.
func (r Routes) Topics() []string {
	return slices.Sorted(maps.Keys(r))
}
