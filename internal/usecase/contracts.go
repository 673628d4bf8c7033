package usecase

import (
	"context"
	"time"

	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/andreyxaxa/order-saga/internal/event"
)

type (
	OrderUseCase interface {
		CreateOrder(ctx context.Context, correlationID string, checkout *event.CheckoutInitiatedPayload) (*entity.Order, error)
		ConfirmReservation(ctx context.Context, correlationID string, reserved *event.InventoryReservedPayload) error
		CancelForDepletion(ctx context.Context, correlationID string, depleted *event.InventoryDepletedPayload) error
		ConfirmPayment(ctx context.Context, correlationID string, payment *event.PaymentProcessedPayload) error
		CancelForPaymentFailure(ctx context.Context, correlationID string, failed *event.PaymentFailedPayload) error
		FulfillDueOrders(ctx context.Context, olderThan time.Time, limit int) (int, error)
		GetOrder(ctx context.Context, orderID string) (*entity.Order, error)
		ListUserOrders(ctx context.Context, userID string) ([]*entity.Order, error)
	}

	InventoryUseCase interface {
		Reserve(ctx context.Context, correlationID string, order *event.OrderCreatedPayload) error
		Release(ctx context.Context, order *event.OrderCancelledPayload) error
		GetProduct(ctx context.Context, productID string) (*entity.Product, error)
		ListProducts(ctx context.Context) ([]*entity.Product, error)
		Seed(ctx context.Context) (int, error)
	}

	OutboxUseCase interface {
		PublishPending(ctx context.Context) (int, error)
		Cleanup(ctx context.Context) (int64, error)
	}
)
