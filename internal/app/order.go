package app

import (
	"context"
	"fmt"

	"github.com/andreyxaxa/order-saga/config"
	kafkactrl "github.com/andreyxaxa/order-saga/internal/controller/kafka"
	"github.com/andreyxaxa/order-saga/internal/controller/restapi"
	"github.com/andreyxaxa/order-saga/internal/controller/worker/fulfillment"
	"github.com/andreyxaxa/order-saga/internal/repo/persistent"
	"github.com/andreyxaxa/order-saga/internal/usecase/order"
)

// RunOrder runs the order saga orchestrator: checkout, inventory and
// payment consumers, the fulfillment poller and the order read API.
func RunOrder(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newPlatform(ctx, cfg)

	// Use-Case
	orderUseCase := order.New(
		persistent.NewOrderRepo(p.pg),
		p.emitter,
		p.pg,
		p.l,
	)

	// Outbox Relay Worker
	p.withOutboxRelay(ctx)

	// Kafka as Controller
	p.withConsumers(ctx, kafkactrl.OrderRoutes(orderUseCase))

	// Fulfillment Poller
	fulfillmentPoller := fulfillment.New(
		orderUseCase,
		p.l,
		cfg.Fulfillment.PollInterval,
		cfg.Fulfillment.ShippingDelay,
		cfg.Fulfillment.BatchSize,
		cfg.Fulfillment.TickTimeout,
	)

	// HTTP
	restapi.NewOrderRouter(p.httpServer.App, cfg, orderUseCase, p.l)

	// Start Components
	p.start(ctx)

	err := fulfillmentPoller.Start(ctx)
	if err != nil {
		p.l.Fatal(fmt.Errorf("app - RunOrder - fulfillmentPoller.Start: %w", err))
	}

	// Waiting Signal
	p.wait()

	// Shutdown
	p.stopIntake(ctx)

	fpShutdownCtx, fpShutdownCancel := context.WithTimeout(ctx, cfg.Fulfillment.ShutdownTimeout)
	defer fpShutdownCancel()
	err = fulfillmentPoller.Shutdown(fpShutdownCtx)
	if err != nil {
		p.l.Error(fmt.Errorf("app - RunOrder - fulfillmentPoller.Shutdown: %w", err))
	}

	p.close(ctx)
}
