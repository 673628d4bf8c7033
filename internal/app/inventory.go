package app

import (
	"context"
	"fmt"

	"github.com/andreyxaxa/order-saga/config"
	kafkactrl "github.com/andreyxaxa/order-saga/internal/controller/kafka"
	"github.com/andreyxaxa/order-saga/internal/controller/restapi"
	"github.com/andreyxaxa/order-saga/internal/repo/persistent"
	"github.com/andreyxaxa/order-saga/internal/usecase/inventory"
)

// RunInventory runs the inventory reservation engine: order consumers,
// product seeding and the product read API.
func RunInventory(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newPlatform(ctx, cfg)

	// Use-Case
	inventoryUseCase := inventory.New(
		persistent.NewProductRepo(p.pg),
		persistent.NewReservationRepo(p.pg),
		p.emitter,
		p.pg,
		p.metrics,
		p.l,
		inventory.MaxAttempts(cfg.Inventory.ReserveMaxAttempts),
		inventory.LowStockThreshold(cfg.Inventory.LowStockThreshold),
	)

	// Sample products
	if cfg.Inventory.Seed {
		n, err := inventoryUseCase.Seed(ctx)
		if err != nil {
			p.l.Fatal(fmt.Errorf("app - RunInventory - inventoryUseCase.Seed: %w", err))
		}
		if n > 0 {
			p.l.Info("app - RunInventory - seeded %d products", n)
		}
	}

	// Outbox Relay Worker
	p.withOutboxRelay(ctx)

	// Kafka as Controller
	p.withConsumers(ctx, kafkactrl.InventoryRoutes(inventoryUseCase))

	// HTTP
	restapi.NewInventoryRouter(p.httpServer.App, cfg, inventoryUseCase, p.l)

	// Start Components
	p.start(ctx)

	// Waiting Signal
	p.wait()

	// Shutdown
	p.stopIntake(ctx)
	p.close(ctx)
}
