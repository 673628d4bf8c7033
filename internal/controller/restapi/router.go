package restapi

import (
	"net/http"

	"github.com/andreyxaxa/order-saga/config"
	v1 "github.com/andreyxaxa/order-saga/internal/controller/restapi/v1"
	"github.com/andreyxaxa/order-saga/internal/usecase"
	"github.com/andreyxaxa/order-saga/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// @title Order service
// @version 1.0.0
// @host localhost:8080
// @BasePath /v1
func NewOrderRouter(app *fiber.App, cfg *config.Config, o usecase.OrderUseCase, l logger.Interface) {
	common(app, cfg)

	apiV1Group := app.Group("/v1")
	{
		v1.NewOrderRoutes(apiV1Group, o, l)
	}
}

// @title Inventory service
// @version 1.0.0
// @host localhost:8081
// @BasePath /v1
func NewInventoryRouter(app *fiber.App, cfg *config.Config, inv usecase.InventoryUseCase, l logger.Interface) {
	common(app, cfg)

	apiV1Group := app.Group("/v1")
	{
		v1.NewProductRoutes(apiV1Group, inv, l)
	}
}

func common(app *fiber.App, cfg *config.Config) {
	// Swagger
	if cfg.Swagger.Enabled {
		app.Get("/swagger/*", swagger.HandlerDefault)
	}

	// Health
	app.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.Status(http.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"service": cfg.App.Name,
			"version": cfg.App.Version,
		})
	})
}
