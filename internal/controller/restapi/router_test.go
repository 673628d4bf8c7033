package restapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andreyxaxa/order-saga/config"
	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/andreyxaxa/order-saga/internal/usecase"
	"github.com/andreyxaxa/order-saga/pkg/logger"
	"github.com/andreyxaxa/order-saga/pkg/types/errs"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOrders struct {
	usecase.OrderUseCase
	mock.Mock
}

func (m *mockOrders) GetOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	args := m.Called(ctx, orderID)

	o, _ := args.Get(0).(*entity.Order)

	return o, args.Error(1)
}

func (m *mockOrders) ListUserOrders(ctx context.Context, userID string) ([]*entity.Order, error) {
	args := m.Called(ctx, userID)

	orders, _ := args.Get(0).([]*entity.Order)

	return orders, args.Error(1)
}

type mockInventory struct {
	usecase.InventoryUseCase
	mock.Mock
}

func (m *mockInventory) GetProduct(ctx context.Context, productID string) (*entity.Product, error) {
	args := m.Called(ctx, productID)

	p, _ := args.Get(0).(*entity.Product)

	return p, args.Error(1)
}

func (m *mockInventory) ListProducts(ctx context.Context) ([]*entity.Product, error) {
	args := m.Called(ctx)

	products, _ := args.Get(0).([]*entity.Product)

	return products, args.Error(1)
}

func testConfig(service, version string) *config.Config {
	return &config.Config{App: config.App{Name: service, Version: version}}
}

func newApp() *fiber.App {
	return fiber.New(fiber.Config{JSONEncoder: json.Marshal, JSONDecoder: json.Unmarshal})
}

func do(t *testing.T, app *fiber.App, path string) (int, map[string]any, []any) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var object map[string]any
	if json.Unmarshal(body, &object) == nil {
		return resp.StatusCode, object, nil
	}

	// fiber's own 404 is plain text
	var list []any
	_ = json.Unmarshal(body, &list)

	return resp.StatusCode, nil, list
}

func TestHealth(t *testing.T) {
	app := newApp()
	NewOrderRouter(app, testConfig("order-service", "1.2.3"), &mockOrders{}, logger.Discard())

	code, body, _ := do(t, app, "/health")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"status": "ok", "service": "order-service", "version": "1.2.3"}, body)
}

func TestSwagger(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		cfg := testConfig("inventory-service", "1")
		cfg.Swagger.Enabled = true

		app := newApp()
		NewInventoryRouter(app, cfg, &mockInventory{}, logger.Discard())

		code, _, _ := do(t, app, "/swagger/index.html")

		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("disabled", func(t *testing.T) {
		app := newApp()
		NewInventoryRouter(app, testConfig("inventory-service", "1"), &mockInventory{}, logger.Discard())

		code, _, _ := do(t, app, "/swagger/index.html")

		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestGetOrder(t *testing.T) {
	// Arrange
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	order := &entity.Order{
		OrderID:     "ORD-1",
		UserID:      "U1",
		Status:      entity.StatusPaid,
		Items:       []entity.OrderItem{{ProductID: "P1", Quantity: 2, UnitPrice: decimal.RequireFromString("9.50")}},
		TotalAmount: decimal.RequireFromString("19"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	orders := &mockOrders{}
	orders.On("GetOrder", mock.Anything, "ORD-1").Return(order, nil)
	orders.On("GetOrder", mock.Anything, "ORD-X").Return(nil, fmt.Errorf("wrapped: %w", errs.ErrRecordNotFound))
	orders.On("GetOrder", mock.Anything, "ORD-E").Return(nil, fmt.Errorf("pg: connection refused"))

	app := newApp()
	NewOrderRouter(app, testConfig("order-service", "1"), orders, logger.Discard())

	// Act + Assert
	code, body, _ := do(t, app, "/v1/orders/ORD-1")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ORD-1", body["order_id"])
	assert.Equal(t, "PAID", body["status"])
	assert.Equal(t, "2024-05-01T12:00:00Z", body["created_at"])
	assert.Equal(t, 19.0, body["total_amount"])

	code, body, _ = do(t, app, "/v1/orders/ORD-X")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "order not found", body["error"])

	code, _, _ = do(t, app, "/v1/orders/ORD-E")
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestListUserOrders(t *testing.T) {
	orders := &mockOrders{}
	orders.On("ListUserOrders", mock.Anything, "U1").Return([]*entity.Order{
		{OrderID: "ORD-1", UserID: "U1", Status: entity.StatusPending},
		{OrderID: "ORD-2", UserID: "U1", Status: entity.StatusCancelled},
	}, nil)
	orders.On("ListUserOrders", mock.Anything, "U2").Return(nil, nil)

	app := newApp()
	NewOrderRouter(app, testConfig("order-service", "1"), orders, logger.Discard())

	code, _, list := do(t, app, "/v1/orders/user/U1")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, list, 2)

	code, _, list = do(t, app, "/v1/orders/user/U2")
	assert.Equal(t, http.StatusOK, code)
	assert.NotNil(t, list, "an empty list, not null")
	assert.Empty(t, list)
}

func TestProducts(t *testing.T) {
	inventory := &mockInventory{}
	inventory.On("ListProducts", mock.Anything).Return([]*entity.Product{
		{ProductID: "PROD-1", Name: "Webcam", Price: decimal.RequireFromString("59.99"), Stock: 3},
	}, nil)
	inventory.On("GetProduct", mock.Anything, "PROD-1").Return(&entity.Product{ProductID: "PROD-1", Name: "Webcam", Stock: 3}, nil)
	inventory.On("GetProduct", mock.Anything, "PROD-X").Return(nil, errs.ErrRecordNotFound)

	app := newApp()
	NewInventoryRouter(app, testConfig("inventory-service", "1"), inventory, logger.Discard())

	code, _, list := do(t, app, "/v1/products")
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, list, 1)
	assert.Equal(t, 59.99, list[0].(map[string]any)["price"])

	code, body, _ := do(t, app, "/v1/products/PROD-1")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 3, body["stock"])

	code, body, _ = do(t, app, "/v1/products/PROD-X")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "product not found", body["error"])

	code, _, _ = do(t, app, "/v1/orders/ORD-1")
	assert.Equal(t, http.StatusNotFound, code, "inventory serves no orders")
}
