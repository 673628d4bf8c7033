package v1

import (
	"errors"
	"net/http"

	"github.com/andreyxaxa/order-saga/internal/controller/restapi/v1/response"
	"github.com/andreyxaxa/order-saga/internal/usecase"
	"github.com/andreyxaxa/order-saga/pkg/logger"
	"github.com/andreyxaxa/order-saga/pkg/types/errs"
	"github.com/gofiber/fiber/v2"
)

type orderRoutes struct {
	o      usecase.OrderUseCase
	logger logger.Interface
}

func NewOrderRoutes(apiV1Group fiber.Router, o usecase.OrderUseCase, l logger.Interface) {
	r := &orderRoutes{o: o, logger: l}

	{
		apiV1Group.Get("/orders/user/:user_id", r.listUserOrders)
		apiV1Group.Get("/orders/:id", r.getOrder)
	}
}

// @Summary 	Get order
// @Description Returns the current state of an order
// @Tags 		orders
// @Produce 	json
// @Param 		id path string true "Order ID"
// @Success 	200 {object} response.Order
// @Failure 	404 {object} response.Error "Order not found"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/orders/{id} [get]
func (r *orderRoutes) getOrder(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	if id == "" {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	order, err := r.o.GetOrder(ctx.UserContext(), id)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "order not found")
		}
		r.logger.Error(err, "restapi - v1 - getOrder")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	return ctx.Status(http.StatusOK).JSON(response.NewOrder(order))
}

// @Summary 	List user orders
// @Description Returns the orders of a user, newest first
// @Tags 		orders
// @Produce 	json
// @Param 		user_id path string true "User ID"
// @Success 	200 {array} response.Order
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/orders/user/{user_id} [get]
func (r *orderRoutes) listUserOrders(ctx *fiber.Ctx) error {
	orders, err := r.o.ListUserOrders(ctx.UserContext(), ctx.Params("user_id"))
	if err != nil {
		if errors.Is(err, errs.ErrValidation) {
			return errorResponse(ctx, http.StatusBadRequest, "invalid user id")
		}
		r.logger.Error(err, "restapi - v1 - listUserOrders")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	resp := make([]response.Order, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, response.NewOrder(order))
	}

	return ctx.Status(http.StatusOK).JSON(resp)
}
