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

type productRoutes struct {
	inv    usecase.InventoryUseCase
	logger logger.Interface
}

func NewProductRoutes(apiV1Group fiber.Router, inv usecase.InventoryUseCase, l logger.Interface) {
	r := &productRoutes{inv: inv, logger: l}

	{
		apiV1Group.Get("/products", r.listProducts)
		apiV1Group.Get("/products/:id", r.getProduct)
	}
}

// @Summary 	List products
// @Tags 		products
// @Produce 	json
// @Success 	200 {array} response.Product
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/products [get]
func (r *productRoutes) listProducts(ctx *fiber.Ctx) error {
	products, err := r.inv.ListProducts(ctx.UserContext())
	if err != nil {
		r.logger.Error(err, "restapi - v1 - listProducts")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	resp := make([]response.Product, 0, len(products))
	for _, product := range products {
		resp = append(resp, response.NewProduct(product))
	}

	return ctx.Status(http.StatusOK).JSON(resp)
}

// @Summary 	Get product
// @Tags 		products
// @Produce 	json
// @Param 		id path string true "Product ID"
// @Success 	200 {object} response.Product
// @Failure 	404 {object} response.Error "Product not found"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/products/{id} [get]
func (r *productRoutes) getProduct(ctx *fiber.Ctx) error {
	product, err := r.inv.GetProduct(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "product not found")
		}
		r.logger.Error(err, "restapi - v1 - getProduct")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	return ctx.Status(http.StatusOK).JSON(response.NewProduct(product))
}
