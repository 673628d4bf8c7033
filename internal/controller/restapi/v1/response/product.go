package response

import (
	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/shopspring/decimal"
)

type Product struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

func NewProduct(p *entity.Product) Product {
	return Product{
		ProductID:   p.ProductID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
	}
}
