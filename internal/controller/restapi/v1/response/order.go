package response

import (
	"time"

	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/shopspring/decimal"
)

type OrderItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type Order struct {
	OrderID            string          `json:"order_id"`
	UserID             string          `json:"user_id"`
	Status             string          `json:"status"`
	CancellationSource *string         `json:"cancellation_source,omitempty"`
	Items              []OrderItem     `json:"items"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	CreatedAt          string          `json:"created_at"`
	UpdatedAt          string          `json:"updated_at"`
}

func NewOrder(o *entity.Order) Order {
	items := make([]OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItem(item))
	}

	return Order{
		OrderID:            o.OrderID,
		UserID:             o.UserID,
		Status:             string(o.Status),
		CancellationSource: o.CancellationSource,
		Items:              items,
		TotalAmount:        o.TotalAmount,
		CreatedAt:          o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          o.UpdatedAt.Format(time.RFC3339),
	}
}
