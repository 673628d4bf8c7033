package event

import (
	"strings"

	"github.com/andreyxaxa/order-saga/pkg/types/errs"
	"github.com/shopspring/decimal"
)

// Item is one order line. The price travels as "price", as the cart
// service sends it.
type Item struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// ReservedItem -.
type ReservedItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func validateItems(items []Item) error {
	if len(items) == 0 {
		return errs.Validation("items are empty")
	}

	for i, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return errs.Validation("items[%d]: missing product_id", i)
		}
		if item.Quantity <= 0 {
			return errs.Validation("items[%d]: quantity must be positive, got %d", i, item.Quantity)
		}
		if item.Price.IsNegative() {
			return errs.Validation("items[%d]: negative price", i)
		}
	}

	return nil
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return errs.Validation("missing %s", name)
	}

	return nil
}

// CheckoutInitiatedPayload starts a saga. Without total_amount the total is
// the sum of the items.
type CheckoutInitiatedPayload struct {
	UserID      string           `json:"user_id"`
	Items       []Item           `json:"items"`
	TotalAmount *decimal.Decimal `json:"total_amount,omitempty"`
}

func (p *CheckoutInitiatedPayload) Validate() error {
	if err := required("user_id", p.UserID); err != nil {
		return err
	}

	return validateItems(p.Items)
}

// Total -.
func (p *CheckoutInitiatedPayload) Total() decimal.Decimal {
	if p.TotalAmount != nil {
		return *p.TotalAmount
	}

	total := decimal.Zero
	for _, item := range p.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	return total
}

type OrderCreatedPayload struct {
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	Items       []Item          `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func (p *OrderCreatedPayload) Validate() error {
	if err := required("order_id", p.OrderID); err != nil {
		return err
	}

	return validateItems(p.Items)
}

type OrderReservationConfirmedPayload struct {
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func (p *OrderReservationConfirmedPayload) Validate() error {
	return required("order_id", p.OrderID)
}

type OrderConfirmedPayload struct {
	OrderID   string  `json:"order_id"`
	UserID    string  `json:"user_id"`
	PaymentID *string `json:"payment_id,omitempty"`
}

func (p *OrderConfirmedPayload) Validate() error {
	return required("order_id", p.OrderID)
}

// OrderCancelledPayload -. CancellationSource is optional on consumption:
// older producers did not send it.
type OrderCancelledPayload struct {
	OrderID            string  `json:"order_id"`
	UserID             string  `json:"user_id"`
	Reason             string  `json:"reason"`
	CancellationSource *string `json:"cancellation_source,omitempty"`
}

func (p *OrderCancelledPayload) Validate() error {
	return required("order_id", p.OrderID)
}

type OrderFulfilledPayload struct {
	OrderID        string `json:"order_id"`
	UserID         string `json:"user_id"`
	TrackingNumber string `json:"tracking_number"`
}

func (p *OrderFulfilledPayload) Validate() error {
	if err := required("order_id", p.OrderID); err != nil {
		return err
	}

	return required("tracking_number", p.TrackingNumber)
}

type PaymentProcessedPayload struct {
	OrderID   string           `json:"order_id"`
	PaymentID *string          `json:"payment_id,omitempty"`
	UserID    *string          `json:"user_id,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Currency  *string          `json:"currency,omitempty"`
	Method    *string          `json:"method,omitempty"`
}

func (p *PaymentProcessedPayload) Validate() error {
	return required("order_id", p.OrderID)
}

type PaymentFailedPayload struct {
	OrderID string  `json:"order_id"`
	UserID  *string `json:"user_id,omitempty"`
	Reason  *string `json:"reason,omitempty"`
}

func (p *PaymentFailedPayload) Validate() error {
	return required("order_id", p.OrderID)
}

type InventoryReservedPayload struct {
	OrderID string         `json:"order_id"`
	Items   []ReservedItem `json:"items,omitempty"`
}

func (p *InventoryReservedPayload) Validate() error {
	return required("order_id", p.OrderID)
}

// InventoryDepletedPayload needs both ids: the order to cancel is not
// recoverable from anything else.
type InventoryDepletedPayload struct {
	OrderID   string  `json:"order_id"`
	ProductID string  `json:"product_id"`
	Reason    *string `json:"reason,omitempty"`
}

func (p *InventoryDepletedPayload) Validate() error {
	if err := required("order_id", p.OrderID); err != nil {
		return err
	}

	return required("product_id", p.ProductID)
}

type InventoryLowPayload struct {
	ProductID    string `json:"product_id"`
	CurrentStock int    `json:"current_stock"`
	Threshold    int    `json:"threshold"`
}

func (p *InventoryLowPayload) Validate() error {
	return required("product_id", p.ProductID)
}

type FraudDetectedPayload struct {
	OrderID   string         `json:"order_id"`
	UserID    string         `json:"user_id"`
	AlertType string         `json:"alert_type"`
	Details   map[string]any `json:"details,omitempty"`
}

func (p *FraudDetectedPayload) Validate() error {
	if err := required("order_id", p.OrderID); err != nil {
		return err
	}

	return required("alert_type", p.AlertType)
}
