package entity

import (
	"strings"
	"time"

	"github.com/andreyxaxa/order-saga/internal/event"
	"github.com/google/uuid"
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
	Items              []OrderItem     `json:"items"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	Status             Status          `json:"status"`
	CancellationSource *string         `json:"cancellation_source,omitempty"`
	CorrelationID      string          `json:"correlation_id"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// NewOrder returns a PENDING order with a fresh id.
func NewOrder(userID, correlationID string, items []OrderItem, total decimal.Decimal, now time.Time) *Order {
	return &Order{
		OrderID:       NewOrderID(),
		UserID:        userID,
		Items:         items,
		TotalAmount:   total,
		Status:        StatusPending,
		CorrelationID: correlationID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Apply moves the order along the transition table and returns the status
// it left. On error the order is unchanged.
func (o *Order) Apply(t Trigger, now time.Time) (Status, error) {
	from := o.Status

	next, err := from.Next(t)
	if err != nil {
		return from, err
	}

	o.Status = next
	o.UpdatedAt = now

	switch t {
	case TriggerInventoryDepleted:
		o.CancellationSource = event.Ptr(event.SourceInventoryDepleted)
	case TriggerPaymentFailed:
		o.CancellationSource = event.Ptr(event.SourcePaymentFailed)
	}

	return from, nil
}

// NewOrderID -.
func NewOrderID() string {
	return "ORD-" + shortID()
}

// NewTrackingNumber -.
func NewTrackingNumber() string {
	return "TRK-" + shortID()
}

// NewProductID -.
func NewProductID() string {
	return "PROD-" + shortID()
}

func shortID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
