package entity

import (
	"fmt"

	"github.com/andreyxaxa/order-saga/pkg/types/errs"
)

type Status string

const (
	StatusPending              Status = "PENDING"
	StatusReservationConfirmed Status = "RESERVATION_CONFIRMED"
	StatusPaid                 Status = "PAID"
	StatusFulfilled            Status = "FULFILLED"
	StatusCancelled            Status = "CANCELLED"
)

// Trigger is whatever moves an order from one status to the next.
type Trigger string

const (
	TriggerInventoryReserved Trigger = "inventory.reserved"
	TriggerInventoryDepleted Trigger = "inventory.depleted"
	TriggerPaymentProcessed  Trigger = "payment.processed"
	TriggerPaymentFailed     Trigger = "payment.failed"
	TriggerFulfillmentDue    Trigger = "fulfillment.due"
)

// Creation is not listed: a new order always starts PENDING.
var _transitions = map[Status]map[Trigger]Status{
	StatusPending: {
		TriggerInventoryReserved: StatusReservationConfirmed,
		TriggerInventoryDepleted: StatusCancelled,
	},
	StatusReservationConfirmed: {
		TriggerPaymentProcessed: StatusPaid,
		TriggerPaymentFailed:    StatusCancelled,
	},
	StatusPaid: {
		TriggerFulfillmentDue: StatusFulfilled,
	},
}

// Next returns the status reached from s on t, or ErrInvalidTransition.
func (s Status) Next(t Trigger) (Status, error) {
	next, ok := _transitions[s][t]
	if !ok {
		return s, fmt.Errorf("%w: %s on %s", errs.ErrInvalidTransition, s, t)
	}

	return next, nil
}

// IsTerminal -.
func (s Status) IsTerminal() bool {
	return s == StatusFulfilled || s == StatusCancelled
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReservationConfirmed, StatusPaid, StatusFulfilled, StatusCancelled:
		return true
	}

	return false
}
