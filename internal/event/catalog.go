package event

// Topic names double as event types.
const (
	CartCheckoutInitiated     = "cart.checkout_initiated"
	OrderCreated              = "order.created"
	OrderReservationConfirmed = "order.reservation_confirmed"
	OrderConfirmed            = "order.confirmed"
	OrderCancelled            = "order.cancelled"
	OrderFulfilled            = "order.fulfilled"
	PaymentProcessed          = "payment.processed"
	PaymentFailed             = "payment.failed"
	InventoryReserved         = "inventory.reserved"
	InventoryDepleted         = "inventory.depleted"
	InventoryLow              = "inventory.low"
	FraudDetected             = "fraud.detected"

	DeadLetterTopic = "dlq.events"
)

// Cancellation sources carried by order.cancelled.
const (
	SourceInventoryDepleted = "inventory_depleted"
	SourcePaymentFailed     = "payment_failed"
)

// Topics lists every topic of the catalog, dead-letter included.
func Topics() []string {
	return []string{
		CartCheckoutInitiated,
		OrderCreated,
		OrderReservationConfirmed,
		OrderConfirmed,
		OrderCancelled,
		OrderFulfilled,
		PaymentProcessed,
		PaymentFailed,
		InventoryReserved,
		InventoryDepleted,
		InventoryLow,
		FraudDetected,
		DeadLetterTopic,
	}
}
