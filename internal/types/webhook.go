package types

// PaymentEventType is a payment processor event the reconciler understands
type PaymentEventType string

const (
	PaymentEventIntentSucceeded PaymentEventType = "payment_intent.succeeded"
	PaymentEventIntentFailed    PaymentEventType = "payment_intent.payment_failed"
	PaymentEventChargeRefunded  PaymentEventType = "charge.refunded"
)

func (e PaymentEventType) String() string {
	return string(e)
}

// Outbound order notification names
const (
	WebhookEventOrderPaid     = "order.paid"
	WebhookEventOrderFailed   = "order.failed"
	WebhookEventOrderRefunded = "order.refunded"
)
