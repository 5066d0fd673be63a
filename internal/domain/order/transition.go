package order

import (
	"github.com/emberwick/storefront/internal/types"
	"github.com/samber/lo"
)

// Transition describes how one payment event moves an order. It applies only
// when the order's current payment status is one of From.
type Transition struct {
	Event         types.PaymentEventType
	From          []types.PaymentStatus
	PaymentStatus types.PaymentStatus
	Status        types.OrderStatus
	Notification  string
}

var transitions = map[types.PaymentEventType]Transition{
	types.PaymentEventIntentSucceeded: {
		Event:         types.PaymentEventIntentSucceeded,
		From:          []types.PaymentStatus{types.PaymentStatusPending, types.PaymentStatusFailed},
		PaymentStatus: types.PaymentStatusPaid,
		Status:        types.OrderStatusProcessing,
		Notification:  types.WebhookEventOrderPaid,
	},
	types.PaymentEventIntentFailed: {
		Event:         types.PaymentEventIntentFailed,
		From:          []types.PaymentStatus{types.PaymentStatusPending},
		PaymentStatus: types.PaymentStatusFailed,
		Status:        types.OrderStatusCancelled,
		Notification:  types.WebhookEventOrderFailed,
	},
	types.PaymentEventChargeRefunded: {
		Event:         types.PaymentEventChargeRefunded,
		From:          []types.PaymentStatus{types.PaymentStatusPaid},
		PaymentStatus: types.PaymentStatusRefunded,
		Status:        types.OrderStatusRefunded,
		Notification:  types.WebhookEventOrderRefunded,
	},
}

// TransitionFor returns the transition for event, false for events that never
// change an order
func TransitionFor(event types.PaymentEventType) (Transition, bool) {
	t, ok := transitions[event]
	return t, ok
}

// Allows reports whether the transition may fire from current
func (t Transition) Allows(current types.PaymentStatus) bool {
	return lo.Contains(t.From, current)
}

// MarksPaid reports whether applying the transition completes payment
func (t Transition) MarksPaid() bool {
	return t.PaymentStatus == types.PaymentStatusPaid
}

// Next is the reconciler state machine. It returns the statuses an order in
// current moves to on event, and false when the event leaves it unchanged.
// Replaying an event, or delivering one out of order, is always a no-op.
func Next(current types.PaymentStatus, event types.PaymentEventType) (types.PaymentStatus, types.OrderStatus, bool) {
	t, ok := TransitionFor(event)
	if !ok || !t.Allows(current) {
		return current, "", false
	}
	return t.PaymentStatus, t.Status, true
}
