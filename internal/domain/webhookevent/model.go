package webhookevent

import (
	"context"
	"time"
)

// ProcessedEvent records a payment processor event that has been handled
type ProcessedEvent struct {
	EventID         string    `json:"event_id" db:"event_id"`
	EventType       string    `json:"event_type" db:"event_type"`
	PaymentIntentID string    `json:"payment_intent_id" db:"payment_intent_id"`
	ProcessedAt     time.Time `json:"processed_at" db:"processed_at"`
}

// Repository is the ledger of processed events
type Repository interface {
	// Exists reports whether eventID was already processed
	Exists(ctx context.Context, eventID string) (bool, error)

	// MarkProcessed records the event and reports whether this call inserted
	// it. A false result means another delivery got there first.
	MarkProcessed(ctx context.Context, event *ProcessedEvent) (bool, error)
}
