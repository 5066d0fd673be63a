package order

import (
	"context"
	"time"

	"github.com/emberwick/storefront/internal/types"
)

// Repository defines the interface for order data access
type Repository interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*Order, error)
	List(ctx context.Context, filter *types.OrderFilter) ([]*Order, error)
	Count(ctx context.Context, filter *types.OrderFilter) (int, error)

	// ApplyTransition moves the order owning paymentIntentID as a single
	// conditional update guarded by t.From. It returns the updated order and
	// true, or nil and false when no order matched in an allowed state.
	ApplyTransition(ctx context.Context, paymentIntentID string, t Transition, at time.Time) (*Order, bool, error)

	// ListStalePending returns pending orders created in the window
	// (notBefore, olderThan), oldest first. A zero notBefore leaves the window
	// open at the bottom.
	ListStalePending(ctx context.Context, olderThan, notBefore time.Time, limit int) ([]*Order, error)
}
