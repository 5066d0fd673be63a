package discount

import "context"

// Repository defines the interface for discount code data access
type Repository interface {
	// GetActiveByCode returns the active code, or a not found error when the
	// code does not exist or is inactive
	GetActiveByCode(ctx context.Context, code string) (*Discount, error)

	// IncrementUses adds one use when the cap allows it and reports whether
	// the increment happened
	IncrementUses(ctx context.Context, code string) (bool, error)
}
