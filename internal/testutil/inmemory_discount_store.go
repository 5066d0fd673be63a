package testutil

import (
	"context"

	"github.com/emberwick/storefront/internal/domain/discount"
	ierr "github.com/emberwick/storefront/internal/errors"
)

// InMemoryDiscountStore implements discount.Repository, keyed by normalized code
type InMemoryDiscountStore struct {
	*InMemoryStore[*discount.Discount]
}

func NewInMemoryDiscountStore() *InMemoryDiscountStore {
	return &InMemoryDiscountStore{
		InMemoryStore: NewInMemoryStore[*discount.Discount](),
	}
}

var _ discount.Repository = (*InMemoryDiscountStore)(nil)

// CreateDiscount seeds a code
func (s *InMemoryDiscountStore) CreateDiscount(ctx context.Context, d *discount.Discount) error {
	return s.InMemoryStore.Create(ctx, discount.NormalizeCode(d.Code), copyDiscount(d))
}

func (s *InMemoryDiscountStore) GetActiveByCode(ctx context.Context, code string) (*discount.Discount, error) {
	d, err := s.InMemoryStore.Get(ctx, discount.NormalizeCode(code))
	if err != nil || !d.Active {
		return nil, ierr.NewError("discount code not found").
			WithHint("Invalid discount code").
			WithReportableDetails(map[string]any{"code": code}).
			Mark(ierr.ErrNotFound)
	}
	return copyDiscount(d), nil
}

func (s *InMemoryDiscountStore) IncrementUses(ctx context.Context, code string) (bool, error) {
	_, ok := s.InMemoryStore.Mutate(ctx, discount.NormalizeCode(code), func(d *discount.Discount) (*discount.Discount, bool) {
		if d.IsExhausted() {
			return d, false
		}
		next := copyDiscount(d)
		next.Uses++
		return next, true
	})
	return ok, nil
}

// Uses returns the current counter for a code
func (s *InMemoryDiscountStore) Uses(code string) int {
	d, err := s.InMemoryStore.Get(context.Background(), discount.NormalizeCode(code))
	if err != nil {
		return 0
	}
	return d.Uses
}

func copyDiscount(d *discount.Discount) *discount.Discount {
	c := *d
	return &c
}
