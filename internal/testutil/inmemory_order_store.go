package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/emberwick/storefront/internal/domain/order"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/types"
	"github.com/samber/lo"
)

// InMemoryOrderStore implements order.Repository with the same conditional
// update semantics as the SQL store
type InMemoryOrderStore struct {
	*InMemoryStore[*order.Order]
	writes atomic.Int64
}

func NewInMemoryOrderStore() *InMemoryOrderStore {
	return &InMemoryOrderStore{
		InMemoryStore: NewInMemoryStore[*order.Order](),
	}
}

var _ order.Repository = (*InMemoryOrderStore)(nil)

func (s *InMemoryOrderStore) Create(ctx context.Context, o *order.Order) error {
	if _, dup := s.InMemoryStore.Find(ctx, byPaymentIntent(o.PaymentIntentID)); dup {
		return ierr.NewError("order already exists").
			WithHint("An order for this payment already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	if err := s.InMemoryStore.Create(ctx, o.ID, copyOrder(o)); err != nil {
		return err
	}
	s.writes.Add(1)
	return nil
}

func (s *InMemoryOrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	o, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Order %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyOrder(o), nil
}

func (s *InMemoryOrderStore) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*order.Order, error) {
	o, ok := s.InMemoryStore.Find(ctx, byPaymentIntent(paymentIntentID))
	if !ok {
		return nil, ierr.NewError("order not found").
			WithHint("Order not found").
			Mark(ierr.ErrNotFound)
	}
	return copyOrder(o), nil
}

func (s *InMemoryOrderStore) List(ctx context.Context, filter *types.OrderFilter) ([]*order.Order, error) {
	if filter == nil {
		filter = &types.OrderFilter{}
	}
	filter.Normalize()
	items := s.InMemoryStore.List(ctx, matchesOrderFilter(filter), newestFirst, filter.Offset, filter.Limit)
	return lo.Map(items, func(o *order.Order, _ int) *order.Order { return copyOrder(o) }), nil
}

func (s *InMemoryOrderStore) Count(ctx context.Context, filter *types.OrderFilter) (int, error) {
	if filter == nil {
		filter = &types.OrderFilter{}
	}
	return s.InMemoryStore.Count(ctx, matchesOrderFilter(filter)), nil
}

func (s *InMemoryOrderStore) ApplyTransition(ctx context.Context, paymentIntentID string, t order.Transition, at time.Time) (*order.Order, bool, error) {
	current, ok := s.InMemoryStore.Find(ctx, byPaymentIntent(paymentIntentID))
	if !ok {
		return nil, false, nil
	}

	updated, applied := s.InMemoryStore.Mutate(ctx, current.ID, func(o *order.Order) (*order.Order, bool) {
		if !t.Allows(o.PaymentStatus) {
			return o, false
		}
		next := copyOrder(o)
		next.PaymentStatus = t.PaymentStatus
		next.Status = t.Status
		next.UpdatedAt = at
		if t.MarksPaid() {
			next.PaidAt = lo.ToPtr(at)
		}
		return next, true
	})
	if !applied {
		return nil, false, nil
	}
	s.writes.Add(1)
	return copyOrder(updated), true, nil
}

func (s *InMemoryOrderStore) ListStalePending(ctx context.Context, olderThan, notBefore time.Time, limit int) ([]*order.Order, error) {
	items := s.InMemoryStore.List(ctx, func(_ context.Context, o *order.Order) bool {
		if o.PaymentStatus != types.PaymentStatusPending || !o.CreatedAt.Before(olderThan) {
			return false
		}
		return notBefore.IsZero() || o.CreatedAt.After(notBefore)
	}, func(a, b *order.Order) bool {
		return a.CreatedAt.Before(b.CreatedAt)
	}, 0, limit)
	return lo.Map(items, func(o *order.Order, _ int) *order.Order { return copyOrder(o) }), nil
}

// Writes counts successful creates and transitions
func (s *InMemoryOrderStore) Writes() int64 {
	return s.writes.Load()
}

// Clear resets all stored data
func (s *InMemoryOrderStore) Clear() {
	s.InMemoryStore.Clear()
	s.writes.Store(0)
}

func byPaymentIntent(paymentIntentID string) FilterFunc[*order.Order] {
	return func(_ context.Context, o *order.Order) bool {
		return o.PaymentIntentID == paymentIntentID
	}
}

func matchesOrderFilter(filter *types.OrderFilter) FilterFunc[*order.Order] {
	return func(_ context.Context, o *order.Order) bool {
		return filter.PaymentStatus == nil || o.PaymentStatus == *filter.PaymentStatus
	}
}

func newestFirst(a, b *order.Order) bool {
	return a.CreatedAt.After(b.CreatedAt)
}

func copyOrder(o *order.Order) *order.Order {
	c := *o
	return &c
}
