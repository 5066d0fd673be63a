package testutil

import (
	"context"
	"sort"
	"sync"

	ierr "github.com/emberwick/storefront/internal/errors"
)

// FilterFunc is a generic filter function type
type FilterFunc[T any] func(ctx context.Context, item T) bool

// SortFunc is a generic sort function type
type SortFunc[T any] func(i, j T) bool

// InMemoryStore implements a generic in-memory store
type InMemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewInMemoryStore creates a new InMemoryStore
func NewInMemoryStore[T any]() *InMemoryStore[T] {
	return &InMemoryStore[T]{
		items: make(map[string]T),
	}
}

// Create adds a new item to the store
func (s *InMemoryStore[T]) Create(ctx context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; exists {
		return ierr.NewError("item already exists").
			WithHintf("Item %s already exists", id).
			Mark(ierr.ErrAlreadyExists)
	}

	s.items[id] = item
	return nil
}

// Get retrieves an item by ID
func (s *InMemoryStore[T]) Get(ctx context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if item, exists := s.items[id]; exists {
		return item, nil
	}

	var zero T
	return zero, ierr.NewError("item not found").
		WithHintf("Item %s not found", id).
		Mark(ierr.ErrNotFound)
}

// Find returns the first item accepted by filterFn
func (s *InMemoryStore[T]) Find(ctx context.Context, filterFn FilterFunc[T]) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.items {
		if filterFn(ctx, item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// List retrieves items accepted by filterFn, sorted by sortFn, then skips
// offset items and returns at most limit. A limit of zero means no limit.
func (s *InMemoryStore[T]) List(ctx context.Context, filterFn FilterFunc[T], sortFn SortFunc[T], offset, limit int) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]T, 0, len(s.items))
	for _, item := range s.items {
		if filterFn == nil || filterFn(ctx, item) {
			result = append(result, item)
		}
	}

	if sortFn != nil {
		sort.Slice(result, func(i, j int) bool {
			return sortFn(result[i], result[j])
		})
	}

	if offset >= len(result) {
		return []T{}
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result
}

// Count returns the total number of items matching the filter
func (s *InMemoryStore[T]) Count(ctx context.Context, filterFn FilterFunc[T]) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, item := range s.items {
		if filterFn == nil || filterFn(ctx, item) {
			count++
		}
	}
	return count
}

// Update replaces an existing item
func (s *InMemoryStore[T]) Update(ctx context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return ierr.NewError("item not found").
			WithHintf("Item %s not found", id).
			Mark(ierr.ErrNotFound)
	}

	s.items[id] = item
	return nil
}

// Mutate runs fn on the item under the write lock and stores the result when
// fn reports a change. It is the in-memory form of a conditional update.
func (s *InMemoryStore[T]) Mutate(ctx context.Context, id string, fn func(item T) (T, bool)) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	item, exists := s.items[id]
	if !exists {
		return zero, false
	}
	next, changed := fn(item)
	if !changed {
		return zero, false
	}
	s.items[id] = next
	return next, true
}

// Delete removes an item from the store
func (s *InMemoryStore[T]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return ierr.NewError("item not found").
			WithHintf("Item %s not found", id).
			Mark(ierr.ErrNotFound)
	}

	delete(s.items, id)
	return nil
}

// Clear removes all items from the store
func (s *InMemoryStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
}
