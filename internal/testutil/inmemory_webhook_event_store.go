package testutil

import (
	"context"

	"github.com/emberwick/storefront/internal/domain/webhookevent"
)

// InMemoryWebhookEventStore implements webhookevent.Repository
type InMemoryWebhookEventStore struct {
	*InMemoryStore[*webhookevent.ProcessedEvent]
}

func NewInMemoryWebhookEventStore() *InMemoryWebhookEventStore {
	return &InMemoryWebhookEventStore{
		InMemoryStore: NewInMemoryStore[*webhookevent.ProcessedEvent](),
	}
}

var _ webhookevent.Repository = (*InMemoryWebhookEventStore)(nil)

func (s *InMemoryWebhookEventStore) Exists(ctx context.Context, eventID string) (bool, error) {
	_, err := s.InMemoryStore.Get(ctx, eventID)
	return err == nil, nil
}

func (s *InMemoryWebhookEventStore) MarkProcessed(ctx context.Context, event *webhookevent.ProcessedEvent) (bool, error) {
	if err := s.InMemoryStore.Create(ctx, event.EventID, event); err != nil {
		return false, nil
	}
	return true, nil
}
