package supabase

import (
	"context"

	"github.com/emberwick/storefront/internal/domain/webhookevent"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/logger"
	supa "github.com/nedpals/supabase-go"
)

type webhookEventRepository struct {
	client *supa.Client
	logger *logger.Logger
}

// NewWebhookEventRepository creates the processed event ledger over PostgREST
func NewWebhookEventRepository(client *supa.Client, logger *logger.Logger) webhookevent.Repository {
	return &webhookEventRepository{
		client: client,
		logger: logger,
	}
}

func (r *webhookEventRepository) Exists(ctx context.Context, eventID string) (bool, error) {
	var rows []webhookevent.ProcessedEvent
	err := r.client.DB.From(tableProcessedEvents).
		Select("event_id").
		Eq("event_id", eventID).
		ExecuteWithContext(ctx, &rows)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to check webhook event").
			Mark(ierr.ErrDatabase)
	}
	return len(rows) > 0, nil
}

func (r *webhookEventRepository) MarkProcessed(ctx context.Context, event *webhookevent.ProcessedEvent) (bool, error) {
	var created []webhookevent.ProcessedEvent
	err := r.client.DB.From(tableProcessedEvents).
		Insert(event).
		ExecuteWithContext(ctx, &created)
	if err != nil {
		if isDuplicate(err) {
			return false, nil
		}
		return false, ierr.WithError(err).
			WithHint("Failed to record webhook event").
			WithReportableDetails(map[string]any{
				"event_id": event.EventID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return true, nil
}
