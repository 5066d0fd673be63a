package postgres

import (
	"context"

	"github.com/emberwick/storefront/internal/domain/webhookevent"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/postgres"
)

type webhookEventRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewWebhookEventRepository creates the processed event ledger on postgres
func NewWebhookEventRepository(db *postgres.DB, logger *logger.Logger) webhookevent.Repository {
	return &webhookEventRepository{
		db:     db,
		logger: logger,
	}
}

func (r *webhookEventRepository) Exists(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := r.db.GetQuerier(ctx).GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM processed_webhook_events WHERE event_id = $1)`, eventID)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to check webhook event").
			Mark(ierr.ErrDatabase)
	}
	return exists, nil
}

func (r *webhookEventRepository) MarkProcessed(ctx context.Context, event *webhookevent.ProcessedEvent) (bool, error) {
	span := StartRepositorySpan(ctx, "webhook_event", "mark_processed", map[string]interface{}{
		"event_id": event.EventID,
	})
	defer FinishSpan(span)

	query := `
		INSERT INTO processed_webhook_events (event_id, event_type, payment_intent_id, processed_at)
		VALUES (:event_id, :event_type, :payment_intent_id, :processed_at)
		ON CONFLICT (event_id) DO NOTHING`

	result, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		SetSpanError(span, err)
		return false, ierr.WithError(err).
			WithHint("Failed to record webhook event").
			WithReportableDetails(map[string]any{
				"event_id": event.EventID,
			}).
			Mark(ierr.ErrDatabase)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to record webhook event").
			Mark(ierr.ErrDatabase)
	}
	return affected > 0, nil
}
