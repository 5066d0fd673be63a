package supabase

import (
	"github.com/cockroachdb/errors"
	"github.com/emberwick/storefront/internal/config"
	ierr "github.com/emberwick/storefront/internal/errors"
	supa "github.com/nedpals/supabase-go"
	postgrest "github.com/nedpals/supabase-go/postgrest/pkg"
)

// pgUniqueViolation is the Postgres SQLSTATE PostgREST passes through for a
// unique constraint conflict
const pgUniqueViolation = "23505"

const (
	tableDiscountCodes   = "discount_codes"
	tableOrders          = "orders"
	tableProcessedEvents = "processed_webhook_events"
)

// NewClient creates a PostgREST client authenticated with the service key
func NewClient(cfg *config.Configuration) (*supa.Client, error) {
	if cfg.Supabase.BaseURL == "" || cfg.Supabase.ServiceKey == "" {
		return nil, ierr.NewError("supabase is not configured").
			WithHint("Supabase base URL and service key are required").
			Mark(ierr.ErrValidation)
	}

	client := supa.CreateClient(cfg.Supabase.BaseURL, cfg.Supabase.ServiceKey)
	if client == nil {
		return nil, ierr.NewError("failed to create supabase client").
			Mark(ierr.ErrSystem)
	}
	return client, nil
}

func isDuplicate(err error) bool {
	var reqErr *postgrest.RequestError
	return errors.As(err, &reqErr) && reqErr.Code == pgUniqueViolation
}
