package supabase

import (
	"context"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/emberwick/storefront/internal/domain/discount"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/logger"
	supa "github.com/nedpals/supabase-go"
)

// maxIncrementAttempts bounds the optimistic retry loop in IncrementUses
const maxIncrementAttempts = 5

type discountRepository struct {
	client  *supa.Client
	logger  *logger.Logger
	backOff func() backoff.BackOff
}

// NewDiscountRepository creates a discount code repository over PostgREST
func NewDiscountRepository(client *supa.Client, logger *logger.Logger) discount.Repository {
	return &discountRepository{
		client: client,
		logger: logger,
		backOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

func (r *discountRepository) GetActiveByCode(ctx context.Context, code string) (*discount.Discount, error) {
	var rows []discount.Discount
	err := r.client.DB.From(tableDiscountCodes).
		Select("*").
		Eq("code", discount.NormalizeCode(code)).
		Eq("active", "true").
		ExecuteWithContext(ctx, &rows)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to look up discount code").
			Mark(ierr.ErrDatabase)
	}

	if len(rows) == 0 {
		return nil, ierr.NewError("discount code not found").
			WithHint("Invalid discount code").
			Mark(ierr.ErrNotFound)
	}
	return &rows[0], nil
}

// IncrementUses has no server-side conditional increment over PostgREST, so
// it reads the counter and updates only while uses still holds the value that
// was read. A lost race retries with backoff.
func (r *discountRepository) IncrementUses(ctx context.Context, code string) (bool, error) {
	normalized := discount.NormalizeCode(code)

	op := func() (bool, error) {
		d, err := r.GetActiveByCode(ctx, normalized)
		if err != nil {
			if ierr.IsNotFound(err) {
				return false, backoff.Permanent(err)
			}
			return false, err
		}
		if d.IsExhausted() {
			return false, nil
		}

		var updated []discount.Discount
		err = r.client.DB.From(tableDiscountCodes).
			Update(map[string]interface{}{
				"uses":       d.Uses + 1,
				"updated_at": time.Now().UTC(),
			}).
			Eq("id", d.ID).
			Eq("uses", strconv.Itoa(d.Uses)).
			ExecuteWithContext(ctx, &updated)
		if err != nil {
			return false, backoff.Permanent(ierr.WithError(err).
				WithHint("Failed to record discount code use").
				Mark(ierr.ErrDatabase))
		}
		if len(updated) == 0 {
			return false, ierr.NewError("discount code uses changed concurrently").
				Mark(ierr.ErrInvalidOperation)
		}
		return true, nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(r.backOff(), maxIncrementAttempts-1),
		ctx,
	)

	applied, err := backoff.RetryNotifyWithData(op, policy, func(err error, wait time.Duration) {
		r.logger.Debugw("retrying discount code increment",
			"code", normalized,
			"wait", wait,
			"error", err,
		)
	})
	if err != nil {
		if ierr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return applied, nil
}
