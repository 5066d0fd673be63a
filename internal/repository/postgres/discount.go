package postgres

import (
	"context"

	"github.com/emberwick/storefront/internal/domain/discount"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/postgres"
)

type discountRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewDiscountRepository creates a discount code repository on postgres
func NewDiscountRepository(db *postgres.DB, logger *logger.Logger) discount.Repository {
	return &discountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *discountRepository) GetActiveByCode(ctx context.Context, code string) (*discount.Discount, error) {
	span := StartRepositorySpan(ctx, "discount", "get_active_by_code", map[string]interface{}{
		"code": code,
	})
	defer FinishSpan(span)

	query := `
		SELECT id, code, type, value, active, max_uses, uses, min_purchase,
			starts_at, ends_at, created_at, updated_at
		FROM discount_codes
		WHERE UPPER(code) = :code
		AND active = TRUE`

	params := map[string]interface{}{
		"code": discount.NormalizeCode(code),
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to look up discount code").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			SetSpanError(span, err)
			return nil, ierr.WithError(err).
				WithHint("Failed to look up discount code").
				Mark(ierr.ErrDatabase)
		}
		return nil, ierr.NewError("discount code not found").
			WithHint("Invalid discount code").
			Mark(ierr.ErrNotFound)
	}

	var d discount.Discount
	if err := rows.StructScan(&d); err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to read discount code").
			Mark(ierr.ErrDatabase)
	}
	return &d, nil
}

func (r *discountRepository) IncrementUses(ctx context.Context, code string) (bool, error) {
	span := StartRepositorySpan(ctx, "discount", "increment_uses", map[string]interface{}{
		"code": code,
	})
	defer FinishSpan(span)

	query := `
		UPDATE discount_codes
		SET uses = uses + 1,
			updated_at = NOW()
		WHERE UPPER(code) = :code
		AND (max_uses IS NULL OR uses < max_uses)`

	params := map[string]interface{}{
		"code": discount.NormalizeCode(code),
	}

	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		SetSpanError(span, err)
		return false, ierr.WithError(err).
			WithHint("Failed to record discount code use").
			Mark(ierr.ErrDatabase)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to record discount code use").
			Mark(ierr.ErrDatabase)
	}

	r.logger.Debugw("incremented discount code uses",
		"code", code,
		"applied", affected > 0,
	)
	return affected > 0, nil
}
