package service

import (
	"context"
	"time"

	"github.com/emberwick/storefront/internal/api/dto"
	"github.com/emberwick/storefront/internal/domain/discount"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/shopspring/decimal"
)

type DiscountService interface {
	ValidateDiscount(ctx context.Context, req *dto.ValidateDiscountRequest) (*dto.ValidateDiscountResponse, error)

	// Evaluate checks code against subtotal. Unknown and inactive codes come
	// back as an invalid evaluation, only storage failures are errors.
	Evaluate(ctx context.Context, code string, subtotal decimal.Decimal) (discount.Evaluation, error)
}

type discountService struct {
	ServiceParams
}

func NewDiscountService(params ServiceParams) DiscountService {
	return &discountService{ServiceParams: params}
}

func (s *discountService) ValidateDiscount(ctx context.Context, req *dto.ValidateDiscountRequest) (*dto.ValidateDiscountResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	eval, err := s.Evaluate(ctx, req.Code, req.Subtotal)
	if err != nil {
		return nil, err
	}

	return dto.NewValidateDiscountResponse(eval), nil
}

func (s *discountService) Evaluate(ctx context.Context, code string, subtotal decimal.Decimal) (discount.Evaluation, error) {
	normalized := discount.NormalizeCode(code)
	if normalized == "" {
		return discount.Invalid(discount.MessageCodeRequired), nil
	}

	d, err := s.DiscountRepo.GetActiveByCode(ctx, normalized)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Debugw("discount code not found or inactive", "code", normalized)
			return discount.Invalid(discount.MessageInvalidCode), nil
		}
		return discount.Evaluation{}, err
	}

	eval := d.Evaluate(subtotal, time.Now().UTC())
	if !eval.Valid {
		s.Logger.Debugw("discount code rejected",
			"code", normalized,
			"reason", eval.Reason,
			"subtotal", subtotal,
		)
	}
	return eval, nil
}
