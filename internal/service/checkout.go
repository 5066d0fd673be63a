package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/emberwick/storefront/internal/api/dto"
	"github.com/emberwick/storefront/internal/domain/checkout"
	"github.com/emberwick/storefront/internal/domain/discount"
	"github.com/emberwick/storefront/internal/domain/order"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/idempotency"
	"github.com/emberwick/storefront/internal/integration/stripe"
	"github.com/emberwick/storefront/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// idempotencyWindow is how long a resubmitted identical cart reuses the
// same payment intent
const idempotencyWindow = 10 * time.Minute

type CheckoutService interface {
	// CheckAvailable fails when the payment processor has no credentials
	CheckAvailable() error
	CreatePaymentIntent(ctx context.Context, req *dto.CreatePaymentIntentRequest) (*dto.CreatePaymentIntentResponse, error)
}

type checkoutService struct {
	ServiceParams
	discountService DiscountService
	calculator      *checkout.Calculator
}

func NewCheckoutService(params ServiceParams, discountService DiscountService) CheckoutService {
	return &checkoutService{
		ServiceParams:   params,
		discountService: discountService,
		calculator:      checkout.NewCalculator(params.Config.Checkout.TaxRateDecimal()),
	}
}

func (s *checkoutService) CheckAvailable() error {
	if !s.Gateway.IsConfigured() {
		s.Logger.Errorw("payment intent requested but stripe is not configured")
		return stripe.ErrNotConfigured()
	}
	return nil
}

func (s *checkoutService) CreatePaymentIntent(ctx context.Context, req *dto.CreatePaymentIntentRequest) (*dto.CreatePaymentIntentResponse, error) {
	if err := s.CheckAvailable(); err != nil {
		return nil, err
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	shipping := req.ShippingCost
	discountValue := decimal.Zero
	var discountCode *string

	if req.HasDiscountCode() {
		subtotal := s.calculator.Compute(req.Items, decimal.Zero, decimal.Zero).Subtotal
		eval, err := s.discountService.Evaluate(ctx, req.DiscountCode, subtotal)
		if err != nil {
			return nil, err
		}
		if !eval.Valid {
			return nil, ierr.NewError("discount code rejected at checkout").
				WithHint(eval.Reason).
				WithReportableDetails(map[string]any{
					"discount_code": discount.NormalizeCode(req.DiscountCode),
				}).
				Mark(ierr.ErrValidation)
		}

		if eval.IsFreeShipping() {
			shipping = decimal.Zero
		} else {
			discountValue = eval.DiscountValue
		}
		if !req.DiscountAmount.IsZero() && !req.DiscountAmount.Equal(discountValue) {
			s.Logger.Warnw("client discount amount differs from server evaluation",
				"discount_code", eval.Code,
				"client_amount", req.DiscountAmount,
				"server_amount", discountValue,
			)
		}
		discountCode = lo.ToPtr(eval.Code)
	} else if req.DiscountAmount.IsPositive() {
		return nil, ierr.NewError("discount amount without discount code").
			WithHint("A discount amount requires a discount code").
			Mark(ierr.ErrValidation)
	}

	totals := s.calculator.Compute(req.Items, shipping, discountValue)
	amountCents := types.ToMinorUnits(totals.Total)
	if amountCents <= 0 {
		return nil, ierr.NewError("order total is zero").
			WithHint("Order total must be greater than zero").
			WithReportableDetails(map[string]any{
				"total": totals.Total.StringFixed(2),
			}).
			Mark(ierr.ErrValidation)
	}

	currency := s.Config.Stripe.GetCurrency()
	now := time.Now().UTC()

	params := &stripe.CreatePaymentIntentRequest{
		AmountCents:  amountCents,
		Currency:     currency,
		ReceiptEmail: req.CustomerEmail,
		Metadata:     paymentMetadata(req, totals, discountCode),
	}
	params.IdempotencyKey = s.idempotencyKey(req, params, now)

	pi, err := s.Gateway.CreatePaymentIntent(ctx, params)
	if err != nil {
		return nil, err
	}

	resp := &dto.CreatePaymentIntentResponse{
		ClientSecret:    pi.ClientSecret,
		PaymentIntentID: pi.ID,
		Amount:          amountCents,
	}

	o := &order.Order{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER),
		OrderNumber:     types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_ORDER),
		PaymentIntentID: pi.ID,
		PaymentStatus:   types.PaymentStatusPending,
		Status:          types.OrderStatusPending,
		CustomerEmail:   req.CustomerEmail,
		CustomerName:    req.CustomerName,
		ShippingAddress: req.ShippingAddress.ToAddress(),
		Items:           order.Items(req.Items),
		Subtotal:        totals.Subtotal,
		Shipping:        totals.Shipping,
		Discount:        totals.DiscountValue,
		DiscountCode:    discountCode,
		Tax:             totals.Tax,
		Total:           totals.Total,
		Currency:        currency,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	resp.OrderID = s.recordOrder(ctx, o)
	return resp, nil
}

// recordOrder persists the pending order and returns its id. The payment
// intent already exists, so failures are logged and the checkout goes on.
func (s *checkoutService) recordOrder(ctx context.Context, o *order.Order) string {
	err := s.OrderRepo.Create(ctx, o)
	if err == nil {
		s.Logger.Infow("created pending order",
			"order_id", o.ID,
			"order_number", o.OrderNumber,
			"payment_intent_id", o.PaymentIntentID,
			"total", o.Total,
		)
		return o.ID
	}

	if ierr.IsAlreadyExists(err) {
		// resubmitted cart, the idempotency key handed back the same intent
		existing, getErr := s.OrderRepo.GetByPaymentIntentID(ctx, o.PaymentIntentID)
		if getErr == nil {
			return existing.ID
		}
		err = getErr
	}

	s.Logger.Errorw("failed to record pending order",
		"error", err,
		"payment_intent_id", o.PaymentIntentID,
	)
	s.Sentry.CaptureException(ctx, err)
	return ""
}

func paymentMetadata(req *dto.CreatePaymentIntentRequest, totals checkout.Totals, discountCode *string) map[string]string {
	return map[string]string{
		"customer_email": req.CustomerEmail,
		"customer_name":  req.CustomerName,
		"item_count":     fmt.Sprintf("%d", totals.ItemCount),
		"subtotal":       totals.Subtotal.StringFixed(2),
		"shipping":       totals.Shipping.StringFixed(2),
		"tax":            totals.Tax.StringFixed(2),
		"discount":       totals.DiscountValue.StringFixed(2),
		"discount_code":  lo.FromPtr(discountCode),
	}
}

// idempotencyKey covers every parameter sent to Stripe plus the cart lines and
// shipping address
func (s *checkoutService) idempotencyKey(req *dto.CreatePaymentIntentRequest, params *stripe.CreatePaymentIntentRequest, now time.Time) string {
	lines := lo.Map(req.Items, func(item checkout.LineItem, _ int) string {
		return fmt.Sprintf("%s/%s/%s/%d", item.ProductID, item.VariantID, item.Price.String(), item.Quantity)
	})
	sort.Strings(lines)

	fields := map[string]interface{}{
		"items":         strings.Join(lines, ","),
		"address":       req.ShippingAddress.ToAddress(),
		"amount_cents":  params.AmountCents,
		"currency":      params.Currency,
		"receipt_email": params.ReceiptEmail,
		"window":        now.Truncate(idempotencyWindow).Unix(),
	}
	for k, v := range params.Metadata {
		fields["metadata."+k] = v
	}
	return s.Idempotency.GenerateKey(idempotency.ScopePayment, fields)
}
