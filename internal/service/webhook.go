package service

import (
	"context"
	"errors"
	"time"

	"github.com/emberwick/storefront/internal/cache"
	"github.com/emberwick/storefront/internal/domain/order"
	"github.com/emberwick/storefront/internal/domain/webhookevent"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/idempotency"
	"github.com/emberwick/storefront/internal/integration/stripe"
	"github.com/emberwick/storefront/internal/types"
	"github.com/shopspring/decimal"
)

// errEventAlreadyProcessed rolls back a transition that lost the race to
// record the same event
var errEventAlreadyProcessed = errors.New("webhook event already processed")

type WebhookService interface {
	// HandlePaymentWebhook verifies the signature over the raw body and
	// reconciles the order the event refers to
	HandlePaymentWebhook(ctx context.Context, payload []byte, signature string) error

	// ProcessEvent applies a verified event. Unknown types, unmatched intents
	// and replays all succeed without changing anything.
	ProcessEvent(ctx context.Context, event *stripe.WebhookEvent) (*ReconcileResult, error)
}

// ReconcileResult reports what an event did
type ReconcileResult struct {
	Applied   bool
	Duplicate bool
	Order     *order.Order
}

// OrderNotification is the payload sent to order subscribers
type OrderNotification struct {
	OrderID         string              `json:"order_id"`
	OrderNumber     string              `json:"order_number"`
	PaymentIntentID string              `json:"payment_intent_id"`
	PaymentStatus   types.PaymentStatus `json:"payment_status"`
	Status          types.OrderStatus   `json:"status"`
	Total           decimal.Decimal     `json:"total"`
	Currency        string              `json:"currency"`
	CustomerEmail   string              `json:"customer_email,omitempty"`
	OccurredAt      time.Time           `json:"occurred_at"`
}

type webhookService struct {
	ServiceParams
}

func NewWebhookService(params ServiceParams) WebhookService {
	return &webhookService{ServiceParams: params}
}

func (s *webhookService) HandlePaymentWebhook(ctx context.Context, payload []byte, signature string) error {
	if signature == "" {
		return ierr.NewError("missing stripe signature header").
			WithHint("Missing Stripe-Signature header").
			Mark(ierr.ErrSignatureInvalid)
	}

	event, err := s.Gateway.ParseWebhookEvent(payload, signature)
	if err != nil {
		return err
	}

	s.Logger.Infow("received payment webhook",
		"event_id", event.ID,
		"event_type", event.Type,
		"payment_intent_id", event.PaymentIntentID,
		"livemode", event.Livemode,
	)
	s.Sentry.AddBreadcrumb("webhook", "payment event verified", map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	_, err = s.ProcessEvent(ctx, event)
	return err
}

func (s *webhookService) ProcessEvent(ctx context.Context, event *stripe.WebhookEvent) (*ReconcileResult, error) {
	transition, ok := order.TransitionFor(event.Type)
	if !ok {
		s.Logger.Debugw("ignoring unhandled payment event", "event", event.String())
		return &ReconcileResult{}, nil
	}
	if event.PaymentIntentID == "" {
		s.Logger.Warnw("payment event has no payment intent", "event", event.String())
		return &ReconcileResult{}, nil
	}

	cacheKey := cache.GenerateKey(cache.PrefixWebhookEvent, event.ID)
	if _, found := s.Cache.Get(ctx, cacheKey); found {
		s.Logger.Debugw("skipping cached duplicate event", "event", event.String())
		return &ReconcileResult{Duplicate: true}, nil
	}

	seen, err := s.WebhookEventRepo.Exists(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	if seen {
		s.Cache.Set(ctx, cacheKey, true, 0)
		s.Logger.Debugw("skipping duplicate event", "event", event.String())
		return &ReconcileResult{Duplicate: true}, nil
	}

	now := time.Now().UTC()
	result := &ReconcileResult{}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		updated, applied, err := s.OrderRepo.ApplyTransition(ctx, event.PaymentIntentID, transition, now)
		if err != nil {
			return err
		}
		result.Applied = applied
		result.Order = updated

		if applied && transition.MarksPaid() && updated.DiscountCode != nil && *updated.DiscountCode != "" {
			if err := s.redeemDiscount(ctx, updated); err != nil {
				return err
			}
		}

		inserted, err := s.WebhookEventRepo.MarkProcessed(ctx, &webhookevent.ProcessedEvent{
			EventID:         event.ID,
			EventType:       string(event.Type),
			PaymentIntentID: event.PaymentIntentID,
			ProcessedAt:     now,
		})
		if err != nil {
			return err
		}
		if !inserted {
			return errEventAlreadyProcessed
		}
		return nil
	})
	if errors.Is(err, errEventAlreadyProcessed) {
		s.Cache.Set(ctx, cacheKey, true, 0)
		s.Logger.Infow("event processed concurrently by another delivery", "event", event.String())
		return &ReconcileResult{Duplicate: true}, nil
	}
	if err != nil {
		s.Logger.Errorw("failed to reconcile payment event",
			"error", err,
			"event", event.String(),
			"payment_intent_id", event.PaymentIntentID,
		)
		s.Sentry.CaptureException(ctx, err)
		return nil, err
	}

	s.Cache.Set(ctx, cacheKey, true, 0)

	if !result.Applied {
		s.Logger.Infow("payment event left orders unchanged",
			"event", event.String(),
			"payment_intent_id", event.PaymentIntentID,
		)
		return result, nil
	}

	s.Logger.Infow("reconciled order",
		"event", event.String(),
		"order_id", result.Order.ID,
		"payment_status", result.Order.PaymentStatus,
		"status", result.Order.Status,
	)
	s.notify(ctx, transition, result.Order, now)
	return result, nil
}

// redeemDiscount counts one use of the order's code. The payment already
// went through, so a code exhausted in the meantime is only logged.
func (s *webhookService) redeemDiscount(ctx context.Context, o *order.Order) error {
	incremented, err := s.DiscountRepo.IncrementUses(ctx, *o.DiscountCode)
	if err != nil {
		return err
	}
	if !incremented {
		s.Logger.Warnw("discount code could not be redeemed, usage cap reached or code removed",
			"order_id", o.ID,
			"discount_code", *o.DiscountCode,
		)
	}
	return nil
}

func (s *webhookService) notify(ctx context.Context, t order.Transition, o *order.Order, at time.Time) {
	eventID := s.Idempotency.GenerateKey(idempotency.ScopeNotification, map[string]interface{}{
		"order_id":       o.ID,
		"payment_status": o.PaymentStatus,
	})

	err := s.Notifier.SendMessage(ctx, t.Notification, eventID, &OrderNotification{
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		PaymentIntentID: o.PaymentIntentID,
		PaymentStatus:   o.PaymentStatus,
		Status:          o.Status,
		Total:           o.Total,
		Currency:        o.Currency,
		CustomerEmail:   o.CustomerEmail,
		OccurredAt:      at,
	})
	if err != nil {
		s.Logger.Warnw("failed to send order notification",
			"error", err,
			"order_id", o.ID,
			"notification", t.Notification,
		)
	}
}
