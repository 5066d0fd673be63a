package stripe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/emberwick/storefront/internal/config"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/sentry"
	"github.com/emberwick/storefront/internal/types"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Gateway is the payment processor as the checkout and reconciler see it
type Gateway interface {
	// IsConfigured reports whether API credentials are available
	IsConfigured() bool
	CreatePaymentIntent(ctx context.Context, req *CreatePaymentIntentRequest) (*PaymentIntent, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
	// ParseWebhookEvent verifies signature over the raw payload before
	// decoding anything from it
	ParseWebhookEvent(payload []byte, signature string) (*WebhookEvent, error)
}

// CreatePaymentIntentRequest carries an amount already converted to cents
type CreatePaymentIntentRequest struct {
	AmountCents    int64
	Currency       string
	ReceiptEmail   string
	Metadata       map[string]string
	IdempotencyKey string
}

// PaymentIntent is the subset of a Stripe payment intent the store uses
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       stripe.PaymentIntentStatus
	Metadata     map[string]string
}

// WebhookEvent is a verified event reduced to what reconciliation needs
type WebhookEvent struct {
	ID              string
	Type            types.PaymentEventType
	PaymentIntentID string
	Livemode        bool
}

// Client talks to Stripe with the secret key from configuration
type Client struct {
	cfg    config.StripeConfig
	api    *stripe.Client
	logger *logger.Logger
	sentry *sentry.Service
}

var _ Gateway = (*Client)(nil)

// NewClient creates the Stripe gateway. Without a secret key the client is
// returned unconfigured so the server can still start and answer checkout
// requests with a clear error.
func NewClient(cfg *config.Configuration, logger *logger.Logger, sentrySvc *sentry.Service) *Client {
	c := &Client{
		cfg:    cfg.Stripe,
		logger: logger,
		sentry: sentrySvc,
	}
	if cfg.Stripe.IsConfigured() {
		c.api = stripe.NewClient(cfg.Stripe.SecretKey, nil)
	} else {
		logger.Warnw("stripe secret key not configured, payments are disabled")
	}
	if cfg.Stripe.WebhookSecret == "" {
		logger.Warnw("stripe webhook secret not configured, webhooks will be rejected")
	}
	return c
}

func (c *Client) IsConfigured() bool {
	return c.api != nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

func (c *Client) CreatePaymentIntent(ctx context.Context, req *CreatePaymentIntentRequest) (*PaymentIntent, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured()
	}

	span, ctx := c.sentry.StartStripeSpan(ctx, "stripe.payment_intent.create", map[string]interface{}{
		"amount":   req.AmountCents,
		"currency": req.Currency,
	})
	if span != nil {
		defer span.Finish()
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: req.Metadata,
	}
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(req.ReceiptEmail)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := c.api.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		c.logger.Errorw("failed to create stripe payment intent",
			"error", err,
			"amount", req.AmountCents,
			"currency", req.Currency,
		)
		return nil, ierr.WithError(err).
			WithHint("Unable to start payment, please try again").
			WithReportableDetails(stripeErrorDetails(err)).
			Mark(ierr.ErrPaymentProcessor)
	}

	c.logger.Infow("created stripe payment intent",
		"payment_intent_id", pi.ID,
		"amount", pi.Amount,
		"currency", pi.Currency,
	)
	return toPaymentIntent(pi), nil
}

func (c *Client) RetrievePaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured()
	}

	span, ctx := c.sentry.StartStripeSpan(ctx, "stripe.payment_intent.retrieve", map[string]interface{}{
		"payment_intent_id": id,
	})
	if span != nil {
		defer span.Finish()
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	pi, err := c.api.V1PaymentIntents.Retrieve(ctx, id, nil)
	if err != nil {
		c.logger.Errorw("failed to get stripe payment intent",
			"error", err,
			"payment_intent_id", id,
		)
		return nil, ierr.WithError(err).
			WithHint("Unable to retrieve payment intent").
			WithReportableDetails(map[string]any{
				"payment_intent_id": id,
			}).
			Mark(ierr.ErrPaymentProcessor)
	}
	return toPaymentIntent(pi), nil
}

func (c *Client) ParseWebhookEvent(payload []byte, signature string) (*WebhookEvent, error) {
	if c.cfg.WebhookSecret == "" {
		return nil, ierr.NewError("webhook secret not configured").
			WithHint("Webhook signature could not be verified").
			Mark(ierr.ErrSignatureInvalid)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, c.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		c.logger.Warnw("stripe webhook verification failed", "error", err)
		return nil, ierr.WithError(err).
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrSignatureInvalid)
	}

	return toWebhookEvent(&event)
}

func toWebhookEvent(event *stripe.Event) (*WebhookEvent, error) {
	out := &WebhookEvent{
		ID:       event.ID,
		Type:     types.PaymentEventType(event.Type),
		Livemode: event.Livemode,
	}
	if event.Data == nil {
		return out, nil
	}

	switch out.Type {
	case types.PaymentEventIntentSucceeded, types.PaymentEventIntentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Invalid payment intent in webhook payload").
				Mark(ierr.ErrValidation)
		}
		out.PaymentIntentID = pi.ID
	case types.PaymentEventChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Invalid charge in webhook payload").
				Mark(ierr.ErrValidation)
		}
		if ch.PaymentIntent != nil {
			out.PaymentIntentID = ch.PaymentIntent.ID
		}
	}
	return out, nil
}

func toPaymentIntent(pi *stripe.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       pi.Status,
		Metadata:     pi.Metadata,
	}
}

func stripeErrorDetails(err error) map[string]any {
	details := map[string]any{}
	if stripeErr, ok := err.(*stripe.Error); ok {
		details["stripe_error_type"] = string(stripeErr.Type)
		details["stripe_error_code"] = string(stripeErr.Code)
		details["stripe_request_id"] = stripeErr.RequestID
	}
	return details
}

// ErrNotConfigured is returned by every call when no secret key is set
func ErrNotConfigured() error {
	return ierr.NewError("stripe secret key not configured").
		WithHint("Payment system unavailable").
		Mark(ierr.ErrServiceUnavailable)
}

// EventForStatus maps a payment intent status read from the API onto the
// webhook event that would have reported it. Statuses that are not final
// return false.
func EventForStatus(status stripe.PaymentIntentStatus) (types.PaymentEventType, bool) {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return types.PaymentEventIntentSucceeded, true
	case stripe.PaymentIntentStatusCanceled:
		return types.PaymentEventIntentFailed, true
	default:
		return "", false
	}
}

// String keeps log lines short
func (e *WebhookEvent) String() string {
	return fmt.Sprintf("%s(%s)", e.Type, e.ID)
}
