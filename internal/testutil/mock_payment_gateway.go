package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/emberwick/storefront/internal/config"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/integration/stripe"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/types"
	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// TestWebhookSecret signs payloads accepted by MockPaymentGateway
const TestWebhookSecret = "whsec_storefront_test"

// MockPaymentGateway keeps payment intents in memory. Webhook payloads are
// verified with the real signature scheme against TestWebhookSecret.
type MockPaymentGateway struct {
	mu          sync.Mutex
	configured  bool
	parser      *stripe.Client
	intents     map[string]*stripe.PaymentIntent
	byKey       map[string]keyedCreate
	requests    []*stripe.CreatePaymentIntentRequest
	createErr   error
	retrieveErr error
}

var _ stripe.Gateway = (*MockPaymentGateway)(nil)

// keyedCreate is the first create call seen for an idempotency key
type keyedCreate struct {
	intentID string
	req      *stripe.CreatePaymentIntentRequest
}

// sameParams reports whether two create calls would be accepted under one
// idempotency key, Stripe rejects a reused key when any parameter differs
func sameParams(a, b *stripe.CreatePaymentIntentRequest) bool {
	return a.AmountCents == b.AmountCents &&
		a.Currency == b.Currency &&
		a.ReceiptEmail == b.ReceiptEmail &&
		maps.Equal(a.Metadata, b.Metadata)
}

func NewMockPaymentGateway() *MockPaymentGateway {
	cfg := config.GetDefaultConfig()
	cfg.Stripe.SecretKey = ""
	cfg.Stripe.WebhookSecret = TestWebhookSecret

	return &MockPaymentGateway{
		configured: true,
		parser:     stripe.NewClient(cfg, logger.NewNopLogger(), nil),
		intents:    make(map[string]*stripe.PaymentIntent),
		byKey:      make(map[string]keyedCreate),
	}
}

// SetConfigured toggles whether the gateway reports API credentials
func (g *MockPaymentGateway) SetConfigured(configured bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.configured = configured
}

// FailCreate makes the next CreatePaymentIntent calls return err
func (g *MockPaymentGateway) FailCreate(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createErr = err
}

// FailRetrieve makes RetrievePaymentIntent calls return err
func (g *MockPaymentGateway) FailRetrieve(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.retrieveErr = err
}

func (g *MockPaymentGateway) IsConfigured() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.configured
}

func (g *MockPaymentGateway) CreatePaymentIntent(ctx context.Context, req *stripe.CreatePaymentIntentRequest) (*stripe.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.configured {
		return nil, stripe.ErrNotConfigured()
	}
	g.requests = append(g.requests, req)
	if g.createErr != nil {
		return nil, ierr.WithError(g.createErr).
			WithHint("Unable to start payment, please try again").
			Mark(ierr.ErrPaymentProcessor)
	}

	if req.IdempotencyKey != "" {
		if prior, ok := g.byKey[req.IdempotencyKey]; ok {
			if !sameParams(prior.req, req) {
				return nil, ierr.NewError("idempotency key reused with different parameters").
					WithHint("Unable to start payment, please try again").
					Mark(ierr.ErrPaymentProcessor)
			}
			pi := *g.intents[prior.intentID]
			return &pi, nil
		}
	}

	id := "pi_" + types.GenerateUUID()
	pi := &stripe.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret_" + types.GenerateUUID(),
		Amount:       req.AmountCents,
		Currency:     req.Currency,
		Status:       stripego.PaymentIntentStatusRequiresPaymentMethod,
		Metadata:     req.Metadata,
	}
	g.intents[id] = pi
	if req.IdempotencyKey != "" {
		g.byKey[req.IdempotencyKey] = keyedCreate{intentID: id, req: req}
	}

	out := *pi
	return &out, nil
}

func (g *MockPaymentGateway) RetrievePaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.configured {
		return nil, stripe.ErrNotConfigured()
	}
	if g.retrieveErr != nil {
		return nil, ierr.WithError(g.retrieveErr).
			WithHint("Unable to retrieve payment intent").
			Mark(ierr.ErrPaymentProcessor)
	}

	pi, ok := g.intents[id]
	if !ok {
		return nil, ierr.NewError("no such payment intent").
			WithHintf("Payment intent %s not found", id).
			Mark(ierr.ErrPaymentProcessor)
	}
	out := *pi
	return &out, nil
}

func (g *MockPaymentGateway) ParseWebhookEvent(payload []byte, signature string) (*stripe.WebhookEvent, error) {
	return g.parser.ParseWebhookEvent(payload, signature)
}

// AddIntent registers an intent as if it had been created earlier
func (g *MockPaymentGateway) AddIntent(id string, status stripego.PaymentIntentStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[id] = &stripe.PaymentIntent{ID: id, ClientSecret: id + "_secret", Status: status}
}

// SetIntentStatus moves a stored intent to status
func (g *MockPaymentGateway) SetIntentStatus(id string, status stripego.PaymentIntentStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if pi, ok := g.intents[id]; ok {
		pi.Status = status
	}
}

// Requests returns the create calls seen so far
func (g *MockPaymentGateway) Requests() []*stripe.CreatePaymentIntentRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*stripe.CreatePaymentIntentRequest(nil), g.requests...)
}

// Reset drops intents, recorded calls and injected failures
func (g *MockPaymentGateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.configured = true
	g.intents = make(map[string]*stripe.PaymentIntent)
	g.byKey = make(map[string]keyedCreate)
	g.requests = nil
	g.createErr = nil
	g.retrieveErr = nil
}

// SignedWebhook builds a Stripe event payload for paymentIntentID and the
// Stripe-Signature header that verifies it against TestWebhookSecret
func SignedWebhook(eventID string, eventType types.PaymentEventType, paymentIntentID string) ([]byte, string) {
	object := map[string]interface{}{
		"id":     paymentIntentID,
		"object": "payment_intent",
	}
	if eventType == types.PaymentEventChargeRefunded {
		object = map[string]interface{}{
			"id":             "ch_" + paymentIntentID,
			"object":         "charge",
			"payment_intent": paymentIntentID,
		}
	}

	payload, err := json.Marshal(map[string]interface{}{
		"id":          eventID,
		"object":      "event",
		"type":        string(eventType),
		"api_version": stripego.APIVersion,
		"created":     time.Now().Unix(),
		"livemode":    false,
		"data":        map[string]interface{}{"object": object},
	})
	if err != nil {
		panic(fmt.Sprintf("marshal webhook payload: %v", err))
	}
	return payload, SignPayload(payload)
}

// SignPayload returns a Stripe-Signature header for payload
func SignPayload(payload []byte) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    TestWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Header
}
