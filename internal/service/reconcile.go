package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/emberwick/storefront/internal/domain/order"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/integration/stripe"
	"github.com/sourcegraph/conc/pool"
)

const (
	defaultSweepConcurrency = 4
	defaultSweepBatchSize   = 100
	defaultStaleAfter       = 30 * time.Minute
	maxRetrieveAttempts     = 3
)

// ReconcileService catches orders whose webhook never arrived by asking the
// payment processor for the intent status directly
type ReconcileService interface {
	SweepStalePending(ctx context.Context) (*SweepResult, error)
}

// SweepResult summarises one sweep
type SweepResult struct {
	Checked int `json:"checked"`
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type reconcileService struct {
	ServiceParams
	webhookService WebhookService
}

func NewReconcileService(params ServiceParams, webhookService WebhookService) ReconcileService {
	return &reconcileService{
		ServiceParams:  params,
		webhookService: webhookService,
	}
}

func (s *reconcileService) SweepStalePending(ctx context.Context) (*SweepResult, error) {
	if !s.Gateway.IsConfigured() {
		return nil, stripe.ErrNotConfigured()
	}

	cfg := s.Config.Reconciler
	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultSweepConcurrency
	}

	now := time.Now().UTC()
	var notBefore time.Time
	if cfg.MaxAge > 0 {
		notBefore = now.Add(-cfg.MaxAge)
	}

	orders, err := s.OrderRepo.ListStalePending(ctx, now.Add(-staleAfter), notBefore, batchSize)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return &SweepResult{}, nil
	}

	s.Logger.Infow("sweeping stale pending orders", "count", len(orders))

	var applied, skipped, failed atomic.Int64
	p := pool.New().WithMaxGoroutines(concurrency).WithContext(ctx)
	for _, o := range orders {
		p.Go(func(ctx context.Context) error {
			changed, err := s.reconcileOrder(ctx, o)
			switch {
			case err != nil:
				failed.Add(1)
				return err
			case changed:
				applied.Add(1)
			default:
				skipped.Add(1)
			}
			return nil
		})
	}
	err = p.Wait()

	result := &SweepResult{
		Checked: len(orders),
		Applied: int(applied.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
	}
	s.Logger.Infow("finished stale order sweep",
		"checked", result.Checked,
		"applied", result.Applied,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	if err != nil {
		return result, ierr.WithError(err).
			WithHintf("%d of %d stale orders could not be reconciled", result.Failed, result.Checked).
			Mark(ierr.ErrPaymentProcessor)
	}
	return result, nil
}

// reconcileOrder fetches the intent behind o and feeds its final status
// through the same transition path webhooks use
func (s *reconcileService) reconcileOrder(ctx context.Context, o *order.Order) (bool, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetrieveAttempts-1),
		ctx,
	)

	pi, err := backoff.RetryNotifyWithData(func() (*stripe.PaymentIntent, error) {
		pi, err := s.Gateway.RetrievePaymentIntent(ctx, o.PaymentIntentID)
		if ierr.IsServiceUnavailable(err) {
			return nil, backoff.Permanent(err)
		}
		return pi, err
	}, policy, func(err error, wait time.Duration) {
		s.Logger.Debugw("retrying payment intent lookup",
			"error", err,
			"payment_intent_id", o.PaymentIntentID,
			"wait", wait,
		)
	})
	if err != nil {
		s.Logger.Warnw("failed to fetch payment intent for stale order",
			"error", err,
			"order_id", o.ID,
			"payment_intent_id", o.PaymentIntentID,
		)
		return false, err
	}

	eventType, final := stripe.EventForStatus(pi.Status)
	if !final {
		s.Logger.Debugw("payment intent still in flight",
			"order_id", o.ID,
			"payment_intent_id", pi.ID,
			"stripe_status", pi.Status,
		)
		return false, nil
	}

	res, err := s.webhookService.ProcessEvent(ctx, &stripe.WebhookEvent{
		ID:              sweepEventID(pi.ID, eventType.String()),
		Type:            eventType,
		PaymentIntentID: pi.ID,
	})
	if err != nil {
		return false, err
	}
	return res.Applied, nil
}

// sweepEventID names the synthetic event a sweep records in the ledger
func sweepEventID(paymentIntentID, eventType string) string {
	return fmt.Sprintf("sweep:%s:%s", paymentIntentID, eventType)
}
