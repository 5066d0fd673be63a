package sentry

import (
	"context"
	"time"

	"github.com/emberwick/storefront/internal/config"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/getsentry/sentry-go"
	"go.uber.org/fx"
)

type Service struct {
	cfg    *config.Configuration
	logger *logger.Logger
}

// Module provides fx options for Sentry
func Module() fx.Option {
	return fx.Options(
		fx.Provide(NewSentryService),
		fx.Invoke(RegisterHooks),
	)
}

// RegisterHooks initializes the sentry client on start and flushes on stop
func RegisterHooks(lc fx.Lifecycle, svc *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !svc.cfg.Sentry.Enabled {
				svc.logger.Info("Sentry is disabled")
				return nil
			}

			err := sentry.Init(sentry.ClientOptions{
				Dsn:              svc.cfg.Sentry.DSN,
				Environment:      svc.cfg.Sentry.Environment,
				EnableTracing:    true,
				TracesSampleRate: svc.cfg.Sentry.SampleRate,
				TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
					if ctx.Span.Name == "GET /health" {
						return 0.0
					}
					return svc.cfg.Sentry.SampleRate
				}),
			})
			if err != nil {
				svc.logger.Errorw("Failed to initialize Sentry", "error", err)
				return err
			}
			svc.logger.Infow("Sentry initialized successfully",
				"environment", svc.cfg.Sentry.Environment,
				"sample_rate", svc.cfg.Sentry.SampleRate,
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if svc.cfg.Sentry.Enabled {
				svc.logger.Info("Flushing Sentry events before shutdown")
				sentry.Flush(2 * time.Second)
			}
			return nil
		},
	})
}

// NewSentryService creates a new Sentry service
func NewSentryService(cfg *config.Configuration, logger *logger.Logger) *Service {
	return &Service{
		cfg:    cfg,
		logger: logger,
	}
}

// IsEnabled reports whether events are being sent
func (s *Service) IsEnabled() bool {
	return s != nil && s.cfg.Sentry.Enabled
}

// CaptureException captures an error in Sentry, preferring the request hub
// when one is attached to ctx
func (s *Service) CaptureException(ctx context.Context, err error) {
	if !s.IsEnabled() || err == nil {
		return
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

// AddBreadcrumb adds a breadcrumb to the current scope
func (s *Service) AddBreadcrumb(category, message string, data map[string]interface{}) {
	if !s.IsEnabled() {
		return
	}
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Category: category,
		Message:  message,
		Level:    sentry.LevelInfo,
		Data:     data,
	})
}

// StartDBSpan starts a new database span in the current transaction
func (s *Service) StartDBSpan(ctx context.Context, operation string, params map[string]interface{}) (*sentry.Span, context.Context) {
	return s.startSpan(ctx, "db.postgres", operation, params)
}

// StartStripeSpan starts a span around a call to the payment processor
func (s *Service) StartStripeSpan(ctx context.Context, operation string, params map[string]interface{}) (*sentry.Span, context.Context) {
	return s.startSpan(ctx, "http.client.stripe", operation, params)
}

func (s *Service) startSpan(ctx context.Context, op, operation string, params map[string]interface{}) (*sentry.Span, context.Context) {
	if !s.IsEnabled() {
		return nil, ctx
	}

	span := sentry.StartSpan(ctx, operation)
	if span == nil {
		return nil, ctx
	}
	span.Description = operation
	span.Op = op
	for k, v := range params {
		span.SetData(k, v)
	}

	return span, span.Context()
}
