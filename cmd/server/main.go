package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/emberwick/storefront/internal/api"
	"github.com/emberwick/storefront/internal/api/cron"
	v1 "github.com/emberwick/storefront/internal/api/v1"
	"github.com/emberwick/storefront/internal/auth"
	"github.com/emberwick/storefront/internal/cache"
	"github.com/emberwick/storefront/internal/config"
	"github.com/emberwick/storefront/internal/idempotency"
	"github.com/emberwick/storefront/internal/integration/stripe"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/reconciler"
	"github.com/emberwick/storefront/internal/repository"
	"github.com/emberwick/storefront/internal/sentry"
	"github.com/emberwick/storefront/internal/service"
	"github.com/emberwick/storefront/internal/svix"
	"github.com/emberwick/storefront/internal/types"
	"github.com/emberwick/storefront/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	// A missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	// Initialize Fx application
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			cache.NewInMemoryCache,

			// Idempotency keys
			idempotency.NewGenerator,

			// Payment processor
			stripe.NewClient,
			provideGateway,

			// Order notifications
			svix.NewClient,
			provideNotifier,

			// Admin auth
			auth.NewProvider,
		),
	)

	// Monitoring and storage
	opts = append(opts,
		sentry.Module(),
		repository.Module(),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewDiscountService,
			service.NewCheckoutService,
			service.NewWebhookService,
			service.NewOrderService,
			service.NewAuthService,
			service.NewReconcileService,
		),
	)

	// API and background work
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			api.NewRouter,
			reconciler.NewWorker,
		),
		fx.Invoke(
			ensureNotificationApp,
			start,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideGateway(c *stripe.Client) stripe.Gateway {
	return c
}

func provideNotifier(c *svix.Client) service.OrderNotifier {
	return c
}

func provideHandlers(
	cfg *config.Configuration,
	logger *logger.Logger,
	checkoutService service.CheckoutService,
	discountService service.DiscountService,
	webhookService service.WebhookService,
	orderService service.OrderService,
	authService service.AuthService,
	reconcileService service.ReconcileService,
) api.Handlers {
	return api.Handlers{
		Health:        v1.NewHealthHandler(logger),
		Checkout:      v1.NewCheckoutHandler(checkoutService, discountService, logger),
		Webhook:       v1.NewWebhookHandler(webhookService, logger),
		Auth:          v1.NewAuthHandler(cfg, authService, logger),
		Order:         v1.NewOrderHandler(orderService, logger),
		CronReconcile: cron.NewReconcileCronHandler(logger, reconcileService),
	}
}

func ensureNotificationApp(lc fx.Lifecycle, client *svix.Client, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.EnsureApplication(ctx); err != nil {
				log.Errorw("failed to ensure svix application", "error", err)
			}
			return nil
		},
	})
}

func start(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	worker *reconciler.Worker,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		reconciler.RegisterHooks(lc, worker)
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	case types.ModeSweeper:
		reconciler.RegisterHooks(lc, worker)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server...", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}
