package api

import (
	"github.com/emberwick/storefront/internal/api/cron"
	v1 "github.com/emberwick/storefront/internal/api/v1"
	"github.com/emberwick/storefront/internal/config"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/rest/middleware"
	"github.com/emberwick/storefront/internal/sentry"
	"github.com/emberwick/storefront/internal/service"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health   *v1.HealthHandler
	Checkout *v1.CheckoutHandler
	Webhook  *v1.WebhookHandler
	Auth     *v1.AuthHandler
	Order    *v1.OrderHandler

	CronReconcile *cron.ReconcileCronHandler
}

func NewRouter(
	handlers Handlers,
	cfg *config.Configuration,
	logger *logger.Logger,
	sentrySvc *sentry.Service,
	authService service.AuthService,
) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.SentryMiddleware(cfg),
		middleware.RequestIDMiddleware,
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(cfg),
		middleware.TimeoutMiddleware(cfg.Server.RequestTimeout),
		middleware.ErrorHandler(logger, sentrySvc),
	)

	router.GET("/health", handlers.Health.Health)

	checkout := router.Group("/checkout")
	{
		checkout.POST("/validate-discount", handlers.Checkout.ValidateDiscount)
		checkout.POST("/create-payment-intent", handlers.Checkout.CreatePaymentIntent)
	}

	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/payment", handlers.Webhook.HandlePaymentWebhook)
	}

	admin := router.Group("/admin")
	{
		admin.POST("/login", handlers.Auth.Login)
		admin.POST("/logout", handlers.Auth.Logout)
	}

	private := admin.Group("")
	private.Use(middleware.AdminAuthMiddleware(cfg, authService, logger))
	{
		private.GET("/me", handlers.Auth.Me)

		orders := private.Group("/orders")
		{
			orders.GET("", handlers.Order.ListOrders)
			orders.GET("/:id", handlers.Order.GetOrder)
		}

		cronGroup := private.Group("/cron")
		{
			cronGroup.POST("/reconcile", handlers.CronReconcile.SweepStalePending)
		}
	}

	return router
}
