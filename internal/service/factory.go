package service

import (
	"context"

	"github.com/emberwick/storefront/internal/cache"
	"github.com/emberwick/storefront/internal/config"
	"github.com/emberwick/storefront/internal/domain/discount"
	"github.com/emberwick/storefront/internal/domain/order"
	"github.com/emberwick/storefront/internal/domain/webhookevent"
	"github.com/emberwick/storefront/internal/idempotency"
	"github.com/emberwick/storefront/internal/integration/stripe"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/postgres"
	"github.com/emberwick/storefront/internal/sentry"
	"github.com/emberwick/storefront/internal/svix"
)

// OrderNotifier publishes order lifecycle messages to subscribers
type OrderNotifier interface {
	SendMessage(ctx context.Context, eventType string, eventID string, payload interface{}) error
}

var _ OrderNotifier = (*svix.Client)(nil)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Cache  cache.Cache
	Sentry *sentry.Service

	// Repositories
	DiscountRepo     discount.Repository
	OrderRepo        order.Repository
	WebhookEventRepo webhookevent.Repository

	// External services
	Gateway     stripe.Gateway
	Notifier    OrderNotifier
	Idempotency *idempotency.Generator
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	cache cache.Cache,
	sentry *sentry.Service,
	discountRepo discount.Repository,
	orderRepo order.Repository,
	webhookEventRepo webhookevent.Repository,
	gateway stripe.Gateway,
	notifier OrderNotifier,
	idempotencyGenerator *idempotency.Generator,
) ServiceParams {
	return ServiceParams{
		Logger:           logger,
		Config:           config,
		DB:               db,
		Cache:            cache,
		Sentry:           sentry,
		DiscountRepo:     discountRepo,
		OrderRepo:        orderRepo,
		WebhookEventRepo: webhookEventRepo,
		Gateway:          gateway,
		Notifier:         notifier,
		Idempotency:      idempotencyGenerator,
	}
}
