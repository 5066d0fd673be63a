package repository

import (
	"context"

	"github.com/emberwick/storefront/internal/config"
	"github.com/emberwick/storefront/internal/domain/discount"
	"github.com/emberwick/storefront/internal/domain/order"
	"github.com/emberwick/storefront/internal/domain/webhookevent"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/postgres"
	postgresRepo "github.com/emberwick/storefront/internal/repository/postgres"
	supabaseRepo "github.com/emberwick/storefront/internal/repository/supabase"
	"github.com/emberwick/storefront/internal/sentry"
	"github.com/emberwick/storefront/internal/types"
	supa "github.com/nedpals/supabase-go"
	"go.uber.org/fx"
)

// Backend holds the connection for the configured store driver. Exactly one
// of DB and Supabase is set.
type Backend struct {
	Driver   types.StoreDriver
	DB       *postgres.DB
	Supabase *supa.Client
}

// Module provides the store backend and every repository to the fx graph
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewBackend,
			NewTxClient,
			NewDiscountRepository,
			NewOrderRepository,
			NewWebhookEventRepository,
		),
		fx.Invoke(func(lc fx.Lifecycle, b *Backend) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					b.Close()
					return nil
				},
			})
		}),
	)
}

// NewBackend connects to the store selected by store.driver
func NewBackend(cfg *config.Configuration, logger *logger.Logger, sentrySvc *sentry.Service) (*Backend, error) {
	switch cfg.Store.Driver {
	case types.StoreDriverPostgres:
		db, err := postgres.NewDB(cfg, logger, sentrySvc)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to connect to postgres").
				Mark(ierr.ErrDatabase)
		}
		return &Backend{Driver: cfg.Store.Driver, DB: db}, nil
	case types.StoreDriverSupabase:
		client, err := supabaseRepo.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		logger.Infow("using supabase store", "base_url", cfg.Supabase.BaseURL)
		return &Backend{Driver: cfg.Store.Driver, Supabase: client}, nil
	default:
		return nil, ierr.NewError("unknown store driver").
			WithHintf("Unsupported store driver %q", cfg.Store.Driver).
			Mark(ierr.ErrValidation)
	}
}

// Close releases the postgres pool, if one was opened
func (b *Backend) Close() {
	if b.DB != nil {
		b.DB.Close()
	}
}

// NewTxClient returns the transaction runner for the backend
func NewTxClient(b *Backend) postgres.IClient {
	if b.DB != nil {
		return b.DB
	}
	return postgres.NoTxClient{}
}

func NewDiscountRepository(b *Backend, logger *logger.Logger) discount.Repository {
	if b.Supabase != nil {
		return supabaseRepo.NewDiscountRepository(b.Supabase, logger)
	}
	return postgresRepo.NewDiscountRepository(b.DB, logger)
}

func NewOrderRepository(b *Backend, logger *logger.Logger) order.Repository {
	if b.Supabase != nil {
		return supabaseRepo.NewOrderRepository(b.Supabase, logger)
	}
	return postgresRepo.NewOrderRepository(b.DB, logger)
}

func NewWebhookEventRepository(b *Backend, logger *logger.Logger) webhookevent.Repository {
	if b.Supabase != nil {
		return supabaseRepo.NewWebhookEventRepository(b.Supabase, logger)
	}
	return postgresRepo.NewWebhookEventRepository(b.DB, logger)
}
