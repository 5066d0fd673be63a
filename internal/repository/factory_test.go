package repository

import (
	"testing"

	"github.com/emberwick/storefront/internal/config"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/postgres"
	"github.com/emberwick/storefront/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackend_RejectsUnknownDriver(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Store.Driver = types.StoreDriver("mongo")

	_, err := NewBackend(cfg, logger.NewNopLogger(), nil)
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestNewBackend_SupabaseRequiresSettings(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Store.Driver = types.StoreDriverSupabase

	_, err := NewBackend(cfg, logger.NewNopLogger(), nil)
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestSupabaseBackendWiring(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Store.Driver = types.StoreDriverSupabase
	cfg.Supabase.BaseURL = "http://localhost:54321"
	cfg.Supabase.ServiceKey = "service-role-key"
	log := logger.NewNopLogger()

	b, err := NewBackend(cfg, log, nil)
	require.NoError(t, err)
	assert.Nil(t, b.DB)
	require.NotNil(t, b.Supabase)

	assert.IsType(t, postgres.NoTxClient{}, NewTxClient(b))
	assert.NotNil(t, NewDiscountRepository(b, log))
	assert.NotNil(t, NewOrderRepository(b, log))
	assert.NotNil(t, NewWebhookEventRepository(b, log))

	// closing a backend without a pool is a no-op
	b.Close()
}

func TestPostgresBackendWiring(t *testing.T) {
	b := &Backend{Driver: types.StoreDriverPostgres, DB: postgres.NewFromSqlx(nil, logger.NewNopLogger(), nil, 0)}
	log := logger.NewNopLogger()

	assert.Same(t, b.DB, NewTxClient(b))
	assert.NotNil(t, NewDiscountRepository(b, log))
	assert.NotNil(t, NewOrderRepository(b, log))
	assert.NotNil(t, NewWebhookEventRepository(b, log))
}
