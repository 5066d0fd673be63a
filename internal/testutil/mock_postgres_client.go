package testutil

import (
	"context"
	"sync/atomic"

	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/postgres"
)

var _ postgres.IClient = (*MockPostgresClient)(nil) // Ensure MockPostgresClient implements IClient

// MockPostgresClient runs units of work directly against the in-memory stores
type MockPostgresClient struct {
	logger *logger.Logger
	txs    atomic.Int64
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) *MockPostgresClient {
	return &MockPostgresClient{
		logger: logger,
	}
}

// WithTx executes fn without a real transaction
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	c.txs.Add(1)
	return fn(ctx)
}

// TxCount reports how many units of work were started
func (c *MockPostgresClient) TxCount() int64 {
	return c.txs.Load()
}
