package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/emberwick/storefront/internal/config"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/sentry"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// IClient runs a unit of work atomically. Repositories pick up the
// transaction from the context passed to fn.
type IClient interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DB wraps sqlx.DB to provide transaction management
type DB struct {
	*sqlx.DB
	logger        *logger.Logger
	sentry        *sentry.Service
	slowThreshold time.Duration
}

// Querier interface defines all database operations
// Both *sqlx.DB and *sqlx.Tx implement these methods
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

var _ IClient = (*DB)(nil)

// NoTxClient runs units of work without a transaction, for stores that
// cannot span one across calls
type NoTxClient struct{}

func (NoTxClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// NewDB creates a new DB instance
func NewDB(cfg *config.Configuration, logger *logger.Logger, sentrySvc *sentry.Service) (*DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		return nil, err
	}

	if cfg.Postgres.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	}
	if cfg.Postgres.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	}
	if cfg.Postgres.ConnMaxLifetimeMinutes > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetimeMinutes) * time.Minute)
	}

	logger.Infow("connected to postgres",
		"host", cfg.Postgres.Host,
		"dbname", cfg.Postgres.DBName,
		"max_open_conns", cfg.Postgres.MaxOpenConns,
	)

	return NewFromSqlx(db, logger, sentrySvc, cfg.Postgres.SlowQueryThreshold), nil
}

// NewFromSqlx wraps an already opened connection, used by integration tests
func NewFromSqlx(db *sqlx.DB, logger *logger.Logger, sentrySvc *sentry.Service, slowThreshold time.Duration) *DB {
	return &DB{
		DB:            db,
		logger:        logger,
		sentry:        sentrySvc,
		slowThreshold: slowThreshold,
	}
}

// Close closes the database connection
func (db *DB) Close() {
	if err := db.DB.Close(); err != nil {
		db.logger.Errorw("error closing database", "error", err)
	}
}

// GetQuerier returns either the transaction from context or the base DB
func (db *DB) GetQuerier(ctx context.Context) Querier {
	if tx, ok := GetTx(ctx); ok {
		return NewTracedQuerier(tx.Tx, db.logger, db.sentry, tx.ID, db.slowThreshold)
	}
	return NewTracedQuerier(db.DB, db.logger, db.sentry, "", db.slowThreshold)
}

// NamedExecContext runs a named statement on the transaction in ctx, if any
func (db *DB) NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error) {
	return db.GetQuerier(ctx).NamedExecContext(ctx, query, arg)
}

// NamedQueryContext runs a named query on the transaction in ctx, if any
func (db *DB) NamedQueryContext(ctx context.Context, query string, arg interface{}) (*sqlx.Rows, error) {
	var ext sqlx.ExtContext = db.DB
	txID := ""
	if tx, ok := GetTx(ctx); ok {
		ext = tx.Tx
		txID = tx.ID
	}

	tracer := NewQueryTracer(ctx, db.logger, db.sentry, query, arg, txID, db.slowThreshold)
	rows, err := sqlx.NamedQueryContext(ctx, ext, query, arg)
	tracer.Done(err)
	return rows, err
}
