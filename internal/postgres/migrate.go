package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/migrations"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrator applies the schema migrations to a postgres database
type Migrator struct {
	m      *migrate.Migrate
	logger *logger.Logger
}

// NewMigrator reads migrations from dir on disk, or from the migrations
// embedded in the binary when dir is empty
func NewMigrator(db *sql.DB, dir string, log *logger.Logger) (*Migrator, error) {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return nil, fmt.Errorf("could not create migration driver: %w", err)
	}

	var m *migrate.Migrate
	if dir != "" {
		m, err = migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", dir), "postgres", driver)
	} else {
		src, srcErr := iofs.New(migrations.Postgres, "postgres")
		if srcErr != nil {
			return nil, fmt.Errorf("could not open embedded migrations: %w", srcErr)
		}
		m, err = migrate.NewWithInstance("iofs", src, "postgres", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("could not create migrate instance: %w", err)
	}

	return &Migrator{m: m, logger: log}, nil
}

// Up applies every pending migration
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	mg.logVersion()
	return nil
}

// Down rolls back the given number of migrations
func (mg *Migrator) Down(steps int) error {
	if err := mg.m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not roll back migrations: %w", err)
	}
	mg.logVersion()
	return nil
}

func (mg *Migrator) logVersion() {
	version, dirty, err := mg.m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		mg.logger.Warnw("could not read migration version", "error", err)
		return
	}
	mg.logger.Infow("database schema version", "version", version, "dirty", dirty)
}
