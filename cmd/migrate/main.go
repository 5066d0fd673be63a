package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/emberwick/storefront/internal/config"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/postgres"
	"github.com/emberwick/storefront/internal/types"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	// Parse command line flags
	direction := flag.String("direction", "up", "Migration direction: up or down")
	steps := flag.Int("steps", 1, "Number of migrations to roll back when direction is down")
	dir := flag.String("dir", "", "Directory holding migration files, defaults to the embedded migrations")
	flag.Parse()

	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if cfg.Store.Driver != types.StoreDriverPostgres {
		logger.Fatalw("Migrations only apply to the postgres store", "driver", cfg.Store.Driver)
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host, "dbname", cfg.Postgres.DBName)

	db, err := sqlx.Connect("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	migrationsDir := *dir
	if migrationsDir == "" {
		migrationsDir = cfg.Postgres.MigrationsPath
	}

	migrator, err := postgres.NewMigrator(db.DB, migrationsDir, logger)
	if err != nil {
		logger.Fatalw("Failed to create migrator", "error", err)
	}

	switch *direction {
	case "up":
		logger.Info("Running database migrations...")
		err = migrator.Up()
	case "down":
		logger.Infow("Rolling back database migrations...", "steps", *steps)
		err = migrator.Down(*steps)
	default:
		logger.Fatalw("Unknown migration direction", "direction", *direction)
	}
	if err != nil {
		logger.Fatalw("Migration failed", "error", err)
	}

	fmt.Println("Migration process completed")
}
