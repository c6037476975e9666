package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/policlinic/backoffice/internal/config"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/postgres"
	"github.com/policlinic/backoffice/migrations"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Print pending migration SQL without executing it")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host)
	db, err := postgres.NewDB(cfg, logger)
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	migrator := postgres.NewMigrator(db, migrations.Postgres, "postgres")

	if *dryRun {
		logger.Info("Dry run mode - printing pending migrations without executing")
		pending, err := migrator.Pending(ctx)
		if err != nil {
			logger.Fatalw("Failed to list pending migrations", "error", err)
		}
		for _, m := range pending {
			fmt.Printf("-- %s\n%s\n", m.Name, m.SQL)
		}
		return
	}

	logger.Info("Running database migrations...")
	applied, err := migrator.Up(ctx)
	if err != nil {
		logger.Fatalw("Failed to apply migrations", "error", err)
	}
	logger.Infow("Migration completed successfully", "applied", len(applied))
}
