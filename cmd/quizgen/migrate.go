package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/phrazzld/scry-quizgen/internal/config"
	"github.com/phrazzld/scry-quizgen/internal/platform/logger"
	"github.com/phrazzld/scry-quizgen/internal/platform/postgres"
)

// migrateCommand applies the embedded schema migrations to the configured
// postgres checkpoint database.
func migrateCommand(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a quizgen.yaml config file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Checkpoint.Backend != "postgres" {
		return fmt.Errorf("%w: migrate requires checkpoint.backend=postgres, got %q",
			errUsage, cfg.Checkpoint.Backend)
	}

	log, err := logger.Setup(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	db, err := postgres.Open(ctx, cfg.Checkpoint.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("error closing database connection", "error", err)
		}
	}()

	return postgres.Migrate(ctx, db, log)
}
