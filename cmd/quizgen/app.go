package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-quizgen/internal/batch"
	"github.com/phrazzld/scry-quizgen/internal/checkpoint"
	"github.com/phrazzld/scry-quizgen/internal/config"
	"github.com/phrazzld/scry-quizgen/internal/credential"
	"github.com/phrazzld/scry-quizgen/internal/generation"
	"github.com/phrazzld/scry-quizgen/internal/platform/batchhttp"
	"github.com/phrazzld/scry-quizgen/internal/platform/objectstore"
	"github.com/phrazzld/scry-quizgen/internal/platform/postgres"
	"github.com/phrazzld/scry-quizgen/internal/retry"
	"github.com/phrazzld/scry-quizgen/internal/sink"
	"github.com/phrazzld/scry-quizgen/internal/task"
)

// application holds the resources of one run and releases them in cleanup.
type application struct {
	config *config.Config
	logger *slog.Logger

	db         *sql.DB
	store      checkpoint.Store
	jobStore   batch.JobStore
	checkpoint *checkpoint.Checkpoint
	sink       *sink.CSVSink
	local      *batch.LocalEndpoint

	closers []func() error
}

// newApplication opens the checkpoint backend selected by cfg, loads the
// checkpoint and opens the result sink.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{config: cfg, logger: logger}

	if err := app.openStores(ctx); err != nil {
		app.cleanup()
		return nil, err
	}

	cp, err := checkpoint.Open(ctx, app.store, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	app.checkpoint = cp

	out, err := sink.OpenCSV(cfg.Sink.Path, sink.Options{IncludeRejected: cfg.Sink.IncludeRejected}, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to open result sink: %w", err)
	}
	app.sink = out
	app.closers = append(app.closers, out.Close)

	logger.Info("application initialized",
		"checkpoint_backend", cfg.Checkpoint.Backend,
		"already_complete", cp.Len(),
		"sink", cfg.Sink.Path)
	return app, nil
}

// openStores builds the checkpoint store and the batch job store on the
// same backend, so a job handle lives next to the results it belongs to.
func (app *application) openStores(ctx context.Context) error {
	cfg := app.config.Checkpoint
	switch cfg.Backend {
	case "file":
		fs, err := checkpoint.NewFileStore(cfg.Path, app.logger)
		if err != nil {
			return fmt.Errorf("failed to open checkpoint file: %w", err)
		}
		app.store = fs
		app.jobStore = batch.NewFileJobStore(app.config.Batch.JobFile)
		app.closers = append(app.closers, fs.Close)

	case "postgres":
		db, err := postgres.Open(ctx, cfg.DatabaseURL, app.logger)
		if err != nil {
			return err
		}
		app.db = db
		app.closers = append(app.closers, db.Close)
		if err := postgres.Migrate(ctx, db, app.logger); err != nil {
			return err
		}
		app.store = postgres.NewCheckpointStore(db, cfg.Namespace, app.logger)
		app.jobStore = postgres.NewJobStore(db, cfg.Namespace)

	case "s3":
		s, err := objectstore.New(ctx, objectstore.Config{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
		}, cfg.S3.Prefix, app.logger)
		if err != nil {
			return fmt.Errorf("failed to open object store: %w", err)
		}
		app.store = s
		app.jobStore = s.JobStore()

	default:
		return fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}
	return nil
}

// batchClient returns a client for the configured remote endpoint, or for an
// in-process LocalEndpoint using the first credential when no URL is set.
// An in-process job does not outlive the process, so a restart resubmits.
func (app *application) batchClient(gen generation.Generator, pool *credential.Pool, tcfg task.Config) (*batch.Client, error) {
	var endpoint batch.Endpoint
	if url := app.config.Batch.EndpointURL; url != "" {
		remote, err := batchhttp.NewClient(url)
		if err != nil {
			return nil, err
		}
		endpoint = remote
		app.logger.Info("using remote batch endpoint", "url", url)
	} else {
		local, err := batch.NewLocalEndpoint(gen, pool.At(0), app.logger,
			batch.WithRetryPolicy(retry.NewPolicy(tcfg.MaxAttempts, tcfg.RetryBase)))
		if err != nil {
			return nil, err
		}
		app.local = local
		endpoint = local
		app.logger.Warn("no batch endpoint configured, processing batch jobs in-process")
	}

	return batch.NewClient(endpoint, app.jobStore,
		retry.NewPolicy(tcfg.MaxAttempts, tcfg.RetryBase),
		batch.ClientConfig{
			PollInterval:  app.config.Batch.PollInterval,
			MaxPollErrors: app.config.Batch.MaxPollErrors,
		}, app.logger)
}

// cleanup releases resources in reverse order of acquisition.
func (app *application) cleanup() {
	if app.local != nil {
		app.local.Close()
	}
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Error("error releasing resource", "error", err)
		}
	}
	app.closers = nil
}
