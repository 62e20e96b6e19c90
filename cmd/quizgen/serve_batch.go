package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/phrazzld/scry-quizgen/internal/batch"
	"github.com/phrazzld/scry-quizgen/internal/config"
	"github.com/phrazzld/scry-quizgen/internal/credential"
	"github.com/phrazzld/scry-quizgen/internal/platform/batchhttp"
	"github.com/phrazzld/scry-quizgen/internal/platform/gemini"
	"github.com/phrazzld/scry-quizgen/internal/platform/logger"
	"github.com/phrazzld/scry-quizgen/internal/retry"
)

// serveBatchCommand exposes an in-process batch endpoint over HTTP so other
// quizgen runs can use it as their batch.endpoint_url.
func serveBatchCommand(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve-batch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a quizgen.yaml config file")
	addr := fs.String("addr", "", "listen address; overrides batch.listen_addr")
	concurrency := fs.Int("concurrency", batch.DefaultLocalConcurrency, "units generated in parallel per job")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *addr == "" {
		*addr = cfg.Batch.ListenAddr
	}

	log, err := logger.Setup(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	pool, err := credential.NewPool(cfg.LLM.APIKeys)
	if err != nil {
		return err
	}
	gen, err := gemini.NewGenerator(log.With("component", "llm_generator"), cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM generator: %w", err)
	}

	endpoint, err := batch.NewLocalEndpoint(gen, pool.At(0), log,
		batch.WithConcurrency(*concurrency),
		batch.WithRetryPolicy(retry.NewPolicy(cfg.Orchestrator.MaxAttempts, cfg.Orchestrator.RetryBase)))
	if err != nil {
		return err
	}
	defer endpoint.Close()

	return serveUntilDone(ctx, *addr, batchhttp.NewHandler(endpoint, log), log)
}
