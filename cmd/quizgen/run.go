package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/phrazzld/scry-quizgen/internal/api"
	"github.com/phrazzld/scry-quizgen/internal/config"
	"github.com/phrazzld/scry-quizgen/internal/credential"
	"github.com/phrazzld/scry-quizgen/internal/domain"
	"github.com/phrazzld/scry-quizgen/internal/generation"
	"github.com/phrazzld/scry-quizgen/internal/platform/gemini"
	"github.com/phrazzld/scry-quizgen/internal/platform/logger"
	"github.com/phrazzld/scry-quizgen/internal/platform/tracing"
	"github.com/phrazzld/scry-quizgen/internal/quality"
	"github.com/phrazzld/scry-quizgen/internal/task"
)

// runOptions are the flags of the run command.
type runOptions struct {
	configPath string
	unitsPath  string
	mode       string
}

func parseRunFlags(args []string, stderr io.Writer) (runOptions, error) {
	var opts runOptions
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to a quizgen.yaml config file")
	fs.StringVar(&opts.unitsPath, "units", "", "path to the work-unit manifest (YAML or JSON)")
	fs.StringVar(&opts.mode, "mode", "", "interactive or batch; overrides orchestrator.mode")
	if err := fs.Parse(args); err != nil {
		return opts, fmt.Errorf("%w: %v", errUsage, err)
	}
	if opts.unitsPath == "" {
		return opts, fmt.Errorf("%w: --units is required", errUsage)
	}
	if opts.mode != "" {
		if _, err := task.ParseMode(opts.mode); err != nil {
			return opts, fmt.Errorf("%w: %v", errUsage, err)
		}
	}
	return opts, nil
}

// runCommand loads configuration, runs every unit and prints the final
// report as JSON on stdout.
func runCommand(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseRunFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.mode != "" {
		cfg.Orchestrator.Mode = opts.mode
	}

	// Stdout carries the report.
	log, err := logger.SetupWithWriter(cfg.Log, stderr)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, "quizgen", stderr)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			log.Error("failed to flush traces", "error", err)
		}
	}()

	gen, err := gemini.NewGenerator(log.With("component", "llm_generator"), cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM generator: %w", err)
	}
	catalog, err := quality.LoadCatalog(cfg.LLM.CheckCatalogPath)
	if err != nil {
		return err
	}
	checker, err := gemini.NewChecker(log.With("component", "llm_checker"), cfg.LLM, catalog)
	if err != nil {
		return fmt.Errorf("failed to initialize quality checker: %w", err)
	}

	report, err := runUnits(ctx, cfg, opts.unitsPath, gen, checker, log)
	if report != nil {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			log.Error("failed to write report", "error", encErr)
		}
	}
	if err != nil {
		return err
	}
	if report.Interrupted {
		return errInterrupted
	}
	return nil
}

// runUnits wires the orchestrator around gen and checker and runs the
// manifest at unitsPath.
func runUnits(ctx context.Context, cfg *config.Config, unitsPath string, gen generation.Generator, checker generation.Checker, log *slog.Logger) (*task.FinalReport, error) {
	mode, err := task.ParseMode(cfg.Orchestrator.Mode)
	if err != nil {
		return nil, err
	}
	units, err := domain.LoadUnits(unitsPath)
	if err != nil {
		return nil, err
	}
	pool, err := credential.NewPool(cfg.LLM.APIKeys)
	if err != nil {
		return nil, err
	}

	app, err := newApplication(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	defer app.cleanup()

	tcfg := task.ConfigFrom(cfg)
	deps := task.Deps{
		Generator: gen,
		Checker:   checker,
		Sink:      app.sink,
	}
	if mode == task.ModeBatch {
		if deps.Batch, err = app.batchClient(gen, pool, tcfg); err != nil {
			return nil, fmt.Errorf("failed to set up batch mode: %w", err)
		}
	}

	orch, err := task.New(tcfg, deps, log)
	if err != nil {
		return nil, err
	}

	if addr := cfg.Server.ProgressAddr; addr != "" {
		stopServer := startServer(ctx, addr, api.NewRouter(orch, app.checkpoint, log), log)
		defer stopServer()
	}

	log.Info("run configuration",
		"mode", mode,
		"units", len(units),
		"credentials", pool.Len(),
		"lanes", pool.LaneCount(tcfg.MaxLanes),
		"max_attempts", tcfg.MaxAttempts,
		"gate_threshold", tcfg.GateThreshold,
		"pid", os.Getpid())

	return orch.Run(ctx, units, pool, app.checkpoint, mode)
}
