package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/scry-quizgen/internal/batch"
	"github.com/phrazzld/scry-quizgen/internal/checkpoint"
	"github.com/phrazzld/scry-quizgen/internal/credential"
	"github.com/phrazzld/scry-quizgen/internal/domain"
	"github.com/phrazzld/scry-quizgen/internal/events"
	"github.com/phrazzld/scry-quizgen/internal/generation"
	"github.com/phrazzld/scry-quizgen/internal/platform/tracing"
	"github.com/phrazzld/scry-quizgen/internal/quality"
	"github.com/phrazzld/scry-quizgen/internal/redact"
	"github.com/phrazzld/scry-quizgen/internal/retry"
	"github.com/phrazzld/scry-quizgen/internal/sink"
)

// ErrBatchNotConfigured is returned when a batch run has no batch client.
var ErrBatchNotConfigured = errors.New("batch mode requires a batch client")

// Deps are the collaborators an Orchestrator drives.
type Deps struct {
	Generator generation.Generator
	Checker   generation.Checker

	// Sink receives finished results after they are checkpointed. Optional.
	Sink sink.Sink

	// Batch is required for ModeBatch only.
	Batch *batch.Client

	// Handlers receive every unit event in addition to the progress tracker.
	Handlers []events.EventHandler
}

// reconciler is implemented by sinks that can restore rows from the checkpoint.
type reconciler interface {
	Reconcile(results map[string]domain.Result) (int, error)
}

// Orchestrator runs work units to completion.
type Orchestrator struct {
	cfg      Config
	deps     Deps
	policy   *retry.Policy
	gate     quality.Gate
	emitter  *events.InMemoryEventEmitter
	progress *Progress
	tracer   trace.Tracer
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTracer replaces the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// New creates an Orchestrator.
func New(cfg Config, deps Deps, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	if deps.Generator == nil {
		return nil, fmt.Errorf("%w: generator cannot be nil", generation.ErrInvalidConfig)
	}
	if deps.Checker == nil {
		return nil, fmt.Errorf("%w: checker cannot be nil", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	logger = logger.With("component", "orchestrator")

	o := &Orchestrator{
		cfg:      cfg,
		deps:     deps,
		policy:   retry.NewPolicy(cfg.MaxAttempts, cfg.RetryBase),
		gate:     quality.NewGate(cfg.GateThreshold),
		emitter:  events.NewInMemoryEventEmitter(logger),
		progress: NewProgress(),
		tracer:   tracing.Tracer(),
		logger:   logger,
	}
	o.emitter.RegisterHandler(o.progress)
	for _, h := range deps.Handlers {
		o.emitter.RegisterHandler(h)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Progress returns a snapshot of the current or most recent run.
func (o *Orchestrator) Progress() ProgressSnapshot {
	return o.progress.Snapshot()
}

// Run processes every unit not already in cp and returns the final tally.
//
// Cancelling ctx stops lanes from claiming new units; in-flight units are
// finished and checkpointed. A checkpoint or sink write failure halts the
// run and is returned together with the report of what was completed.
func (o *Orchestrator) Run(ctx context.Context, units []domain.WorkUnit, pool *credential.Pool, cp *checkpoint.Checkpoint, mode Mode) (*FinalReport, error) {
	start := time.Now()

	if err := domain.ValidateUnits(units); err != nil {
		return nil, err
	}
	if pool == nil || pool.Len() == 0 {
		return nil, credential.ErrEmptyPool
	}
	if cp == nil {
		return nil, fmt.Errorf("checkpoint cannot be nil")
	}
	if mode == ModeBatch && o.deps.Batch == nil {
		return nil, ErrBatchNotConfigured
	}

	runID := uuid.NewString()
	log := o.logger.With("run_id", runID, "mode", mode)

	if r, ok := o.deps.Sink.(reconciler); ok {
		if _, err := r.Reconcile(cp.Results()); err != nil {
			return nil, fmt.Errorf("failed to reconcile result sink with checkpoint: %w", err)
		}
	}

	before := make(map[string]struct{})
	remaining := make([]domain.WorkUnit, 0, len(units))
	for _, u := range units {
		if cp.IsComplete(u.ID) {
			before[u.ID] = struct{}{}
			continue
		}
		remaining = append(remaining, u)
	}

	log.Info("starting run",
		"units", len(units),
		"already_complete", len(before),
		"remaining", len(remaining),
		"credentials", pool.Len())

	o.progress.start(runID, mode, len(units), len(before))
	defer o.progress.finish()

	fin := &finalizer{
		runID:   runID,
		cp:      cp,
		sink:    o.deps.Sink,
		emitter: o.emitter,
		logger:  log,
	}

	report := &FinalReport{RunID: runID, Mode: mode}
	var runErr error
	switch mode {
	case ModeInteractive:
		report.Lanes, runErr = o.runInteractive(ctx, units, pool, cp, fin, log)
	case ModeBatch:
		report.Lanes, runErr = o.runBatch(ctx, remaining, pool, cp, fin, log)
	default:
		return nil, fmt.Errorf("unknown run mode %q", mode)
	}

	buildReport(report, units, before, cp.Result)
	report.Elapsed = time.Since(start)
	report.Interrupted = ctx.Err() != nil && report.Pending > 0

	logArgs := []any{
		"accepted", report.Accepted,
		"rejected", report.Rejected,
		"failed", report.Failed,
		"already_complete", report.AlreadyComplete,
		"pending", report.Pending,
		"elapsed", report.Elapsed,
	}
	switch {
	case runErr != nil:
		log.Error("run halted", append(logArgs, "error", runErr)...)
	case report.Interrupted:
		log.Warn("run interrupted", logArgs...)
	default:
		log.Info("run finished", logArgs...)
	}
	return report, runErr
}

// runInteractive deals all units over the lanes in input order, so a unit's
// lane does not depend on what earlier runs completed. Lanes skip completed
// units themselves.
func (o *Orchestrator) runInteractive(ctx context.Context, units []domain.WorkUnit, pool *credential.Pool, cp *checkpoint.Checkpoint, fin *finalizer, log *slog.Logger) ([]LaneTally, error) {
	n := pool.LaneCount(o.cfg.MaxLanes)
	parts := Partition(units, n)
	fingerprints := pool.Fingerprints()

	runners := make([]*laneRunner, n)
	for i := range runners {
		runners[i] = o.newLaneRunner(Lane{Index: i, Credential: pool.At(i), Units: parts[i]}, cp, fin, log)
		runners[i].tally = LaneTally{Lane: i, Credential: fingerprints[i], Assigned: len(parts[i])}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, lr := range runners {
		g.Go(func() error {
			return lr.run(gctx)
		})
	}
	err := g.Wait()

	tallies := make([]LaneTally, n)
	for i, lr := range runners {
		tallies[i] = lr.tally
	}
	return tallies, err
}

func (o *Orchestrator) newLaneRunner(lane Lane, cp *checkpoint.Checkpoint, fin *finalizer, log *slog.Logger) *laneRunner {
	return &laneRunner{
		lane:      lane,
		cfg:       o.cfg,
		generator: o.deps.Generator,
		checker:   o.deps.Checker,
		policy:    o.policy,
		gate:      o.gate,
		cp:        cp,
		fin:       fin,
		limiter:   newLimiter(o.cfg.MinCallInterval),
		tracer:    o.tracer,
		logger:    log.With("lane", lane.Index, "credential", redact.Credential(lane.Credential)),
	}
}
