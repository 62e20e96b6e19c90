package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/phrazzld/scry-quizgen/internal/checkpoint"
	"github.com/phrazzld/scry-quizgen/internal/domain"
	"github.com/phrazzld/scry-quizgen/internal/generation"
	"github.com/phrazzld/scry-quizgen/internal/quality"
	"github.com/phrazzld/scry-quizgen/internal/redact"
	"github.com/phrazzld/scry-quizgen/internal/retry"
)

// errAbandoned is returned when cancellation arrives while a unit waits out
// a backoff delay. The unit stays pending and nothing is checkpointed.
var errAbandoned = errors.New("unit abandoned during backoff")

// laneRunner processes one lane's units sequentially with the lane's
// credential.
type laneRunner struct {
	lane      Lane
	cfg       Config
	generator generation.Generator
	checker   generation.Checker
	policy    *retry.Policy
	gate      quality.Gate
	cp        *checkpoint.Checkpoint
	fin       *finalizer
	limiter   *rate.Limiter
	tracer    trace.Tracer
	logger    *slog.Logger

	tally LaneTally
}

// run works through the lane until every unit is terminal or ctx is
// cancelled. Only a finalization failure is returned.
func (r *laneRunner) run(ctx context.Context) error {
	r.logger.Debug("starting lane", "assigned", len(r.lane.Units))

	for _, unit := range r.lane.Units {
		if ctx.Err() != nil {
			r.logger.Info("lane stopping, run cancelled",
				"processed", r.tally.Processed,
				"reason", context.Cause(ctx))
			return nil
		}
		if r.cp.IsComplete(unit.ID) {
			r.tally.Skipped++
			continue
		}

		res, err := r.processUnit(ctx, unit)
		if errors.Is(err, errAbandoned) {
			r.logger.Info("unit left pending after cancellation", "unit_id", unit.ID)
			r.fin.emit(context.WithoutCancel(ctx), unit.ID, r.lane.Index, domain.UnitStatusPending, res.Attempts)
			return nil
		}
		// The in-flight result is persisted even if the run is being cancelled.
		if err := r.fin.finalize(context.WithoutCancel(ctx), res); err != nil {
			return fmt.Errorf("lane %d: %w", r.lane.Index, err)
		}
		r.tally.record(res.Status)
	}

	r.logger.Debug("lane finished",
		"processed", r.tally.Processed,
		"skipped", r.tally.Skipped)
	return nil
}

// processUnit drives one unit to a terminal result: generate, check, gate,
// and regenerate or back off as needed. The attempt counter covers both
// transient retries and quality regenerations.
func (r *laneRunner) processUnit(ctx context.Context, unit domain.WorkUnit) (res domain.Result, err error) {
	ctx, span := r.tracer.Start(ctx, "lane.process_unit", trace.WithAttributes(
		attribute.String("unit.id", unit.ID),
		attribute.Int("lane.index", r.lane.Index),
	))
	defer func() {
		span.SetAttributes(
			attribute.Int("unit.attempts", res.Attempts),
			attribute.String("unit.status", string(res.Status)),
		)
		switch {
		case err != nil:
			span.SetStatus(codes.Error, err.Error())
		case res.Status == domain.UnitStatusFailed:
			span.SetStatus(codes.Error, res.LastError)
		}
		span.End()
	}()

	log := r.logger.With("unit_id", unit.ID)
	r.fin.emit(ctx, unit.ID, r.lane.Index, domain.UnitStatusInProgress, 0)

	res = domain.Result{UnitID: unit.ID, Lane: r.lane.Index}
	for {
		res.Attempts++

		content, genErr := r.generate(ctx, unit)
		if genErr != nil {
			res.LastError = redact.Error(genErr)
			class := generation.Classify(genErr)
			d := r.policy.Decide(res.Attempts, class)
			if !d.Retry || res.Attempts >= r.cfg.MaxAttempts {
				log.Warn("generation failed",
					"attempts", res.Attempts,
					"class", class,
					"error", res.LastError)
				res.Status = domain.UnitStatusFailed
				return res, nil
			}
			log.Debug("transient generation error, backing off",
				"attempt", res.Attempts,
				"delay", d.Delay,
				"error", res.LastError)
			if !sleep(ctx, d.Delay) {
				return res, errAbandoned
			}
			continue
		}
		res.LastError = ""

		checks, checkErr := r.check(ctx, unit, content)
		if checkErr != nil {
			if errors.Is(checkErr, errAbandoned) {
				return res, checkErr
			}
			log.Warn("quality check failed", "attempts", res.Attempts, "error", checkErr)
			res.Status = domain.UnitStatusFailed
			res.LastError = "quality check: " + redact.Error(checkErr)
			return res, nil
		}

		verdict := r.gate.Evaluate(checks)
		span.AddEvent("quality.verdict", trace.WithAttributes(
			attribute.String("decision", string(verdict.Decision)),
			attribute.Int("checks.failed", verdict.ChecksFailed),
		))
		res.Content = &content
		res.FailedChecks = verdict.FailedNames

		switch verdict.Decision {
		case domain.DecisionAccept:
			res.Status = domain.UnitStatusAccepted
			return res, nil

		case domain.DecisionRetry:
			if res.Attempts < r.cfg.MaxAttempts {
				log.Debug("fixable quality failures, regenerating",
					"attempt", res.Attempts,
					"failed_checks", verdict.FailedNames)
				continue
			}
			res.Status = domain.UnitStatusRejected
			if r.cfg.AcceptOnRetryCeiling {
				res.Status = domain.UnitStatusAccepted
			}
			return res, nil

		default:
			if r.cfg.RegenerateOnReject && res.Attempts < r.cfg.MaxAttempts {
				log.Debug("rejected content, regenerating",
					"attempt", res.Attempts,
					"failed_checks", verdict.FailedNames)
				continue
			}
			res.Status = domain.UnitStatusRejected
			return res, nil
		}
	}
}

// generate makes one generation call. Calls run on a context detached from
// run cancellation and bounded by CallTimeout.
func (r *laneRunner) generate(ctx context.Context, unit domain.WorkUnit) (domain.Content, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	if err := r.pace(callCtx); err != nil {
		return domain.Content{}, err
	}
	content, err := r.generator.Generate(callCtx, unit.Payload, r.lane.Credential)
	if err != nil {
		return domain.Content{}, err
	}
	if err := content.Validate(); err != nil {
		return domain.Content{}, fmt.Errorf("%w: %v", generation.ErrTransient, err)
	}
	return content, nil
}

// check runs the quality checker, retrying transient failures under the
// same policy as generation with its own attempt counter.
func (r *laneRunner) check(ctx context.Context, unit domain.WorkUnit, content domain.Content) (map[string]bool, error) {
	for attempt := 1; ; attempt++ {
		callCtx, cancel := r.callContext(ctx)
		checks, err := r.checkOnce(callCtx, unit, content)
		cancel()
		if err == nil {
			return checks, nil
		}

		d := r.policy.DecideErr(attempt, err)
		if !d.Retry || attempt >= r.cfg.MaxAttempts {
			return nil, err
		}
		r.logger.Debug("transient quality check error, backing off",
			"unit_id", unit.ID,
			"attempt", attempt,
			"delay", d.Delay,
			"error", redact.Error(err))
		if !sleep(ctx, d.Delay) {
			return nil, errAbandoned
		}
	}
}

func (r *laneRunner) checkOnce(ctx context.Context, unit domain.WorkUnit, content domain.Content) (map[string]bool, error) {
	if err := r.pace(ctx); err != nil {
		return nil, err
	}
	return r.checker.Check(ctx, content, unit.Payload, r.lane.Credential)
}

func (r *laneRunner) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), r.cfg.CallTimeout)
}

// pace blocks until the lane's limiter allows another call.
func (r *laneRunner) pace(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: call pacing: %v", generation.ErrTransient, err)
	}
	return nil
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
