package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-quizgen/internal/batch"
	"github.com/phrazzld/scry-quizgen/internal/checkpoint"
	"github.com/phrazzld/scry-quizgen/internal/credential"
	"github.com/phrazzld/scry-quizgen/internal/domain"
	"github.com/phrazzld/scry-quizgen/internal/redact"
)

// runBatch submits the remaining units as one job, or reattaches to the job a
// previous run left behind, and routes each result through the quality gate
// and the checkpoint. Quality checks run locally with the first credential.
// It loops until every remaining unit is terminal, so units outside a
// reattached job are submitted afterwards. A rejected or vanished job fails
// its units; a job that could not be polled is kept for the next run.
func (o *Orchestrator) runBatch(ctx context.Context, remaining []domain.WorkUnit, pool *credential.Pool, cp *checkpoint.Checkpoint, fin *finalizer, log *slog.Logger) ([]LaneTally, error) {
	lr := o.newLaneRunner(Lane{Index: 0, Credential: pool.At(0)}, cp, fin, log)
	lr.tally = LaneTally{Lane: 0, Credential: pool.Fingerprints()[0], Assigned: len(remaining)}
	tallies := func() []LaneTally { return []LaneTally{lr.tally} }

	byID := make(map[string]domain.WorkUnit, len(remaining))
	for _, u := range remaining {
		byID[u.ID] = u
	}

	for {
		pending := make([]domain.WorkUnit, 0, len(remaining))
		for _, u := range remaining {
			if !cp.IsComplete(u.ID) {
				pending = append(pending, u)
			}
		}
		if len(pending) == 0 {
			// A job whose results were merged before a crash may still be recorded.
			if err := o.deps.Batch.Complete(ctx); err != nil {
				log.Warn("failed to clear finished batch job", "error", err)
			}
			return tallies(), nil
		}
		if ctx.Err() != nil {
			return tallies(), nil
		}

		rec, reattached, err := o.deps.Batch.Attach(ctx, pending)
		if err != nil {
			if ctx.Err() != nil {
				return tallies(), nil
			}
			if !errors.Is(err, batch.ErrJobFailed) {
				return tallies(), fmt.Errorf("failed to start batch job: %w", err)
			}
			log.Error("batch job rejected", "unit_count", len(pending), "error", err)
			ids := make([]string, len(pending))
			for i, u := range pending {
				ids[i] = u.ID
			}
			if err := o.failUnits(ctx, lr, ids, byID, redact.Error(err)); err != nil {
				return tallies(), err
			}
			continue
		}
		log.Info("waiting for batch job",
			"job_id", rec.JobID,
			"reattached", reattached,
			"unit_count", len(rec.UnitIDs))

		job, err := o.deps.Batch.Resume(ctx, rec.JobID)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("interrupted while waiting, batch job kept for reattach", "job_id", rec.JobID)
				return tallies(), nil
			}
			if !errors.Is(err, batch.ErrJobNotFound) {
				return tallies(), fmt.Errorf("failed to wait for batch job %s: %w", rec.JobID, err)
			}
			log.Error("batch job disappeared while polling", "job_id", rec.JobID, "error", err)
			reason := fmt.Sprintf("%s: job %s disappeared while polling", batch.ErrJobFailed, rec.JobID)
			if err := o.failUnits(ctx, lr, rec.UnitIDs, byID, reason); err != nil {
				return tallies(), err
			}
			if err := o.deps.Batch.Complete(ctx); err != nil {
				return tallies(), err
			}
			continue
		}

		done, err := o.mergeJob(ctx, lr, rec, job, byID, log)
		if err != nil {
			return tallies(), err
		}
		if !done {
			return tallies(), nil
		}
		if err := o.deps.Batch.Complete(ctx); err != nil {
			return tallies(), err
		}
	}
}

// mergeJob finalizes every unit of a terminal job. It reports done=false
// when cancellation stopped it early, in which case the job record is kept.
func (o *Orchestrator) mergeJob(ctx context.Context, lr *laneRunner, rec batch.JobRecord, job *batch.Job, byID map[string]domain.WorkUnit, log *slog.Logger) (bool, error) {
	if job.Status == batch.StatusFailed {
		log.Error("batch job failed", "job_id", job.ID, "error", job.Error)
	}

	for _, id := range rec.UnitIDs {
		if lr.cp.IsComplete(id) {
			continue
		}
		unit, ok := byID[id]
		if !ok {
			log.Warn("batch job contains a unit outside this run, skipping", "unit_id", id)
			continue
		}
		if ctx.Err() != nil {
			return false, nil
		}

		res, err := o.judgeBatchResult(ctx, lr, unit, job)
		if errors.Is(err, errAbandoned) {
			return false, nil
		}
		if err := lr.fin.finalize(context.WithoutCancel(ctx), res); err != nil {
			return false, err
		}
		lr.tally.record(res.Status)
	}
	return true, nil
}

// failUnits finalizes every unit of ids that belongs to this run and is not
// yet complete as Failed with reason.
func (o *Orchestrator) failUnits(ctx context.Context, lr *laneRunner, ids []string, byID map[string]domain.WorkUnit, reason string) error {
	for _, id := range ids {
		if _, ok := byID[id]; !ok || lr.cp.IsComplete(id) {
			continue
		}
		res := domain.Result{
			UnitID:    id,
			Lane:      0,
			Attempts:  1,
			Status:    domain.UnitStatusFailed,
			LastError: reason,
		}
		if err := lr.fin.finalize(context.WithoutCancel(ctx), res); err != nil {
			return err
		}
		lr.tally.record(res.Status)
	}
	return nil
}

// judgeBatchResult turns one job result into a terminal Result. Batch mode
// does not resubmit, so Retry and Reject verdicts are final.
func (o *Orchestrator) judgeBatchResult(ctx context.Context, lr *laneRunner, unit domain.WorkUnit, job *batch.Job) (domain.Result, error) {
	res := domain.Result{UnitID: unit.ID, Lane: 0, Attempts: 1, Status: domain.UnitStatusFailed}

	if job.Status == batch.StatusFailed {
		res.LastError = batch.ErrJobFailed.Error()
		if job.Error != "" {
			res.LastError += ": " + job.Error
		}
		return res, nil
	}
	ur, ok := job.Results[unit.ID]
	switch {
	case !ok:
		res.LastError = "no result for unit in completed batch job"
		return res, nil
	case ur.Error != "":
		res.LastError = ur.Error
		return res, nil
	case ur.Content == nil:
		res.LastError = "batch result has no content"
		return res, nil
	}
	if err := ur.Content.Validate(); err != nil {
		res.LastError = err.Error()
		return res, nil
	}

	checks, err := lr.check(ctx, unit, *ur.Content)
	if err != nil {
		if errors.Is(err, errAbandoned) {
			return res, err
		}
		res.LastError = "quality check: " + redact.Error(err)
		return res, nil
	}

	verdict := lr.gate.Evaluate(checks)
	res.Content = ur.Content
	res.FailedChecks = verdict.FailedNames
	switch verdict.Decision {
	case domain.DecisionAccept:
		res.Status = domain.UnitStatusAccepted
	case domain.DecisionRetry:
		res.Status = domain.UnitStatusRejected
		if o.cfg.AcceptOnRetryCeiling {
			res.Status = domain.UnitStatusAccepted
		}
	default:
		res.Status = domain.UnitStatusRejected
	}
	return res, nil
}
