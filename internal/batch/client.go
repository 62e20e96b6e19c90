package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-quizgen/internal/domain"
	"github.com/phrazzld/scry-quizgen/internal/generation"
	"github.com/phrazzld/scry-quizgen/internal/retry"
)

// Default polling values.
const (
	DefaultPollInterval  = 30 * time.Second
	DefaultMaxPollErrors = 10
)

// ClientConfig controls submission and polling.
type ClientConfig struct {
	PollInterval  time.Duration
	MaxPollErrors int
}

// Client drives one job at a time against an Endpoint and keeps its handle
// in a JobStore so that a restarted process can reattach.
type Client struct {
	endpoint Endpoint
	store    JobStore
	policy   *retry.Policy
	cfg      ClientConfig
	logger   *slog.Logger
}

// NewClient creates a Client. Zero config values fall back to the defaults.
func NewClient(endpoint Endpoint, store JobStore, policy *retry.Policy, cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if endpoint == nil {
		return nil, fmt.Errorf("batch endpoint cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("batch job store cannot be nil")
	}
	if policy == nil {
		policy = retry.NewPolicy(0, 0)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxPollErrors <= 0 {
		cfg.MaxPollErrors = DefaultMaxPollErrors
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: endpoint,
		store:    store,
		policy:   policy,
		cfg:      cfg,
		logger:   logger.With("component", "batch_client"),
	}, nil
}

// Submit sends units as one job, retrying transient failures under the
// shared policy, and persists the job handle before returning it.
func (c *Client) Submit(ctx context.Context, units []domain.WorkUnit) (JobRecord, error) {
	if len(units) == 0 {
		return JobRecord{}, domain.ErrNoWorkUnits
	}
	requests := make([]Request, len(units))
	ids := make([]string, len(units))
	for i, u := range units {
		requests[i] = Request{UnitID: u.ID, Payload: u.Payload}
		ids[i] = u.ID
	}

	var jobID string
	for attempt := 1; ; attempt++ {
		id, err := c.endpoint.Submit(ctx, requests)
		if err == nil {
			jobID = id
			break
		}
		d := c.policy.DecideErr(attempt, err)
		if generation.Classify(err) == generation.ClassPermanent && ctx.Err() == nil {
			return JobRecord{}, fmt.Errorf("%w: submit rejected: %w", ErrJobFailed, err)
		}
		if !d.Retry || attempt >= c.policy.MaxAttempts {
			return JobRecord{}, fmt.Errorf("failed to submit batch job: %w", err)
		}
		c.logger.WarnContext(ctx, "batch submit failed, retrying",
			"attempt", attempt,
			"delay", d.Delay,
			"error", err)
		if !sleep(ctx, d.Delay) {
			return JobRecord{}, ctx.Err()
		}
	}

	rec := JobRecord{JobID: jobID, UnitIDs: ids, SubmittedAt: time.Now().UTC()}
	if err := c.store.Save(ctx, rec); err != nil {
		return JobRecord{}, fmt.Errorf("failed to persist batch job %s: %w", jobID, err)
	}
	c.logger.InfoContext(ctx, "submitted batch job",
		"job_id", jobID,
		"unit_count", len(ids))
	return rec, nil
}

// Attach returns the persisted job if the endpoint still knows it, and
// otherwise submits pending as a new job. A job the endpoint has forgotten
// is cleared from the store first.
func (c *Client) Attach(ctx context.Context, pending []domain.WorkUnit) (JobRecord, bool, error) {
	rec, err := c.store.Load(ctx)
	if err != nil {
		return JobRecord{}, false, fmt.Errorf("failed to load batch job record: %w", err)
	}
	if rec != nil {
		_, err := c.endpoint.Poll(ctx, rec.JobID)
		switch {
		case err == nil:
			c.logger.InfoContext(ctx, "reattached to batch job",
				"job_id", rec.JobID,
				"unit_count", len(rec.UnitIDs))
			return *rec, true, nil
		case errors.Is(err, ErrJobNotFound):
			c.logger.WarnContext(ctx, "persisted batch job unknown to endpoint, resubmitting",
				"job_id", rec.JobID)
			if err := c.store.Clear(ctx); err != nil {
				return JobRecord{}, false, fmt.Errorf("failed to clear batch job record: %w", err)
			}
		default:
			// The endpoint may be briefly unreachable; keep the handle.
			return *rec, true, nil
		}
	}
	submitted, err := c.Submit(ctx, pending)
	return submitted, false, err
}

// Poll fetches the current state of a job once.
func (c *Client) Poll(ctx context.Context, jobID string) (*Job, error) {
	return c.endpoint.Poll(ctx, jobID)
}

// Resume polls jobID until it reaches a terminal status. Transient poll
// errors keep polling with backoff; permanent ones, ErrJobNotFound, or more
// than MaxPollErrors consecutive failures end the wait. Cancellation returns
// ctx.Err() and leaves the job record in place.
func (c *Client) Resume(ctx context.Context, jobID string) (*Job, error) {
	consecutive := 0
	for {
		job, err := c.endpoint.Poll(ctx, jobID)
		delay := c.cfg.PollInterval
		switch {
		case err == nil:
			consecutive = 0
			if job.Status.IsTerminal() {
				c.logger.InfoContext(ctx, "batch job finished",
					"job_id", jobID,
					"status", job.Status,
					"result_count", len(job.Results))
				return job, nil
			}
			c.logger.DebugContext(ctx, "batch job still running",
				"job_id", jobID,
				"status", job.Status)
		case errors.Is(err, ErrJobNotFound):
			return nil, err
		default:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			consecutive++
			class := generation.Classify(err)
			if class == generation.ClassPermanent || consecutive >= c.cfg.MaxPollErrors {
				return nil, fmt.Errorf("failed to poll batch job %s after %d errors: %w", jobID, consecutive, err)
			}
			d := c.policy.Decide(min(consecutive, c.policy.MaxAttempts), class)
			delay = d.Delay
			c.logger.WarnContext(ctx, "batch poll failed",
				"job_id", jobID,
				"consecutive_errors", consecutive,
				"delay", delay,
				"error", err)
		}
		if !sleep(ctx, delay) {
			return nil, ctx.Err()
		}
	}
}

// Complete forgets the persisted job once its results are merged.
func (c *Client) Complete(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear batch job record: %w", err)
	}
	return nil
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
