package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/scry-quizgen/internal/generation"
	"github.com/phrazzld/scry-quizgen/internal/redact"
	"github.com/phrazzld/scry-quizgen/internal/retry"
)

// DefaultLocalConcurrency bounds the generation calls one local job makes at once.
const DefaultLocalConcurrency = 4

// LocalEndpoint is an in-process Endpoint that processes each job
// asynchronously with a Generator. Jobs live in memory for the lifetime of
// the endpoint.
type LocalEndpoint struct {
	generator   generation.Generator
	credential  string
	policy      *retry.Policy
	concurrency int
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.RWMutex
	jobs map[string]*Job
}

// LocalOption configures a LocalEndpoint.
type LocalOption func(*LocalEndpoint)

// WithConcurrency sets how many units of one job are generated in parallel.
func WithConcurrency(n int) LocalOption {
	return func(e *LocalEndpoint) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithRetryPolicy sets the policy used for transient generation failures.
func WithRetryPolicy(p *retry.Policy) LocalOption {
	return func(e *LocalEndpoint) {
		if p != nil {
			e.policy = p
		}
	}
}

// NewLocalEndpoint creates an endpoint that generates with one credential.
func NewLocalEndpoint(generator generation.Generator, credential string, logger *slog.Logger, opts ...LocalOption) (*LocalEndpoint, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator cannot be nil")
	}
	if credential == "" {
		return nil, fmt.Errorf("credential cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &LocalEndpoint{
		generator:   generator,
		credential:  credential,
		policy:      retry.NewPolicy(0, 0),
		concurrency: DefaultLocalConcurrency,
		logger:      logger.With("component", "local_batch_endpoint", "credential", redact.Credential(credential)),
		ctx:         ctx,
		cancel:      cancel,
		jobs:        make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Submit registers a job and starts processing it in the background.
func (e *LocalEndpoint) Submit(_ context.Context, requests []Request) (string, error) {
	if len(requests) == 0 {
		return "", fmt.Errorf("%w: empty batch", generation.ErrPermanent)
	}
	if e.ctx.Err() != nil {
		return "", fmt.Errorf("%w: endpoint closed", generation.ErrPermanent)
	}

	id := uuid.New().String()
	job := &Job{
		ID:          id,
		Status:      StatusSubmitted,
		Results:     make(map[string]UnitResult, len(requests)),
		SubmittedAt: time.Now().UTC(),
	}
	e.mu.Lock()
	e.jobs[id] = job
	e.mu.Unlock()

	reqs := append([]Request(nil), requests...)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.process(id, reqs)
	}()

	e.logger.Info("accepted batch job", "job_id", id, "unit_count", len(reqs))
	return id, nil
}

// Poll returns a copy of the job's current state.
func (e *LocalEndpoint) Poll(_ context.Context, jobID string) (*Job, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	job, ok := e.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	snapshot := *job
	snapshot.Results = make(map[string]UnitResult, len(job.Results))
	if job.Status == StatusCompleted {
		for k, v := range job.Results {
			snapshot.Results[k] = v
		}
	}
	return &snapshot, nil
}

// Close stops accepting jobs, cancels in-flight ones and waits for them.
func (e *LocalEndpoint) Close() {
	e.cancel()
	e.wg.Wait()
}

// Wait blocks until every submitted job has finished processing.
func (e *LocalEndpoint) Wait() {
	e.wg.Wait()
}

func (e *LocalEndpoint) process(jobID string, requests []Request) {
	e.setStatus(jobID, StatusRunning, "")
	log := e.logger.With("job_id", jobID)

	var mu sync.Mutex
	results := make(map[string]UnitResult, len(requests))

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)
	for _, req := range requests {
		g.Go(func() error {
			res := e.generate(req)
			mu.Lock()
			results[req.UnitID] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if e.ctx.Err() != nil {
		log.Warn("batch job interrupted by endpoint shutdown")
		e.setStatus(jobID, StatusFailed, "endpoint shut down before job completed")
		return
	}

	e.mu.Lock()
	job := e.jobs[jobID]
	job.Results = results
	job.Status = StatusCompleted
	e.mu.Unlock()
	log.Info("batch job completed", "result_count", len(results))
}

func (e *LocalEndpoint) generate(req Request) UnitResult {
	var lastErr error
	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		content, err := e.generator.Generate(e.ctx, req.Payload, e.credential)
		if err == nil {
			return UnitResult{Content: &content}
		}
		lastErr = err
		d := e.policy.DecideErr(attempt, err)
		if !d.Retry || attempt == e.policy.MaxAttempts {
			break
		}
		if !sleep(e.ctx, d.Delay) {
			break
		}
	}
	return UnitResult{Error: redact.Error(lastErr)}
}

func (e *LocalEndpoint) setStatus(jobID string, status Status, msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if job, ok := e.jobs[jobID]; ok {
		job.Status = status
		job.Error = msg
	}
}

var _ Endpoint = (*LocalEndpoint)(nil)
