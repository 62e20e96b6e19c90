package batch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/phrazzld/scry-quizgen/internal/domain"
)

// ErrJobNotFound is returned by an Endpoint that has no record of a job ID.
var ErrJobNotFound = errors.New("batch job not found")

// ErrJobFailed marks a job that the endpoint refused or that reached the
// failed status as a whole. None of its units can complete.
var ErrJobFailed = errors.New("batch job failed")

// Status is the lifecycle state of a batch job.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Request is one unit submitted as part of a job.
type Request struct {
	UnitID  string          `json:"unit_id"`
	Payload json.RawMessage `json:"payload"`
}

// UnitResult is the outcome for one unit of a completed job. Exactly one of
// Content or Error is set.
type UnitResult struct {
	Content *domain.Content `json:"content,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Job is a snapshot of a batch job as returned by Poll.
type Job struct {
	ID          string                `json:"id"`
	Status      Status                `json:"status"`
	Results     map[string]UnitResult `json:"results,omitempty"`
	Error       string                `json:"error,omitempty"`
	SubmittedAt time.Time             `json:"submitted_at"`
}

// Endpoint is a remote bulk generation service. Poll must be idempotent
// and side-effect free.
type Endpoint interface {
	Submit(ctx context.Context, requests []Request) (string, error)
	Poll(ctx context.Context, jobID string) (*Job, error)
}
