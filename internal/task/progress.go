package task

import (
	"context"
	"sync"
	"time"

	"github.com/phrazzld/scry-quizgen/internal/domain"
	"github.com/phrazzld/scry-quizgen/internal/events"
)

// Progress tracks the live state of the current run from unit events.
// It implements events.EventHandler.
type Progress struct {
	mu              sync.RWMutex
	runID           string
	mode            Mode
	total           int
	alreadyComplete int
	startedAt       time.Time
	finishedAt      time.Time
	statuses        map[string]domain.UnitStatus
	lanes           map[int]int
}

// ProgressSnapshot is a point-in-time view of a run.
type ProgressSnapshot struct {
	RunID           string        `json:"run_id"`
	Mode            Mode          `json:"mode,omitempty"`
	Running         bool          `json:"running"`
	Total           int           `json:"total"`
	Done            int           `json:"done"`
	AlreadyComplete int           `json:"already_complete"`
	InProgress      int           `json:"in_progress"`
	Accepted        int           `json:"accepted"`
	Rejected        int           `json:"rejected"`
	Failed          int           `json:"failed"`
	Lanes           map[int]int   `json:"lanes"`
	StartedAt       time.Time     `json:"started_at,omitempty"`
	Elapsed         time.Duration `json:"elapsed"`
}

// NewProgress creates an idle tracker.
func NewProgress() *Progress {
	return &Progress{
		statuses: make(map[string]domain.UnitStatus),
		lanes:    make(map[int]int),
	}
}

func (p *Progress) start(runID string, mode Mode, total, alreadyComplete int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runID = runID
	p.mode = mode
	p.total = total
	p.alreadyComplete = alreadyComplete
	p.startedAt = time.Now()
	p.finishedAt = time.Time{}
	p.statuses = make(map[string]domain.UnitStatus)
	p.lanes = make(map[int]int)
}

func (p *Progress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishedAt = time.Now()
}

// HandleEvent records a unit status change. Events from other runs are ignored.
func (p *Progress) HandleEvent(_ context.Context, event *events.UnitEvent) error {
	if event == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if event.RunID != p.runID {
		return nil
	}
	p.statuses[event.UnitID] = event.Status
	if event.Status.IsTerminal() {
		p.lanes[event.Lane]++
	}
	return nil
}

// Snapshot returns the current counts.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := ProgressSnapshot{
		RunID:           p.runID,
		Mode:            p.mode,
		Running:         !p.startedAt.IsZero() && p.finishedAt.IsZero(),
		Total:           p.total,
		AlreadyComplete: p.alreadyComplete,
		StartedAt:       p.startedAt,
		Lanes:           make(map[int]int, len(p.lanes)),
	}
	for lane, n := range p.lanes {
		s.Lanes[lane] = n
	}
	for _, status := range p.statuses {
		switch status {
		case domain.UnitStatusInProgress:
			s.InProgress++
		case domain.UnitStatusAccepted:
			s.Accepted++
		case domain.UnitStatusRejected:
			s.Rejected++
		case domain.UnitStatusFailed:
			s.Failed++
		}
	}
	s.Done = s.AlreadyComplete + s.Accepted + s.Rejected + s.Failed

	switch {
	case p.startedAt.IsZero():
	case p.finishedAt.IsZero():
		s.Elapsed = time.Since(p.startedAt)
	default:
		s.Elapsed = p.finishedAt.Sub(p.startedAt)
	}
	return s
}

var _ events.EventHandler = (*Progress)(nil)
