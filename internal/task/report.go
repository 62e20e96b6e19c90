package task

import (
	"time"

	"github.com/phrazzld/scry-quizgen/internal/domain"
)

// FinalReport summarises one run.
type FinalReport struct {
	RunID string `json:"run_id"`
	Mode  Mode   `json:"mode"`
	Total int    `json:"total"`

	Accepted        int `json:"accepted"`
	Rejected        int `json:"rejected"`
	Failed          int `json:"failed"`
	AlreadyComplete int `json:"already_complete"`

	// Pending counts units left untouched, which only happens when the
	// run was interrupted or halted.
	Pending int `json:"pending"`

	Elapsed time.Duration `json:"elapsed"`

	// Diagnostics lists every unit that ended Failed or Rejected in this run.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`

	Lanes []LaneTally `json:"lanes"`

	// Interrupted is set when cancellation stopped the run early.
	Interrupted bool `json:"interrupted"`
}

// Diagnostic explains why one unit did not end Accepted.
type Diagnostic struct {
	UnitID       string            `json:"unit_id"`
	Status       domain.UnitStatus `json:"status"`
	Attempts     int               `json:"attempts"`
	LastError    string            `json:"last_error,omitempty"`
	FailedChecks []string          `json:"failed_checks,omitempty"`
}

// LaneTally counts what one lane did.
type LaneTally struct {
	Lane       int    `json:"lane"`
	Credential string `json:"credential"`

	Assigned  int `json:"assigned"`
	Skipped   int `json:"skipped"`
	Processed int `json:"processed"`
	Accepted  int `json:"accepted"`
	Rejected  int `json:"rejected"`
	Failed    int `json:"failed"`
}

func (t *LaneTally) record(status domain.UnitStatus) {
	t.Processed++
	switch status {
	case domain.UnitStatusAccepted:
		t.Accepted++
	case domain.UnitStatusRejected:
		t.Rejected++
	case domain.UnitStatusFailed:
		t.Failed++
	}
}

// Done is the number of units with a terminal status.
func (r *FinalReport) Done() int {
	return r.Accepted + r.Rejected + r.Failed + r.AlreadyComplete
}

// buildReport tallies the checkpoint state of units. Units completed before
// the run count as AlreadyComplete regardless of their recorded status.
func buildReport(r *FinalReport, units []domain.WorkUnit, before map[string]struct{}, lookup func(string) (domain.Result, bool)) {
	r.Total = len(units)
	for _, u := range units {
		if _, ok := before[u.ID]; ok {
			r.AlreadyComplete++
			continue
		}
		res, ok := lookup(u.ID)
		if !ok {
			r.Pending++
			continue
		}
		switch res.Status {
		case domain.UnitStatusAccepted:
			r.Accepted++
		case domain.UnitStatusRejected:
			r.Rejected++
		case domain.UnitStatusFailed:
			r.Failed++
		}
		if res.Status != domain.UnitStatusAccepted {
			r.Diagnostics = append(r.Diagnostics, Diagnostic{
				UnitID:       res.UnitID,
				Status:       res.Status,
				Attempts:     res.Attempts,
				LastError:    res.LastError,
				FailedChecks: res.FailedChecks,
			})
		}
	}
}
