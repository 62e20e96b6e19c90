package domain

import (
	"fmt"
	"time"
)

// Result is the durable record of a finished work unit. It is what the
// checkpoint stores per completed unit and what the result sink writes.
type Result struct {
	UnitID       string     `json:"unit_id"`
	Status       UnitStatus `json:"status"`
	Attempts     int        `json:"attempts"`
	Content      *Content   `json:"content,omitempty"`
	FailedChecks []string   `json:"failed_checks,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	Lane         int        `json:"lane"`
	CompletedAt  time.Time  `json:"completed_at"`
}

// Validate checks that a result is complete enough to be persisted.
func (r Result) Validate() error {
	if r.UnitID == "" {
		return ErrEmptyUnitID
	}
	if !r.Status.IsTerminal() {
		return fmt.Errorf("%w: result status %q is not terminal", ErrInvalidUnitStatus, r.Status)
	}
	if r.Status == UnitStatusAccepted && r.Content == nil {
		return fmt.Errorf("%w: accepted result without content", ErrValidation)
	}
	if r.Content != nil {
		if err := r.Content.Validate(); err != nil {
			return err
		}
	}
	return nil
}
