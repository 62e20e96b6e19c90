package domain

import (
	"encoding/json"
	"fmt"
)

// UnitStatus represents the processing state of a work unit
type UnitStatus string

// Possible work unit status values
const (
	UnitStatusPending    UnitStatus = "pending"
	UnitStatusInProgress UnitStatus = "in_progress"
	UnitStatusAccepted   UnitStatus = "accepted"
	UnitStatusRejected   UnitStatus = "rejected"
	UnitStatusFailed     UnitStatus = "failed"
)

// IsTerminal reports whether a unit in this status is finished for the run.
func (s UnitStatus) IsTerminal() bool {
	return s == UnitStatusAccepted || s == UnitStatusRejected || s == UnitStatusFailed
}

// IsValid reports whether s is one of the known statuses.
func (s UnitStatus) IsValid() bool {
	switch s {
	case UnitStatusPending, UnitStatusInProgress, UnitStatusAccepted, UnitStatusRejected, UnitStatusFailed:
		return true
	}
	return false
}

// WorkUnit is one independently processable item (for example one article's
// question set) flowing through generation and quality check.
type WorkUnit struct {
	ID       string          `json:"id"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
	Status   UnitStatus      `json:"status"`
}

// NewWorkUnit creates a pending work unit with the given ID and payload.
func NewWorkUnit(id string, payload json.RawMessage) (WorkUnit, error) {
	unit := WorkUnit{
		ID:      id,
		Payload: payload,
		Status:  UnitStatusPending,
	}
	if err := unit.Validate(); err != nil {
		return WorkUnit{}, err
	}
	return unit, nil
}

// Validate checks if the WorkUnit has valid data. An empty status reads as
// pending.
func (u WorkUnit) Validate() error {
	if u.ID == "" {
		return ErrEmptyUnitID
	}
	if u.Status != "" && !u.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidUnitStatus, u.Status)
	}
	return nil
}

// ValidateUnits checks a unit set for emptiness, empty IDs and duplicates.
func ValidateUnits(units []WorkUnit) error {
	if len(units) == 0 {
		return ErrNoWorkUnits
	}
	seen := make(map[string]struct{}, len(units))
	for i, u := range units {
		if err := u.Validate(); err != nil {
			return fmt.Errorf("unit %d: %w", i, err)
		}
		if _, dup := seen[u.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateUnitID, u.ID)
		}
		seen[u.ID] = struct{}{}
	}
	return nil
}
