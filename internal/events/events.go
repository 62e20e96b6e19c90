package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-quizgen/internal/domain"
)

// UnitEvent reports a status change of one work unit.
type UnitEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// RunID identifies the orchestrator run that produced the event
	RunID string `json:"run_id"`

	UnitID   string            `json:"unit_id"`
	Lane     int               `json:"lane"`
	Status   domain.UnitStatus `json:"status"`
	Attempts int               `json:"attempts"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewUnitEvent creates a UnitEvent stamped with a fresh ID and the current time.
func NewUnitEvent(runID, unitID string, lane int, status domain.UnitStatus, attempts int) *UnitEvent {
	return &UnitEvent{
		ID:        uuid.New(),
		RunID:     runID,
		UnitID:    unitID,
		Lane:      lane,
		Status:    status,
		Attempts:  attempts,
		CreatedAt: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *UnitEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *UnitEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *UnitEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *UnitEvent) error
}

// NopEmitter discards every event.
type NopEmitter struct{}

// EmitEvent does nothing.
func (NopEmitter) EmitEvent(context.Context, *UnitEvent) error { return nil }
