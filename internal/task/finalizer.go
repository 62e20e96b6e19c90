package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/scry-quizgen/internal/checkpoint"
	"github.com/phrazzld/scry-quizgen/internal/domain"
	"github.com/phrazzld/scry-quizgen/internal/events"
	"github.com/phrazzld/scry-quizgen/internal/sink"
)

// finalizer is the single path every terminal result takes: checkpoint
// first, then the result sink, then a progress event. One mutex covers the
// checkpoint and the sink so their order agrees.
type finalizer struct {
	runID   string
	cp      *checkpoint.Checkpoint
	sink    sink.Sink
	emitter events.EventEmitter
	logger  *slog.Logger

	mu sync.Mutex
}

// finalize persists res. Any returned error is fatal to the run; a unit
// that was already complete is silently skipped.
func (f *finalizer) finalize(ctx context.Context, res domain.Result) error {
	if res.CompletedAt.IsZero() {
		res.CompletedAt = time.Now().UTC()
	}

	f.mu.Lock()
	merged, err := f.cp.Merge(ctx, res)
	if err == nil && merged && f.sink != nil {
		if serr := f.sink.Write(res); serr != nil {
			err = fmt.Errorf("failed to write unit %s to result sink: %w", res.UnitID, serr)
		}
	}
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if !merged {
		return nil
	}

	f.logger.Info("unit finished",
		"unit_id", res.UnitID,
		"lane", res.Lane,
		"status", res.Status,
		"attempts", res.Attempts)
	f.emit(ctx, res.UnitID, res.Lane, res.Status, res.Attempts)
	return nil
}

// emit publishes a status change. Handler failures never affect the run.
func (f *finalizer) emit(ctx context.Context, unitID string, lane int, status domain.UnitStatus, attempts int) {
	if f.emitter == nil {
		return
	}
	event := events.NewUnitEvent(f.runID, unitID, lane, status, attempts)
	if err := f.emitter.EmitEvent(ctx, event); err != nil {
		f.logger.Warn("failed to emit unit event",
			"unit_id", unitID,
			"status", status,
			"error", err)
	}
}
