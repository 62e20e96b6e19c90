package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-quizgen/internal/domain"
	"github.com/phrazzld/scry-quizgen/internal/events"
)

func TestProgressTracksLatestStatus(t *testing.T) {
	t.Parallel()
	p := NewProgress()
	p.start("run-1", ModeInteractive, 5, 1)
	ctx := context.Background()

	emit := func(unit string, lane int, status domain.UnitStatus) {
		require.NoError(t, p.HandleEvent(ctx, events.NewUnitEvent("run-1", unit, lane, status, 1)))
	}
	emit("a", 0, domain.UnitStatusInProgress)
	emit("b", 1, domain.UnitStatusInProgress)
	emit("a", 0, domain.UnitStatusAccepted)
	emit("c", 0, domain.UnitStatusInProgress)
	emit("c", 0, domain.UnitStatusFailed)

	s := p.Snapshot()
	assert.True(t, s.Running)
	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 1, s.InProgress)
	assert.Equal(t, 1, s.Accepted)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 3, s.Done, "already complete plus terminal units")
	assert.Equal(t, map[int]int{0: 2}, s.Lanes)

	p.finish()
	assert.False(t, p.Snapshot().Running)
}

func TestProgressIgnoresOtherRuns(t *testing.T) {
	t.Parallel()
	p := NewProgress()
	p.start("current", ModeBatch, 2, 0)

	require.NoError(t, p.HandleEvent(context.Background(), events.NewUnitEvent("stale", "a", 0, domain.UnitStatusAccepted, 1)))
	require.NoError(t, p.HandleEvent(context.Background(), nil))

	s := p.Snapshot()
	assert.Zero(t, s.Accepted)
	assert.Zero(t, s.Done)
}

func TestProgressIdle(t *testing.T) {
	t.Parallel()
	s := NewProgress().Snapshot()
	assert.False(t, s.Running)
	assert.Zero(t, s.Elapsed)
	assert.Empty(t, s.RunID)
}
