package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkUnit(t *testing.T) {
	t.Parallel()

	unit, err := NewWorkUnit("article-1", json.RawMessage(`{"title":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, UnitStatusPending, unit.Status)
	assert.Zero(t, unit.Attempts)

	_, err = NewWorkUnit("", nil)
	assert.ErrorIs(t, err, ErrEmptyUnitID)
}

func TestValidateUnits(t *testing.T) {
	t.Parallel()

	a, _ := NewWorkUnit("a", nil)
	b, _ := NewWorkUnit("b", nil)

	assert.NoError(t, ValidateUnits([]WorkUnit{a, b}))
	assert.ErrorIs(t, ValidateUnits(nil), ErrNoWorkUnits)
	assert.ErrorIs(t, ValidateUnits([]WorkUnit{a, b, a}), ErrDuplicateUnitID)

	bad := a
	bad.Status = "done"
	assert.ErrorIs(t, ValidateUnits([]WorkUnit{bad}), ErrInvalidUnitStatus)
}

func TestValidateAcceptsZeroStatus(t *testing.T) {
	t.Parallel()

	units := []WorkUnit{
		{ID: "a", Payload: json.RawMessage(`"a"`)},
		{ID: "b", Payload: json.RawMessage(`"b"`)},
	}
	assert.NoError(t, ValidateUnits(units))
	assert.NoError(t, units[0].Validate())

	units[1].ID = ""
	assert.ErrorIs(t, ValidateUnits(units), ErrEmptyUnitID)
}

func TestUnitStatusIsTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, UnitStatusPending.IsTerminal())
	assert.False(t, UnitStatusInProgress.IsTerminal())
	assert.True(t, UnitStatusAccepted.IsTerminal())
	assert.True(t, UnitStatusRejected.IsTerminal())
	assert.True(t, UnitStatusFailed.IsTerminal())
}

func TestResultValidate(t *testing.T) {
	t.Parallel()

	content := RawTextContent("q")
	ok := Result{UnitID: "u1", Status: UnitStatusAccepted, Attempts: 1, Content: &content, CompletedAt: time.Now()}
	assert.NoError(t, ok.Validate())

	noContent := ok
	noContent.Content = nil
	assert.ErrorIs(t, noContent.Validate(), ErrValidation)

	pending := ok
	pending.Status = UnitStatusPending
	assert.ErrorIs(t, pending.Validate(), ErrInvalidUnitStatus)

	failed := Result{UnitID: "u2", Status: UnitStatusFailed, LastError: "boom"}
	assert.NoError(t, failed.Validate())
}

func TestDecisionRankAndFailedNames(t *testing.T) {
	t.Parallel()

	assert.Less(t, DecisionAccept.Rank(), DecisionRetry.Rank())
	assert.Less(t, DecisionRetry.Rank(), DecisionReject.Rank())

	names := FailedCheckNames(map[string]bool{"stem_clear": true, "single_key": false, "distractors_plausible": false})
	assert.Equal(t, []string{"distractors_plausible", "single_key"}, names)
	assert.Nil(t, FailedCheckNames(map[string]bool{"a": true}))
}
