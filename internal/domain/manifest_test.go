package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnitsYAML(t *testing.T) {
	t.Parallel()

	data := []byte(`
- id: art-1
  payload:
    title: Photosynthesis
    questions: 3
- id: art-2
  payload: "plain text article"
`)
	units, err := ParseUnits(data)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "art-1", units[0].ID)
	assert.JSONEq(t, `{"title":"Photosynthesis","questions":3}`, string(units[0].Payload))
	assert.JSONEq(t, `"plain text article"`, string(units[1].Payload))
	assert.Equal(t, UnitStatusPending, units[1].Status)
}

func TestParseUnitsJSON(t *testing.T) {
	t.Parallel()

	units, err := ParseUnits([]byte(`[{"id":"a","payload":{"n":1}},{"id":"b","payload":null}]`))
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.JSONEq(t, `null`, string(units[1].Payload))
}

func TestParseUnitsErrors(t *testing.T) {
	t.Parallel()

	_, err := ParseUnits([]byte(`- id: a
- id: a
`))
	assert.ErrorIs(t, err, ErrDuplicateUnitID)

	_, err = ParseUnits([]byte(`- payload: x`))
	assert.ErrorIs(t, err, ErrEmptyUnitID)

	_, err = ParseUnits([]byte(`[]`))
	assert.ErrorIs(t, err, ErrNoWorkUnits)

	_, err = ParseUnits([]byte(`{not: [a list`))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLoadUnits(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "units.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- id: only\n  payload: {k: v}\n"), 0o600))

	units, err := LoadUnits(path)
	require.NoError(t, err)
	require.Len(t, units, 1)

	_, err = LoadUnits(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
