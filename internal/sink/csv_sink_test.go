package sink

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phrazzld/scry-quizgen/internal/domain"
	"github.com/phrazzld/scry-quizgen/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func accepted(id string) domain.Result {
	c := domain.StructuredContent([]byte(`{"stem":"What is 2+2?","options":["3","4"]}`))
	return domain.Result{
		UnitID:      id,
		Status:      domain.UnitStatusAccepted,
		Attempts:    1,
		Content:     &c,
		Lane:        1,
		CompletedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCSVSinkWritesHeaderAndRows(t *testing.T) {
	t.Parallel()

	l, _ := logger.NewTestLogger(t)
	path := filepath.Join(t.TempDir(), "out", "results.csv")

	s, err := OpenCSV(path, Options{IncludeRejected: true}, l)
	require.NoError(t, err)

	require.NoError(t, s.Write(accepted("u1")))
	require.NoError(t, s.Write(domain.Result{
		UnitID:       "u2",
		Status:       domain.UnitStatusRejected,
		Attempts:     2,
		FailedChecks: []string{"single_correct_answer", "stem_clarity"},
	}))
	require.NoError(t, s.Write(domain.Result{UnitID: "u3", Status: domain.UnitStatusFailed, LastError: "boom"}))
	// Duplicate write is ignored.
	require.NoError(t, s.Write(accepted("u1")))
	require.NoError(t, s.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"u1", "accepted", "1", "", "", "1", "structured",
		`{"stem":"What is 2+2?","options":["3","4"]}`, "2026-03-01T12:00:00Z"}, rows[1])
	assert.Equal(t, "u2", rows[2][0])
	assert.Equal(t, "rejected", rows[2][1])
	assert.Equal(t, "single_correct_answer;stem_clarity", rows[2][3])
}

func TestCSVSinkExcludesRejectedWhenConfigured(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.csv")
	s, err := OpenCSV(path, Options{IncludeRejected: false}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Write(domain.Result{UnitID: "r", Status: domain.UnitStatusRejected}))
	require.NoError(t, s.Write(accepted("a")))
	require.NoError(t, s.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[1][0])
	assert.False(t, s.Has("r"))
}

func TestCSVSinkReopenDoesNotDuplicate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.csv")
	s, err := OpenCSV(path, Options{IncludeRejected: true}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Write(accepted("a")))
	require.NoError(t, s.Close())

	s2, err := OpenCSV(path, Options{IncludeRejected: true}, nil)
	require.NoError(t, err)
	assert.True(t, s2.Has("a"))
	require.NoError(t, s2.Write(accepted("a")))
	require.NoError(t, s2.Write(accepted("b")))
	require.NoError(t, s2.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 3, "header written once, each unit once")
	assert.Equal(t, "a", rows[1][0])
	assert.Equal(t, "b", rows[2][0])
}

func TestCSVSinkReconcile(t *testing.T) {
	t.Parallel()

	l, buf := logger.NewTestLogger(t)
	path := filepath.Join(t.TempDir(), "results.csv")
	s, err := OpenCSV(path, Options{IncludeRejected: true}, l)
	require.NoError(t, err)
	require.NoError(t, s.Write(accepted("b")))

	results := map[string]domain.Result{
		"a": accepted("a"),
		"b": accepted("b"),
		"c": {UnitID: "c", Status: domain.UnitStatusFailed, LastError: "x"},
		"d": {UnitID: "d", Status: domain.UnitStatusRejected, FailedChecks: []string{"k"}},
	}
	added, err := s.Reconcile(results)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	require.NoError(t, s.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 4)
	assert.Equal(t, "b", rows[1][0])
	assert.Equal(t, "a", rows[2][0])
	assert.Equal(t, "d", rows[3][0])
	assert.Contains(t, buf.String(), "restored sink rows from checkpoint")
}

func TestRowRawText(t *testing.T) {
	t.Parallel()

	c := domain.RawTextContent("Which, of these \"quoted\" options?")
	row := Row(domain.Result{UnitID: "x", Status: domain.UnitStatusAccepted, Content: &c})
	assert.Equal(t, "raw_text", row[6])
	assert.Equal(t, c.Text, row[7])
	assert.Equal(t, "", row[8])
}
