package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/phrazzld/scry-quizgen/internal/domain"
	"github.com/phrazzld/scry-quizgen/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	l, _ := logger.NewTestLogger(t)
	path := filepath.Join(t.TempDir(), "nested", "checkpoint.jsonl")

	store, err := NewFileStore(path, l)
	require.NoError(t, err)
	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)

	require.NoError(t, store.Save(context.Background(), acceptedResult("a", 1)))
	rejected := domain.Result{UnitID: "b", Status: domain.UnitStatusRejected, Attempts: 2, FailedChecks: []string{"x", "y"}}
	require.NoError(t, store.Save(context.Background(), rejected))
	// Duplicate saves are no-ops.
	require.NoError(t, store.Save(context.Background(), acceptedResult("a", 9)))
	require.NoError(t, store.Close())

	reopened, err := NewFileStore(path, l)
	require.NoError(t, err)
	got, err := reopened.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got["a"].Attempts)
	assert.Equal(t, []string{"x", "y"}, got["b"].FailedChecks)
	assert.Equal(t, domain.ContentRawText, got["a"].Content.Kind)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(data))
}

func TestFileStoreIgnoresTornTail(t *testing.T) {
	t.Parallel()

	l, buf := logger.NewTestLogger(t)
	path := filepath.Join(t.TempDir(), "checkpoint.jsonl")

	store, err := NewFileStore(path, l)
	require.NoError(t, err)
	_, err = store.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), acceptedResult("good", 1)))
	require.NoError(t, store.Close())

	// Simulate a crash in the middle of appending a second entry.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"unit_id":"torn","sta`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened, err := NewFileStore(path, l)
	require.NoError(t, err)
	got, err := reopened.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, buf.String(), "ignoring incomplete trailing checkpoint line")

	require.NoError(t, reopened.Save(context.Background(), acceptedResult("next", 1)))
	require.NoError(t, reopened.Close())

	final, err := NewFileStore(path, l)
	require.NoError(t, err)
	got, err = final.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "next")
}

func TestFileStoreUnterminatedValidLine(t *testing.T) {
	t.Parallel()

	l, _ := logger.NewTestLogger(t)
	path := filepath.Join(t.TempDir(), "checkpoint.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"unit_id":"a","status":"failed","attempts":3,"lane":0,"completed_at":"2026-01-01T00:00:00Z"}`), 0o644))

	store, err := NewFileStore(path, l)
	require.NoError(t, err)
	got, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Contains(t, got, "a")

	require.NoError(t, store.Save(context.Background(), acceptedResult("b", 1)))
	require.NoError(t, store.Close())

	again, err := NewFileStore(path, l)
	require.NoError(t, err)
	got, err = again.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFileStoreCorruptMiddleLine(t *testing.T) {
	t.Parallel()

	l, _ := logger.NewTestLogger(t)
	path := filepath.Join(t.TempDir(), "checkpoint.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("not json\n{\"unit_id\":\"a\"}\n"), 0o644))

	store, err := NewFileStore(path, l)
	require.NoError(t, err)
	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestFileStoreWithCheckpoint(t *testing.T) {
	t.Parallel()

	l, _ := logger.NewTestLogger(t)
	path := filepath.Join(t.TempDir(), "checkpoint.jsonl")

	store, err := NewFileStore(path, l)
	require.NoError(t, err)
	cp, err := Open(context.Background(), store, l)
	require.NoError(t, err)
	_, err = cp.Merge(context.Background(), acceptedResult("x", 1))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store2, err := NewFileStore(path, l)
	require.NoError(t, err)
	cp2, err := Open(context.Background(), store2, l)
	require.NoError(t, err)
	assert.True(t, cp2.IsComplete("x"))
}

func countLines(data []byte) int {
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}
