package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/scry-quizgen/internal/domain"
	"github.com/phrazzld/scry-quizgen/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acceptedResult(id string, attempts int) domain.Result {
	content := domain.RawTextContent("question for " + id)
	return domain.Result{
		UnitID:      id,
		Status:      domain.UnitStatusAccepted,
		Attempts:    attempts,
		Content:     &content,
		CompletedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestOpenLoadsExistingResults(t *testing.T) {
	t.Parallel()

	l, _ := logger.NewTestLogger(t)
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), acceptedResult("b", 1)))
	require.NoError(t, store.Save(context.Background(), acceptedResult("a", 2)))

	cp, err := Open(context.Background(), store, l)
	require.NoError(t, err)
	assert.Equal(t, 2, cp.Len())
	assert.Equal(t, []string{"a", "b"}, cp.Completed())
	assert.True(t, cp.IsComplete("a"))
	assert.False(t, cp.IsComplete("c"))
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), cp.LastUpdated())
}

func TestMergeIsIdempotent(t *testing.T) {
	t.Parallel()

	l, _ := logger.NewTestLogger(t)
	store := NewMemoryStore()
	cp, err := Open(context.Background(), store, l)
	require.NoError(t, err)

	first := acceptedResult("unit-1", 1)
	merged, err := cp.Merge(context.Background(), first)
	require.NoError(t, err)
	assert.True(t, merged)

	completedBefore := cp.Completed()
	resultsBefore := cp.Results()

	// A replayed write after a simulated crash must not change anything.
	replay := acceptedResult("unit-1", 3)
	replay.Status = domain.UnitStatusRejected
	merged, err = cp.Merge(context.Background(), replay)
	require.NoError(t, err)
	assert.False(t, merged)

	assert.Equal(t, completedBefore, cp.Completed())
	assert.Equal(t, resultsBefore, cp.Results())
	assert.Equal(t, 1, store.Saves(), "the store should only see the first write")
}

func TestMergeStoreFailureIsWriteError(t *testing.T) {
	t.Parallel()

	l, _ := logger.NewTestLogger(t)
	store := NewMemoryStore()
	store.SaveFn = func(ctx context.Context, r domain.Result) error {
		return errors.New("disk full")
	}
	cp, err := Open(context.Background(), store, l)
	require.NoError(t, err)

	merged, err := cp.Merge(context.Background(), acceptedResult("u", 1))
	assert.False(t, merged)
	require.Error(t, err)
	assert.True(t, IsWriteError(err))

	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "u", we.UnitID)
	assert.False(t, cp.IsComplete("u"), "failed writes must not be visible")
}

func TestMergeRejectsInvalidResult(t *testing.T) {
	t.Parallel()

	l, _ := logger.NewTestLogger(t)
	cp, err := Open(context.Background(), NewMemoryStore(), l)
	require.NoError(t, err)

	_, err = cp.Merge(context.Background(), domain.Result{UnitID: "x", Status: domain.UnitStatusPending})
	require.Error(t, err)
	assert.False(t, IsWriteError(err))
	assert.Zero(t, cp.Len())
}

func TestMergeStampsCompletionTime(t *testing.T) {
	t.Parallel()

	l, _ := logger.NewTestLogger(t)
	cp, err := Open(context.Background(), NewMemoryStore(), l)
	require.NoError(t, err)

	r := domain.Result{UnitID: "f", Status: domain.UnitStatusFailed, LastError: "boom"}
	_, err = cp.Merge(context.Background(), r)
	require.NoError(t, err)

	got, ok := cp.Result("f")
	require.True(t, ok)
	assert.False(t, got.CompletedAt.IsZero())
	assert.Equal(t, got.CompletedAt, cp.LastUpdated())
}

func TestConcurrentMerges(t *testing.T) {
	t.Parallel()

	l, _ := logger.NewTestLogger(t)
	store := NewMemoryStore()
	cp, err := Open(context.Background(), store, l)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for lane := 0; lane < 8; lane++ {
		wg.Add(1)
		go func(lane int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				// Every lane also replays a shared ID to exercise the duplicate path.
				_, _ = cp.Merge(context.Background(), acceptedResult(fmt.Sprintf("l%d-u%d", lane, i), 1))
				_, _ = cp.Merge(context.Background(), acceptedResult("shared", 1))
			}
		}(lane)
	}
	wg.Wait()

	assert.Equal(t, 8*25+1, cp.Len())
	assert.Equal(t, 8*25+1, store.Saves())
}

func TestOpenNilStore(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), nil, nil)
	assert.Error(t, err)
}
