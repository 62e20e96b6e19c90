package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-quizgen/internal/domain"
	"github.com/phrazzld/scry-quizgen/internal/generation"
	"github.com/phrazzld/scry-quizgen/internal/mocks"
	"github.com/phrazzld/scry-quizgen/internal/platform/logger"
	"github.com/phrazzld/scry-quizgen/internal/retry"
)

func echoGenerator() *mocks.MockGenerator {
	return &mocks.MockGenerator{
		GenerateFn: func(_ context.Context, payload json.RawMessage, _ string) (domain.Content, error) {
			return domain.RawTextContent("q:" + string(payload)), nil
		},
	}
}

func waitForTerminal(t *testing.T, e *LocalEndpoint, jobID string) *Job {
	t.Helper()
	e.Wait()
	job, err := e.Poll(context.Background(), jobID)
	require.NoError(t, err)
	require.True(t, job.Status.IsTerminal(), "status %s", job.Status)
	return job
}

func TestLocalEndpointProcessesJob(t *testing.T) {
	t.Parallel()
	log, _ := logger.NewTestLogger(t)
	gen := echoGenerator()
	e, err := NewLocalEndpoint(gen, "key-1", log, WithConcurrency(2))
	require.NoError(t, err)
	defer e.Close()

	id, err := e.Submit(context.Background(), []Request{
		{UnitID: "a", Payload: json.RawMessage(`1`)},
		{UnitID: "b", Payload: json.RawMessage(`2`)},
		{UnitID: "c", Payload: json.RawMessage(`3`)},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job := waitForTerminal(t, e, id)
	assert.Equal(t, StatusCompleted, job.Status)
	require.Len(t, job.Results, 3)
	require.NotNil(t, job.Results["b"].Content)
	assert.Equal(t, "q:2", job.Results["b"].Content.Text)
	assert.Equal(t, 3, gen.CallCount())
	assert.Equal(t, []string{"key-1"}, gen.Credentials())
}

func TestLocalEndpointPerUnitFailure(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	gen := generation.GeneratorFunc(func(_ context.Context, payload json.RawMessage, _ string) (domain.Content, error) {
		calls.Add(1)
		if string(payload) == `"bad"` {
			return domain.Content{}, fmt.Errorf("%w: malformed payload", generation.ErrPermanent)
		}
		return domain.RawTextContent("ok"), nil
	})
	e, err := NewLocalEndpoint(gen, "key", nil, WithRetryPolicy(retry.NewPolicy(3, time.Millisecond)))
	require.NoError(t, err)
	defer e.Close()

	id, err := e.Submit(context.Background(), []Request{
		{UnitID: "good", Payload: json.RawMessage(`"good"`)},
		{UnitID: "bad", Payload: json.RawMessage(`"bad"`)},
	})
	require.NoError(t, err)

	job := waitForTerminal(t, e, id)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.NotNil(t, job.Results["good"].Content)
	assert.Nil(t, job.Results["bad"].Content)
	assert.Contains(t, job.Results["bad"].Error, "malformed payload")
	assert.Equal(t, int32(2), calls.Load(), "permanent errors are not retried")
}

func TestLocalEndpointRetriesTransient(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	gen := generation.GeneratorFunc(func(context.Context, json.RawMessage, string) (domain.Content, error) {
		if calls.Add(1) < 3 {
			return domain.Content{}, generation.ErrTransient
		}
		return domain.RawTextContent("ok"), nil
	})
	e, err := NewLocalEndpoint(gen, "key", nil, WithRetryPolicy(retry.NewPolicy(3, time.Millisecond)))
	require.NoError(t, err)
	defer e.Close()

	id, err := e.Submit(context.Background(), []Request{{UnitID: "a", Payload: json.RawMessage(`{}`)}})
	require.NoError(t, err)

	job := waitForTerminal(t, e, id)
	assert.NotNil(t, job.Results["a"].Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestLocalEndpointPollUnknownJob(t *testing.T) {
	t.Parallel()
	e, err := NewLocalEndpoint(echoGenerator(), "key", nil)
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Poll(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestLocalEndpointRejectsEmptyBatch(t *testing.T) {
	t.Parallel()
	e, err := NewLocalEndpoint(echoGenerator(), "key", nil)
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Submit(context.Background(), nil)
	assert.ErrorIs(t, err, generation.ErrPermanent)
}

func TestNewLocalEndpointValidation(t *testing.T) {
	t.Parallel()
	_, err := NewLocalEndpoint(nil, "key", nil)
	assert.Error(t, err)
	_, err = NewLocalEndpoint(echoGenerator(), "", nil)
	assert.Error(t, err)
}

func TestLocalEndpointWithClient(t *testing.T) {
	t.Parallel()
	log, _ := logger.NewTestLogger(t)
	e, err := NewLocalEndpoint(echoGenerator(), "key", log)
	require.NoError(t, err)
	defer e.Close()

	c := newTestClient(t, e, &MemoryJobStore{})
	rec, err := c.Submit(context.Background(), testUnits("x", "y"))
	require.NoError(t, err)

	job, err := c.Resume(context.Background(), rec.JobID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Len(t, job.Results, 2)
}
