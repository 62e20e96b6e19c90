package retry

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/phrazzld/scry-quizgen/internal/generation"
	"github.com/stretchr/testify/assert"
)

func TestNewPolicyDefaults(t *testing.T) {
	t.Parallel()

	p := NewPolicy(0, 0)
	assert.Equal(t, DefaultMaxAttempts, p.MaxAttempts)
	assert.Equal(t, DefaultBase, p.Base)
}

func TestBackoffIsExponential(t *testing.T) {
	t.Parallel()

	p := NewPolicy(3, time.Second)
	assert.Equal(t, time.Second, p.Backoff(1))
	assert.Equal(t, 2*time.Second, p.Backoff(2))
	assert.Equal(t, 4*time.Second, p.Backoff(3))
	assert.Equal(t, time.Second, p.Backoff(0))
	assert.Positive(t, p.Backoff(1000))
}

func TestDecideTransientDelayBands(t *testing.T) {
	t.Parallel()

	p := NewPolicy(3, time.Second)
	bands := []struct {
		attempt  int
		min, max time.Duration
	}{
		{1, time.Second, 2 * time.Second},
		{2, 2 * time.Second, 3 * time.Second},
		{3, 4 * time.Second, 5 * time.Second},
	}

	// Repeat to exercise the jitter distribution.
	for i := 0; i < 200; i++ {
		for _, b := range bands {
			d := p.Decide(b.attempt, generation.ClassTransient)
			assert.True(t, d.Retry, "attempt %d should retry", b.attempt)
			assert.GreaterOrEqual(t, d.Delay, b.min, "attempt %d", b.attempt)
			assert.Less(t, d.Delay, b.max, "attempt %d", b.attempt)
		}
	}
}

func TestDecideStopsAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	p := NewPolicy(3, time.Second)
	d := p.Decide(4, generation.ClassTransient)
	assert.False(t, d.Retry)
	assert.Zero(t, d.Delay)
}

func TestDecidePermanentNeverRetries(t *testing.T) {
	t.Parallel()

	p := NewPolicy(3, time.Second)
	for attempt := 1; attempt <= 3; attempt++ {
		assert.False(t, p.Decide(attempt, generation.ClassPermanent).Retry)
	}
}

func TestDecideErr(t *testing.T) {
	t.Parallel()

	p := NewPolicy(2, 10*time.Millisecond)
	assert.True(t, p.DecideErr(1, fmt.Errorf("%w: 503", generation.ErrTransient)).Retry)
	assert.False(t, p.DecideErr(1, fmt.Errorf("%w: bad key", generation.ErrPermanent)).Retry)
	assert.False(t, p.DecideErr(1, errors.New("unclassified")).Retry)
}
