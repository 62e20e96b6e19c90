// Package retry holds the single retry decision function shared by every
// external call site (generation, quality check, batch polling).
package retry

import (
	"math/rand"
	"sync"
	"time"

	"github.com/phrazzld/scry-quizgen/internal/generation"
)

// Default policy values.
const (
	DefaultMaxAttempts = 3
	DefaultBase        = time.Second
)

// Decision is the outcome of Policy.Decide.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// Policy decides whether a failed call should be retried and how long to
// wait first. Delays grow as Base * 2^(attempt-1) plus a random jitter in
// [0, Base) so that lanes sharing an endpoint family do not retry in lockstep.
type Policy struct {
	MaxAttempts int
	Base        time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPolicy creates a Policy, substituting defaults for non-positive values.
func NewPolicy(maxAttempts int, base time.Duration) *Policy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if base <= 0 {
		base = DefaultBase
	}
	return &Policy{
		MaxAttempts: maxAttempts,
		Base:        base,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Backoff returns the jitter-free delay for the given 1-based attempt.
func (p *Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	// Cap the shift so huge attempt counts cannot overflow.
	shift := attempt - 1
	if shift > 30 {
		shift = 30
	}
	return p.Base * time.Duration(1<<uint(shift))
}

// Decide reports whether the call that failed on the given 1-based attempt
// should be retried. Permanent errors never retry; transient errors retry
// until attempt exceeds MaxAttempts.
func (p *Policy) Decide(attempt int, class generation.ErrorClass) Decision {
	if class == generation.ClassPermanent {
		return Decision{}
	}
	if attempt > p.MaxAttempts {
		return Decision{}
	}
	return Decision{
		Retry: true,
		Delay: p.Backoff(attempt) + p.jitter(),
	}
}

// DecideErr is Decide with the class derived from err.
func (p *Policy) DecideErr(attempt int, err error) Decision {
	return p.Decide(attempt, generation.Classify(err))
}

func (p *Policy) jitter() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return time.Duration(p.rng.Int63n(int64(p.Base)))
}
