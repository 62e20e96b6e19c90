// Package credential holds the immutable pool of API credentials that bounds
// and feeds the orchestrator's execution lanes.
package credential

import (
	"errors"
	"fmt"
	"strings"

	"github.com/phrazzld/scry-quizgen/internal/redact"
)

// HardMaxLanes caps lane fan-out regardless of pool size or configuration.
const HardMaxLanes = 64

var (
	// ErrEmptyPool is returned when a pool would contain no credentials.
	ErrEmptyPool = errors.New("credential pool cannot be empty")

	// ErrInvalidCredential is returned for blank or duplicated credentials.
	ErrInvalidCredential = errors.New("invalid credential")
)

// Pool is an ordered, non-empty, immutable sequence of credential tokens.
// Its size caps the number of concurrent lanes.
type Pool struct {
	tokens []string
}

// NewPool validates tokens and returns a Pool owning a private copy of them.
func NewPool(tokens []string) (*Pool, error) {
	if len(tokens) == 0 {
		return nil, ErrEmptyPool
	}

	seen := make(map[string]struct{}, len(tokens))
	owned := make([]string, 0, len(tokens))
	for i, raw := range tokens {
		token := strings.TrimSpace(raw)
		if token == "" {
			return nil, fmt.Errorf("%w: credential %d is blank", ErrInvalidCredential, i)
		}
		if _, dup := seen[token]; dup {
			return nil, fmt.Errorf("%w: credential %d (%s) is duplicated", ErrInvalidCredential, i, redact.Credential(token))
		}
		seen[token] = struct{}{}
		owned = append(owned, token)
	}

	return &Pool{tokens: owned}, nil
}

// Len returns the number of credentials.
func (p *Pool) Len() int {
	return len(p.tokens)
}

// At returns the credential assigned to lane i.
func (p *Pool) At(i int) string {
	return p.tokens[i]
}

// LaneCount returns min(pool size, configured cap, HardMaxLanes).
// A non-positive cap means "no configured cap".
func (p *Pool) LaneCount(configuredMax int) int {
	n := len(p.tokens)
	if configuredMax > 0 && configuredMax < n {
		n = configuredMax
	}
	if n > HardMaxLanes {
		n = HardMaxLanes
	}
	return n
}

// Fingerprints returns log-safe renderings of every credential, in order.
func (p *Pool) Fingerprints() []string {
	out := make([]string, len(p.tokens))
	for i, t := range p.tokens {
		out[i] = redact.Credential(t)
	}
	return out
}
