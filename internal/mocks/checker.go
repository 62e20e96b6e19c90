package mocks

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/phrazzld/scry-quizgen/internal/domain"
	"github.com/phrazzld/scry-quizgen/internal/generation"
)

// MockChecker implements generation.Checker for testing.
type MockChecker struct {
	// CheckFn overrides the default behavior when set.
	CheckFn func(ctx context.Context, content domain.Content, payload json.RawMessage, credential string) (map[string]bool, error)

	// Results and Err are returned when CheckFn is nil.
	Results map[string]bool
	Err     error

	mu    sync.Mutex
	count int
}

// Check implements generation.Checker.
func (m *MockChecker) Check(ctx context.Context, content domain.Content, payload json.RawMessage, credential string) (map[string]bool, error) {
	m.mu.Lock()
	m.count++
	m.mu.Unlock()

	if m.CheckFn != nil {
		return m.CheckFn(ctx, content, payload, credential)
	}
	return m.Results, m.Err
}

// CallCount returns the number of Check calls.
func (m *MockChecker) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

var _ generation.Checker = (*MockChecker)(nil)
