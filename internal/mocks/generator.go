package mocks

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/phrazzld/scry-quizgen/internal/domain"
	"github.com/phrazzld/scry-quizgen/internal/generation"
)

// GenerateCall records the arguments of one Generate call.
type GenerateCall struct {
	Payload    json.RawMessage
	Credential string
}

// MockGenerator implements generation.Generator for testing.
type MockGenerator struct {
	// GenerateFn overrides the default behavior when set.
	GenerateFn func(ctx context.Context, payload json.RawMessage, credential string) (domain.Content, error)

	// Content and Err are returned when GenerateFn is nil.
	Content domain.Content
	Err     error

	mu    sync.Mutex
	calls []GenerateCall
}

// Generate implements generation.Generator.
func (m *MockGenerator) Generate(ctx context.Context, payload json.RawMessage, credential string) (domain.Content, error) {
	m.mu.Lock()
	m.calls = append(m.calls, GenerateCall{Payload: payload, Credential: credential})
	m.mu.Unlock()

	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, payload, credential)
	}
	return m.Content, m.Err
}

// Calls returns a copy of every call made so far.
func (m *MockGenerator) Calls() []GenerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GenerateCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Generate calls.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Credentials returns the distinct credentials seen, in first-use order.
func (m *MockGenerator) Credentials() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, c := range m.calls {
		if _, ok := seen[c.Credential]; ok {
			continue
		}
		seen[c.Credential] = struct{}{}
		out = append(out, c.Credential)
	}
	return out
}

var _ generation.Generator = (*MockGenerator)(nil)
