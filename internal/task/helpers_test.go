package task

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-quizgen/internal/checkpoint"
	"github.com/phrazzld/scry-quizgen/internal/credential"
	"github.com/phrazzld/scry-quizgen/internal/domain"
	"github.com/phrazzld/scry-quizgen/internal/generation"
	"github.com/phrazzld/scry-quizgen/internal/platform/logger"
)

// makeUnits returns n pending units u00..u(n-1) whose payload is the JSON
// string of the unit ID.
func makeUnits(n int) []domain.WorkUnit {
	units := make([]domain.WorkUnit, n)
	for i := range units {
		id := fmt.Sprintf("u%02d", i)
		units[i] = domain.WorkUnit{
			ID:      id,
			Payload: json.RawMessage(fmt.Sprintf("%q", id)),
			Status:  domain.UnitStatusPending,
		}
	}
	return units
}

func unitIDOf(t *testing.T, payload json.RawMessage) string {
	t.Helper()
	var id string
	require.NoError(t, json.Unmarshal(payload, &id))
	return id
}

// fakeGenerator records every call and delegates to GenerateFn when set.
// Without GenerateFn it returns a structured document naming the unit.
type fakeGenerator struct {
	t          *testing.T
	GenerateFn func(unitID string, call int, credential string) (domain.Content, error)

	mu    sync.Mutex
	calls map[string]int
	creds map[string]map[string]struct{}
}

func newFakeGenerator(t *testing.T) *fakeGenerator {
	return &fakeGenerator{
		t:     t,
		calls: make(map[string]int),
		creds: make(map[string]map[string]struct{}),
	}
}

func (g *fakeGenerator) Generate(_ context.Context, payload json.RawMessage, credential string) (domain.Content, error) {
	id := unitIDOf(g.t, payload)

	g.mu.Lock()
	g.calls[id]++
	call := g.calls[id]
	if g.creds[credential] == nil {
		g.creds[credential] = make(map[string]struct{})
	}
	g.creds[credential][id] = struct{}{}
	g.mu.Unlock()

	if g.GenerateFn != nil {
		return g.GenerateFn(id, call, credential)
	}
	return questionFor(id), nil
}

func (g *fakeGenerator) callsFor(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[id]
}

func (g *fakeGenerator) totalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

func (g *fakeGenerator) unitsFor(credential string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.creds[credential])
}

func questionFor(id string) domain.Content {
	return domain.StructuredContent(json.RawMessage(fmt.Sprintf(`{"question":"about %s","answer":"a"}`, id)))
}

// passChecker reports every check as passed.
func passChecker() generation.Checker {
	return generation.CheckerFunc(func(context.Context, domain.Content, json.RawMessage, string) (map[string]bool, error) {
		return map[string]bool{"clarity": true, "correctness": true, "distractors": true}, nil
	})
}

// checksWithFailures returns a check map where the first n checks fail.
func checksWithFailures(n int) map[string]bool {
	names := []string{"clarity", "correctness", "distractors", "length"}
	out := make(map[string]bool, len(names))
	for i, name := range names {
		out[name] = i >= n
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryBase = time.Millisecond
	cfg.CallTimeout = 5 * time.Second
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg Config, deps Deps, opts ...Option) *Orchestrator {
	t.Helper()
	log, _ := logger.NewTestLogger(t)
	o, err := New(cfg, deps, log, opts...)
	require.NoError(t, err)
	return o
}

func newPool(t *testing.T, n int) *credential.Pool {
	t.Helper()
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("test-key-%d", i)
	}
	pool, err := credential.NewPool(tokens)
	require.NoError(t, err)
	return pool
}

func openCheckpoint(t *testing.T, store checkpoint.Store) *checkpoint.Checkpoint {
	t.Helper()
	log, _ := logger.NewTestLogger(t)
	cp, err := checkpoint.Open(context.Background(), store, log)
	require.NoError(t, err)
	return cp
}
