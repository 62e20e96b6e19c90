package checkpoint

import (
	"context"
	"sync"

	"github.com/phrazzld/scry-quizgen/internal/domain"
)

// MemoryStore is a non-durable Store, used for dry runs and tests.
type MemoryStore struct {
	mu      sync.Mutex
	results map[string]domain.Result
	saves   int

	// SaveFn, when set, replaces the default Save behaviour.
	SaveFn func(ctx context.Context, result domain.Result) error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string]domain.Result)}
}

// Load returns a copy of the stored results.
func (s *MemoryStore) Load(_ context.Context) (map[string]domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]domain.Result, len(s.results))
	for id, r := range s.results {
		out[id] = r
	}
	return out, nil
}

// Save stores result unless the unit is already present.
func (s *MemoryStore) Save(ctx context.Context, result domain.Result) error {
	if s.SaveFn != nil {
		if err := s.SaveFn(ctx, result); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if _, ok := s.results[result.UnitID]; !ok {
		s.results[result.UnitID] = result
	}
	return nil
}

// Saves returns how many successful Save calls reached the store.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
