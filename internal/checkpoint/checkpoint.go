package checkpoint

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/scry-quizgen/internal/domain"
)

// Store is the durable key-value surface behind a Checkpoint, keyed by unit ID.
type Store interface {
	// Load returns every persisted result.
	Load(ctx context.Context) (map[string]domain.Result, error)

	// Save persists one result. Saving a unit ID that is already stored must
	// succeed without changing the stored value.
	Save(ctx context.Context, result domain.Result) error
}

// Checkpoint is the in-memory view of completed units, backed by a Store.
// Merge is safe for concurrent use by many lanes.
type Checkpoint struct {
	store  Store
	logger *slog.Logger

	mu          sync.RWMutex
	results     map[string]domain.Result
	lastUpdated time.Time
}

// Open loads every completed unit from store.
func Open(ctx context.Context, store Store, logger *slog.Logger) (*Checkpoint, error) {
	if store == nil {
		return nil, fmt.Errorf("checkpoint store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	results, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if results == nil {
		results = make(map[string]domain.Result)
	}

	var last time.Time
	for _, r := range results {
		if r.CompletedAt.After(last) {
			last = r.CompletedAt
		}
	}

	logger.Info("checkpoint loaded", "completed_units", len(results))

	return &Checkpoint{
		store:       store,
		logger:      logger.With("component", "checkpoint"),
		results:     results,
		lastUpdated: last,
	}, nil
}

// IsComplete reports whether unitID has a persisted result.
func (c *Checkpoint) IsComplete(unitID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.results[unitID]
	return ok
}

// Result returns the persisted result for unitID.
func (c *Checkpoint) Result(unitID string) (domain.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[unitID]
	return r, ok
}

// Len returns the number of completed units.
func (c *Checkpoint) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}

// Completed returns the sorted IDs of every completed unit.
func (c *Checkpoint) Completed() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.results))
	for id := range c.results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Results returns a copy of every completed result.
func (c *Checkpoint) Results() map[string]domain.Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]domain.Result, len(c.results))
	for id, r := range c.results {
		out[id] = r
	}
	return out
}

// LastUpdated is the completion time of the most recently merged unit.
func (c *Checkpoint) LastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdated
}

// Merge records a finished unit and persists it before returning.
//
// A unit that is already complete is left untouched and Merge reports
// merged=false. Store failures are returned as *WriteError and leave the
// in-memory view unchanged.
func (c *Checkpoint) Merge(ctx context.Context, result domain.Result) (bool, error) {
	if err := result.Validate(); err != nil {
		return false, fmt.Errorf("refusing to checkpoint unit %q: %w", result.UnitID, err)
	}
	if result.CompletedAt.IsZero() {
		result.CompletedAt = time.Now().UTC()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, done := c.results[result.UnitID]; done {
		c.logger.Debug("unit already checkpointed, ignoring merge", "unit_id", result.UnitID)
		return false, nil
	}

	if err := c.store.Save(ctx, result); err != nil {
		c.logger.Error("failed to persist checkpoint entry",
			"unit_id", result.UnitID,
			"status", result.Status,
			"error", err)
		return false, &WriteError{UnitID: result.UnitID, Err: err}
	}

	c.results[result.UnitID] = result
	if result.CompletedAt.After(c.lastUpdated) {
		c.lastUpdated = result.CompletedAt
	}
	return true, nil
}
