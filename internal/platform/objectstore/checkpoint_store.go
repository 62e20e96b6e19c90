package objectstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/phrazzld/scry-quizgen/internal/batch"
	"github.com/phrazzld/scry-quizgen/internal/domain"
	"golang.org/x/sync/errgroup"
)

// loadConcurrency bounds parallel object fetches during Load.
const loadConcurrency = 8

// Store implements checkpoint.Store and batch.JobStore on a bucket.
// Checkpoint entries live under <prefix>/units/, the job handle at
// <prefix>/batch-job.json.
type Store struct {
	api    objectAPI
	prefix string
	logger *slog.Logger
}

// New connects to the bucket described by cfg, creating it if needed.
func New(ctx context.Context, cfg Config, prefix string, logger *slog.Logger) (*Store, error) {
	api, err := newMinioAPI(cfg)
	if err != nil {
		return nil, err
	}
	if err := api.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return newStore(api, prefix, logger), nil
}

func newStore(api objectAPI, prefix string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		api:    api,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.With("component", "object_checkpoint_store", "prefix", prefix),
	}
}

func (s *Store) unitsPrefix() string {
	return path.Join(s.prefix, "units") + "/"
}

func (s *Store) unitKey(unitID string) string {
	return s.unitsPrefix() + url.PathEscape(unitID) + ".json"
}

func (s *Store) jobKey() string {
	return path.Join(s.prefix, "batch-job.json")
}

// Load fetches every checkpoint entry under the prefix.
func (s *Store) Load(ctx context.Context) (map[string]domain.Result, error) {
	keys, err := s.api.List(ctx, s.unitsPrefix())
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		results = make(map[string]domain.Result, len(keys))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		g.Go(func() error {
			data, err := s.api.Get(gctx, key)
			if err != nil {
				return err
			}
			var r domain.Result
			if err := json.Unmarshal(data, &r); err != nil {
				return fmt.Errorf("invalid checkpoint object %s: %w", key, err)
			}
			mu.Lock()
			results[r.UnitID] = r
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Debug("loaded checkpoint objects", "count", len(results))
	return results, nil
}

// Save writes result unless an object for the unit already exists.
func (s *Store) Save(ctx context.Context, result domain.Result) error {
	key := s.unitKey(result.UnitID)
	exists, err := s.api.Exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Debug("checkpoint object already present", "unit_id", result.UnitID)
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint entry: %w", err)
	}
	return s.api.Put(ctx, key, data)
}

// JobStore returns the batch job handle store sharing this bucket prefix.
func (s *Store) JobStore() batch.JobStore {
	return &jobStore{s: s}
}

type jobStore struct {
	s *Store
}

func (j *jobStore) Load(ctx context.Context) (*batch.JobRecord, error) {
	data, err := j.s.api.Get(ctx, j.s.jobKey())
	if errors.Is(err, ErrObjectNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec batch.JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("invalid batch job object: %w", err)
	}
	return &rec, nil
}

func (j *jobStore) Save(ctx context.Context, rec batch.JobRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode job record: %w", err)
	}
	return j.s.api.Put(ctx, j.s.jobKey(), data)
}

func (j *jobStore) Clear(ctx context.Context) error {
	return j.s.api.Delete(ctx, j.s.jobKey())
}
