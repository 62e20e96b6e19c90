package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JobRecord is the persisted handle of an in-flight job. It is all a
// restarted run needs to reattach.
type JobRecord struct {
	JobID       string    `json:"job_id"`
	UnitIDs     []string  `json:"unit_ids"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// JobStore persists at most one JobRecord.
type JobStore interface {
	// Load returns the stored record, or nil if there is none.
	Load(ctx context.Context) (*JobRecord, error)
	Save(ctx context.Context, rec JobRecord) error
	Clear(ctx context.Context) error
}

// FileJobStore keeps the record in a JSON file, replaced atomically on Save.
type FileJobStore struct {
	path string
}

// NewFileJobStore returns a store backed by path.
func NewFileJobStore(path string) *FileJobStore {
	return &FileJobStore{path: path}
}

func (s *FileJobStore) Load(_ context.Context) (*JobRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	var rec JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode job file %s: %w", s.path, err)
	}
	if rec.JobID == "" {
		return nil, nil
	}
	return &rec, nil
}

func (s *FileJobStore) Save(_ context.Context, rec JobRecord) error {
	if rec.JobID == "" {
		return fmt.Errorf("job record without job ID")
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode job record: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create job directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".batch-job-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp job file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp job file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp job file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp job file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace job file: %w", err)
	}
	return nil
}

func (s *FileJobStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove job file: %w", err)
	}
	return nil
}

// MemoryJobStore is a JobStore for tests and dry runs.
type MemoryJobStore struct {
	mu  sync.Mutex
	rec *JobRecord
}

func (s *MemoryJobStore) Load(context.Context) (*JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return nil, nil
	}
	cp := *s.rec
	return &cp, nil
}

func (s *MemoryJobStore) Save(_ context.Context, rec JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = &rec
	return nil
}

func (s *MemoryJobStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	return nil
}
