package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/phrazzld/scry-quizgen/internal/batch"
	"github.com/phrazzld/scry-quizgen/internal/store"
)

// JobStore implements batch.JobStore on the quizgen_batch_jobs table, one
// row per namespace.
type JobStore struct {
	db        *sql.DB
	namespace string
}

// NewJobStore creates a JobStore for namespace.
func NewJobStore(db *sql.DB, namespace string) *JobStore {
	return &JobStore{db: db, namespace: namespace}
}

func (s *JobStore) Load(ctx context.Context) (*batch.JobRecord, error) {
	var (
		rec     batch.JobRecord
		unitIDs []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT job_id, unit_ids, submitted_at FROM quizgen_batch_jobs WHERE namespace = $1`,
		s.namespace,
	).Scan(&rec.JobID, &unitIDs, &rec.SubmittedAt)
	if err != nil {
		mapped := MapError(err)
		if store.IsNotFoundError(mapped) {
			return nil, nil
		}
		return nil, store.NewStoreError("batch_job", "load", "query failed", mapped)
	}
	if err := json.Unmarshal(unitIDs, &rec.UnitIDs); err != nil {
		return nil, store.NewStoreError("batch_job", "load", "invalid unit_ids", err)
	}
	rec.SubmittedAt = rec.SubmittedAt.UTC()
	return &rec, nil
}

// Save replaces the namespace's record in one transaction.
func (s *JobStore) Save(ctx context.Context, rec batch.JobRecord) error {
	unitIDs, err := json.Marshal(rec.UnitIDs)
	if err != nil {
		return fmt.Errorf("failed to encode unit ids: %w", err)
	}

	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM quizgen_batch_jobs WHERE namespace = $1`, s.namespace); err != nil {
			return store.NewStoreError("batch_job", "save", "delete failed", MapError(err))
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO quizgen_batch_jobs (namespace, job_id, unit_ids, submitted_at) VALUES ($1, $2, $3, $4)`,
			s.namespace, rec.JobID, unitIDs, rec.SubmittedAt,
		); err != nil {
			return store.NewStoreError("batch_job", "save", "insert failed", MapError(err))
		}
		return nil
	})
}

func (s *JobStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM quizgen_batch_jobs WHERE namespace = $1`, s.namespace); err != nil {
		return store.NewStoreError("batch_job", "clear", "delete failed", MapError(err))
	}
	return nil
}
