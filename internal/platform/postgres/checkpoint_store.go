package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-quizgen/internal/domain"
	"github.com/phrazzld/scry-quizgen/internal/store"
)

// CheckpointStore implements checkpoint.Store on the quizgen_checkpoint
// table. Rows are partitioned by namespace so several runs can share a
// database.
type CheckpointStore struct {
	db        store.DBTX
	namespace string
	logger    *slog.Logger
}

// NewCheckpointStore creates a CheckpointStore for namespace.
func NewCheckpointStore(db store.DBTX, namespace string, logger *slog.Logger) *CheckpointStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckpointStore{
		db:        db,
		namespace: namespace,
		logger:    logger.With("component", "postgres_checkpoint_store", "namespace", namespace),
	}
}

// Load returns every result recorded for the namespace.
func (s *CheckpointStore) Load(ctx context.Context) (map[string]domain.Result, error) {
	query := `
		SELECT unit_id, status, attempts, content, failed_checks, last_error, lane, completed_at
		FROM quizgen_checkpoint
		WHERE namespace = $1
	`

	rows, err := s.db.QueryContext(ctx, query, s.namespace)
	if err != nil {
		return nil, store.NewStoreError("checkpoint_entry", "load", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	results := make(map[string]domain.Result)
	for rows.Next() {
		var (
			r            domain.Result
			status       string
			content      []byte
			failedChecks []byte
		)
		if err := rows.Scan(
			&r.UnitID,
			&status,
			&r.Attempts,
			&content,
			&failedChecks,
			&r.LastError,
			&r.Lane,
			&r.CompletedAt,
		); err != nil {
			return nil, store.NewStoreError("checkpoint_entry", "load", "scan failed", err)
		}
		r.Status = domain.UnitStatus(status)
		if len(content) > 0 {
			var c domain.Content
			if err := json.Unmarshal(content, &c); err != nil {
				return nil, store.NewStoreError("checkpoint_entry", "load",
					fmt.Sprintf("invalid content for unit %q", r.UnitID), err)
			}
			r.Content = &c
		}
		if len(failedChecks) > 0 {
			if err := json.Unmarshal(failedChecks, &r.FailedChecks); err != nil {
				return nil, store.NewStoreError("checkpoint_entry", "load",
					fmt.Sprintf("invalid failed_checks for unit %q", r.UnitID), err)
			}
		}
		r.CompletedAt = r.CompletedAt.UTC()
		results[r.UnitID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("checkpoint_entry", "load", "row iteration failed", MapError(err))
	}

	s.logger.Debug("loaded checkpoint rows", "count", len(results))
	return results, nil
}

// Save inserts result. An existing row for the same unit is left untouched.
func (s *CheckpointStore) Save(ctx context.Context, result domain.Result) error {
	var content, failedChecks []byte
	var err error
	if result.Content != nil {
		if content, err = json.Marshal(result.Content); err != nil {
			return fmt.Errorf("failed to encode content: %w", err)
		}
	}
	if len(result.FailedChecks) > 0 {
		if failedChecks, err = json.Marshal(result.FailedChecks); err != nil {
			return fmt.Errorf("failed to encode failed checks: %w", err)
		}
	}
	completedAt := result.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO quizgen_checkpoint
			(namespace, unit_id, status, attempts, content, failed_checks, last_error, lane, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (namespace, unit_id) DO NOTHING
	`

	res, err := s.db.ExecContext(ctx, query,
		s.namespace,
		result.UnitID,
		string(result.Status),
		result.Attempts,
		content,
		failedChecks,
		result.LastError,
		result.Lane,
		completedAt,
	)
	if err != nil {
		return store.NewStoreError("checkpoint_entry", "save", "insert failed", MapError(err))
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.logger.Debug("checkpoint row already present", "unit_id", result.UnitID)
	}
	return nil
}
