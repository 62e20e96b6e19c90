package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/scry-quizgen/internal/domain"
)

// Header is the column layout of the result file.
var Header = []string{
	"unit_id",
	"status",
	"attempts",
	"failed_checks",
	"last_error",
	"lane",
	"content_kind",
	"content",
	"completed_at",
}

// Sink receives results that should appear in the output file.
type Sink interface {
	Write(result domain.Result) error
	Has(unitID string) bool
}

// CSVSink appends one row per written result. Rows are flushed to disk as
// they are written, and a unit is never written twice.
type CSVSink struct {
	logger          *slog.Logger
	includeRejected bool

	mu      sync.Mutex
	file    *os.File
	writer  *csv.Writer
	written map[string]struct{}
}

// Options tunes which results a CSVSink accepts.
type Options struct {
	IncludeRejected bool
}

// OpenCSV opens path for appending, writing the header if the file is new.
// Unit IDs already present in an existing file are remembered so a resumed
// run does not duplicate rows.
func OpenCSV(path string, opts Options, logger *slog.Logger) (*CSVSink, error) {
	if path == "" {
		return nil, fmt.Errorf("sink path cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sink directory: %w", err)
	}

	written, err := scanExisting(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open sink file: %w", err)
	}

	s := &CSVSink{
		logger:          logger.With("component", "csv_sink", "path", path),
		includeRejected: opts.IncludeRejected,
		file:            f,
		writer:          csv.NewWriter(f),
		written:         written,
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat sink file: %w", err)
	}
	if info.Size() == 0 {
		if err := s.writeRow(Header); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	return s, nil
}

func scanExisting(path string) (map[string]struct{}, error) {
	written := make(map[string]struct{})

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return written, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open sink file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read existing sink file: %w", err)
		}
		if first {
			first = false
			if len(rec) > 0 && rec[0] == Header[0] {
				continue
			}
		}
		if len(rec) > 0 && rec[0] != "" {
			written[rec[0]] = struct{}{}
		}
	}
	return written, nil
}

// Accepts reports whether a result with the given status belongs in the
// output. Failed units never do.
func (s *CSVSink) Accepts(status domain.UnitStatus) bool {
	switch status {
	case domain.UnitStatusAccepted:
		return true
	case domain.UnitStatusRejected:
		return s.includeRejected
	default:
		return false
	}
}

// Has reports whether unitID already has a row.
func (s *CSVSink) Has(unitID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.written[unitID]
	return ok
}

// Write appends result if its status is accepted by this sink and the unit
// has not been written before.
func (s *CSVSink) Write(result domain.Result) error {
	if !s.Accepts(result.Status) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.written[result.UnitID]; ok {
		return nil
	}
	if err := s.writeRow(Row(result)); err != nil {
		return err
	}
	s.written[result.UnitID] = struct{}{}
	return nil
}

// Reconcile writes every eligible result missing from the file, in unit ID
// order. It returns how many rows were added.
func (s *CSVSink) Reconcile(results map[string]domain.Result) (int, error) {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	added := 0
	for _, id := range ids {
		r := results[id]
		if !s.Accepts(r.Status) || s.Has(id) {
			continue
		}
		if err := s.Write(r); err != nil {
			return added, err
		}
		added++
	}
	if added > 0 {
		s.logger.Info("restored sink rows from checkpoint", "rows", added)
	}
	return added, nil
}

func (s *CSVSink) writeRow(row []string) error {
	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write sink row: %w", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush sink row: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	s.writer.Flush()
	flushErr := s.writer.Error()
	closeErr := s.file.Close()
	s.file = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// Row renders result in Header column order.
func Row(r domain.Result) []string {
	kind, content := "", ""
	if r.Content != nil {
		kind = string(r.Content.Kind)
		content = r.Content.String()
	}
	completed := ""
	if !r.CompletedAt.IsZero() {
		completed = r.CompletedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		r.UnitID,
		string(r.Status),
		strconv.Itoa(r.Attempts),
		strings.Join(r.FailedChecks, ";"),
		r.LastError,
		strconv.Itoa(r.Lane),
		kind,
		content,
		completed,
	}
}
