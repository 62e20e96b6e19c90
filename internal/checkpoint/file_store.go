package checkpoint

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/phrazzld/scry-quizgen/internal/domain"
)

// FileStore persists results as an append-only JSON Lines file. Each Save
// appends one line and fsyncs before returning, so a completed unit is
// durable as soon as Save succeeds. A torn final line left by a crash is
// ignored on Load.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	file *os.File
	ids  map[string]struct{}

	// needsNewline is set when the file ends in a valid but unterminated line.
	needsNewline bool
}

// NewFileStore opens (creating if needed) the checkpoint file at path.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("checkpoint path cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	return &FileStore{
		path:   path,
		logger: logger.With("component", "checkpoint_file_store", "path", path),
		ids:    make(map[string]struct{}),
	}, nil
}

// Load reads every complete line of the checkpoint file.
func (s *FileStore) Load(_ context.Context) (map[string]domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make(map[string]domain.Result)

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return results, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	lineNo := 0
	var validEnd int64
	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			complete := line[len(line)-1] == '\n'
			trimmed := bytes.TrimSpace(line)
			if len(trimmed) > 0 {
				var r domain.Result
				if err := json.Unmarshal(trimmed, &r); err != nil {
					if !complete {
						// Torn tail from an interrupted append.
						s.logger.Warn("ignoring incomplete trailing checkpoint line", "line", lineNo)
						break
					}
					return nil, fmt.Errorf("%w: line %d: %v", ErrCorrupt, lineNo, err)
				}
				// First write wins: a unit is never rewritten once complete.
				if _, seen := results[r.UnitID]; !seen {
					results[r.UnitID] = r
				}
			}
			validEnd += int64(len(line))
			if !complete {
				s.needsNewline = true
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("failed to read checkpoint file: %w", readErr)
		}
	}

	// Drop a torn tail so the next append starts on a clean line.
	if info, err := f.Stat(); err == nil && info.Size() > validEnd {
		if err := os.Truncate(s.path, validEnd); err != nil {
			return nil, fmt.Errorf("failed to truncate torn checkpoint tail: %w", err)
		}
	}

	for id := range results {
		s.ids[id] = struct{}{}
	}
	return results, nil
}

// Save appends result unless its unit is already recorded.
func (s *FileStore) Save(_ context.Context, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[result.UnitID]; ok {
		return nil
	}

	line, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint entry: %w", err)
	}
	line = append(line, '\n')
	if s.needsNewline {
		line = append([]byte{'\n'}, line...)
	}

	if s.file == nil {
		f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open checkpoint file for append: %w", err)
		}
		s.file = f
	}

	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("failed to append checkpoint entry: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	s.needsNewline = false
	s.ids[result.UnitID] = struct{}{}
	return nil
}

// Close releases the append handle.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
