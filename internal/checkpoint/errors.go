package checkpoint

import (
	"errors"
	"fmt"
)

// ErrCorrupt is returned when persisted checkpoint data cannot be decoded.
var ErrCorrupt = errors.New("checkpoint data is corrupt")

// WriteError reports that a completed unit could not be made durable.
// It is fatal to a run: continuing would risk duplicate billed work on resume.
type WriteError struct {
	UnitID string
	Err    error
}

// Error implements the error interface for WriteError.
func (e *WriteError) Error() string {
	return fmt.Sprintf("checkpoint write for unit %s failed: %v", e.UnitID, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsWriteError reports whether err is or wraps a *WriteError.
func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}
