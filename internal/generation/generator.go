package generation

import (
	"context"
	"encoding/json"

	"github.com/phrazzld/scry-quizgen/internal/domain"
)

// Generator defines the interface for generating assessment items from a
// work unit payload. This interface serves as a boundary between the
// orchestration core and external AI/LLM services.
//
// Implementations must be callable per unit independently with no implicit
// cross-call state, and must wrap failures with ErrTransient or ErrPermanent
// (or return errors Classify understands).
type Generator interface {
	Generate(ctx context.Context, payload json.RawMessage, credential string) (domain.Content, error)
}

// Checker runs the quality checks for a piece of generated content and
// returns the outcome of each named check.
type Checker interface {
	Check(ctx context.Context, content domain.Content, payload json.RawMessage, credential string) (map[string]bool, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, payload json.RawMessage, credential string) (domain.Content, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, payload json.RawMessage, credential string) (domain.Content, error) {
	return f(ctx, payload, credential)
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context, content domain.Content, payload json.RawMessage, credential string) (map[string]bool, error)

// Check calls f.
func (f CheckerFunc) Check(ctx context.Context, content domain.Content, payload json.RawMessage, credential string) (map[string]bool, error) {
	return f(ctx, content, payload, credential)
}
