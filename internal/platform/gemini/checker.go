package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/phrazzld/scry-quizgen/internal/config"
	"github.com/phrazzld/scry-quizgen/internal/domain"
	"github.com/phrazzld/scry-quizgen/internal/generation"
	"github.com/phrazzld/scry-quizgen/internal/quality"
	"github.com/phrazzld/scry-quizgen/internal/redact"
	"google.golang.org/genai"
)

const checkPromptTemplate = `You are reviewing a generated multiple-choice assessment item.

Source material:
{{.Payload}}

Generated item:
{{.Content}}
{{if .Question}}
Question checks:
{{range .Question}}- {{.Name}}: {{.Prompt}}
{{end}}{{end}}{{if .Distractors}}
Distractor checks:
{{range .Distractors}}- {{.Name}}: {{.Prompt}}
{{end}}{{end}}
Answer with a single JSON object mapping every check name to true if the item passes it and false otherwise.`

// Checker asks the model to evaluate a generated item against a catalog of
// named checks.
type Checker struct {
	logger   *slog.Logger
	model    string
	catalog  *quality.Catalog
	template *template.Template
	clients  *clientCache
}

// NewChecker creates a Checker for catalog.
func NewChecker(logger *slog.Logger, cfg config.LLMConfig, catalog *quality.Catalog, opts ...Option) (*Checker, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if catalog == nil {
		return nil, fmt.Errorf("%w: check catalog is required", generation.ErrInvalidConfig)
	}
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidConfig, err)
	}

	o := applyOptions(opts)
	return &Checker{
		logger:   logger.With("component", "gemini_checker", "model", cfg.ModelName),
		model:    cfg.ModelName,
		catalog:  catalog,
		template: template.Must(template.New("checks").Parse(checkPromptTemplate)),
		clients:  newClientCache(o.factory),
	}, nil
}

// Check returns one pass/fail entry per catalog check. A malformed verdict
// from the model is reported as transient so the call is retried.
func (c *Checker) Check(
	ctx context.Context,
	content domain.Content,
	payload json.RawMessage,
	credential string,
) (map[string]bool, error) {
	if err := content.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrPermanent, err)
	}

	var buf bytes.Buffer
	if err := c.template.Execute(&buf, checkPromptData{
		Payload:     string(payload),
		Content:     content.String(),
		Question:    c.catalog.ByLevel(quality.LevelQuestion),
		Distractors: c.catalog.ByLevel(quality.LevelDistractor),
	}); err != nil {
		return nil, fmt.Errorf("%w: failed to build check prompt: %v", generation.ErrPermanent, err)
	}

	client, err := c.clients.get(ctx, credential)
	if err != nil {
		return nil, err
	}

	resp, err := client.GenerateContent(ctx, c.model, genai.Text(buf.String()), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, classifyAPIError(err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	parsed := domain.ParseContent(text)
	if parsed.Kind != domain.ContentStructured {
		return nil, fmt.Errorf("%w: %w: check verdict is not JSON", generation.ErrTransient, generation.ErrInvalidResponse)
	}
	var raw map[string]bool
	if err := json.Unmarshal(parsed.Document, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w: check verdict is not a name to bool object: %v",
			generation.ErrTransient, generation.ErrInvalidResponse, err)
	}

	results := c.catalog.Complete(raw)
	c.logger.DebugContext(ctx, "quality checks evaluated",
		"credential", redact.Credential(credential),
		"checks", len(results))
	return results, nil
}
