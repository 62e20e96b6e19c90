package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/template"

	"github.com/phrazzld/scry-quizgen/internal/config"
	"github.com/phrazzld/scry-quizgen/internal/domain"
	"github.com/phrazzld/scry-quizgen/internal/generation"
	"github.com/phrazzld/scry-quizgen/internal/redact"
	"google.golang.org/genai"
)

// Generator produces one assessment item per call from a unit payload.
type Generator struct {
	logger         *slog.Logger
	model          string
	promptTemplate *template.Template
	clients        *clientCache
}

// Option configures a Generator or Checker.
type Option func(*options)

type options struct {
	factory ClientFactory
}

// WithClientFactory overrides how per-credential clients are created.
func WithClientFactory(f ClientFactory) Option {
	return func(o *options) { o.factory = f }
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewGenerator loads the prompt template named in cfg.
func NewGenerator(logger *slog.Logger, cfg config.LLMConfig, opts ...Option) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.PromptTemplatePath == "" {
		return nil, fmt.Errorf("%w: prompt template path cannot be empty", generation.ErrInvalidConfig)
	}

	templateContent, err := os.ReadFile(cfg.PromptTemplatePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
			generation.ErrInvalidConfig, cfg.PromptTemplatePath, err)
	}

	return newGenerator(logger, cfg.ModelName, string(templateContent), applyOptions(opts))
}

func newGenerator(logger *slog.Logger, model, templateText string, o options) (*Generator, error) {
	promptTemplate, err := template.New("question").Option("missingkey=zero").Parse(templateText)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", generation.ErrInvalidConfig, err)
	}
	return &Generator{
		logger:         logger.With("component", "gemini_generator", "model", model),
		model:          model,
		promptTemplate: promptTemplate,
		clients:        newClientCache(o.factory),
	}, nil
}

func (g *Generator) createPrompt(payload json.RawMessage) (string, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return "", fmt.Errorf("%w: %v", generation.ErrPermanent, ErrEmptyPayload)
	}

	data := promptData{Payload: string(payload)}
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err == nil {
		data.Fields = fields
	}

	var buf bytes.Buffer
	if err := g.promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: failed to execute prompt template: %v", generation.ErrPermanent, err)
	}
	return buf.String(), nil
}

// Generate makes exactly one model call; retrying is the caller's job.
func (g *Generator) Generate(ctx context.Context, payload json.RawMessage, credential string) (domain.Content, error) {
	prompt, err := g.createPrompt(payload)
	if err != nil {
		return domain.Content{}, err
	}

	client, err := g.clients.get(ctx, credential)
	if err != nil {
		return domain.Content{}, err
	}

	g.logger.DebugContext(ctx, "calling gemini",
		"credential", redact.Credential(credential),
		"prompt_length", len(prompt))

	resp, err := client.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return domain.Content{}, classifyAPIError(err)
	}

	text, err := responseText(resp)
	if err != nil {
		return domain.Content{}, err
	}

	content := domain.ParseContent(text)
	g.logger.DebugContext(ctx, "gemini call succeeded",
		"content_kind", content.Kind,
		"response_length", len(text))
	return content, nil
}
