package gemini

import (
	"context"
	"fmt"
	"sync"

	"github.com/phrazzld/scry-quizgen/internal/generation"
	"google.golang.org/genai"
)

// ContentGenerator is the slice of the genai client used here. *genai.Models
// satisfies it.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// ClientFactory creates a ContentGenerator for one API key.
type ClientFactory func(ctx context.Context, apiKey string) (ContentGenerator, error)

// NewGenAIClient is the production ClientFactory.
func NewGenAIClient(ctx context.Context, apiKey string) (ContentGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}
	return client.Models, nil
}

// clientCache hands out one client per credential.
type clientCache struct {
	factory ClientFactory

	mu      sync.Mutex
	clients map[string]ContentGenerator
}

func newClientCache(factory ClientFactory) *clientCache {
	if factory == nil {
		factory = NewGenAIClient
	}
	return &clientCache{factory: factory, clients: make(map[string]ContentGenerator)}
}

func (c *clientCache) get(ctx context.Context, apiKey string) (ContentGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %v", generation.ErrPermanent, ErrEmptyCredential)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[apiKey]; ok {
		return client, nil
	}
	client, err := c.factory(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	c.clients[apiKey] = client
	return client, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: %w: nil response", generation.ErrPermanent, generation.ErrInvalidResponse)
	}
	if len(resp.Candidates) == 0 {
		// Prompt-level blocks come back with no candidates.
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: prompt blocked: %s", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("%w: %w: no candidates in response", generation.ErrTransient, generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: %w: empty content in response", generation.ErrTransient, generation.ErrInvalidResponse)
	}

	var text string
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text += part.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("%w: %w: response has no text", generation.ErrTransient, generation.ErrInvalidResponse)
	}
	return text, nil
}
