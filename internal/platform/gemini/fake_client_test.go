package gemini

import (
	"context"
	"sync"

	"google.golang.org/genai"
)

// fakeModels records prompts and returns canned responses.
type fakeModels struct {
	mu      sync.Mutex
	prompts []string
	models  []string

	GenerateContentFn func(prompt string) (*genai.GenerateContentResponse, error)
}

func (f *fakeModels) GenerateContent(
	_ context.Context,
	model string,
	contents []*genai.Content,
	_ *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	var prompt string
	for _, c := range contents {
		for _, p := range c.Parts {
			prompt += p.Text
		}
	}
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.models = append(f.models, model)
	f.mu.Unlock()
	return f.GenerateContentFn(prompt)
}

func (f *fakeModels) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []*genai.Part{{Text: text}}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

// factoryFor returns a ClientFactory that hands out fake and records which
// keys it was asked for.
func factoryFor(fake *fakeModels, keys *[]string) ClientFactory {
	var mu sync.Mutex
	return func(_ context.Context, apiKey string) (ContentGenerator, error) {
		mu.Lock()
		defer mu.Unlock()
		if keys != nil {
			*keys = append(*keys, apiKey)
		}
		return fake, nil
	}
}
