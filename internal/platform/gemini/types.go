package gemini

import "github.com/phrazzld/scry-quizgen/internal/quality"

// promptData is passed to the generation prompt template.
type promptData struct {
	// Payload is the unit's JSON payload, verbatim.
	Payload string
	// Fields is the payload decoded as an object, nil if it is not one.
	Fields map[string]any
}

// checkPromptData is passed to the quality check prompt template.
type checkPromptData struct {
	Payload     string
	Content     string
	Question    []quality.Check
	Distractors []quality.Check
}
