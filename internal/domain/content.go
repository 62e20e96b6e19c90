package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ContentKind tags which variant a Content value holds.
type ContentKind string

const (
	// ContentStructured holds a parsed JSON question document.
	ContentStructured ContentKind = "structured"
	// ContentRawText holds model output that could not be parsed as JSON.
	ContentRawText ContentKind = "raw_text"
)

// Content is the output of one generation call. Exactly one of Document or
// Text is populated, selected by Kind; consumers switch on Kind rather than
// probing the document for keys.
type Content struct {
	Kind     ContentKind     `json:"kind"`
	Document json.RawMessage `json:"document,omitempty"`
	Text     string          `json:"text,omitempty"`
}

// StructuredContent wraps a JSON document.
func StructuredContent(doc json.RawMessage) Content {
	return Content{Kind: ContentStructured, Document: doc}
}

// RawTextContent wraps unparsed model text.
func RawTextContent(text string) Content {
	return Content{Kind: ContentRawText, Text: text}
}

// ParseContent classifies model output: valid JSON objects or arrays become
// structured content, anything else is kept as raw text. Markdown code fences
// around JSON are stripped first.
func ParseContent(output string) Content {
	trimmed := bytes.TrimSpace(stripFence([]byte(output)))
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') && json.Valid(trimmed) {
		doc := make(json.RawMessage, len(trimmed))
		copy(doc, trimmed)
		return StructuredContent(doc)
	}
	return RawTextContent(output)
}

// Validate checks that the variant fields match Kind.
func (c Content) Validate() error {
	switch c.Kind {
	case ContentStructured:
		if len(c.Document) == 0 || !json.Valid(c.Document) {
			return fmt.Errorf("%w: structured content without a valid document", ErrInvalidContent)
		}
	case ContentRawText:
		if c.Text == "" {
			return fmt.Errorf("%w: raw text content is empty", ErrInvalidContent)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidContent, c.Kind)
	}
	return nil
}

// String renders the content as a single value suitable for tabular output.
func (c Content) String() string {
	switch c.Kind {
	case ContentStructured:
		return string(c.Document)
	case ContentRawText:
		return c.Text
	default:
		return ""
	}
}

func stripFence(b []byte) []byte {
	t := bytes.TrimSpace(b)
	if !bytes.HasPrefix(t, []byte("```")) {
		return b
	}
	t = t[3:]
	if nl := bytes.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	}
	return bytes.TrimSuffix(bytes.TrimSpace(t), []byte("```"))
}
