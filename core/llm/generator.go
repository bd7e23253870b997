// Package llm declares the language-model collaborator used for extraction
// and AI-assisted matching.
package llm

import (
	"context"
	"strings"
)

// Generator produces a text completion for a system instruction and a user
// prompt.
type Generator interface {
	GenerateContent(ctx context.Context, system, prompt string) (string, error)
}

// ExtractJSON strips markdown fences and any prose surrounding the outermost
// JSON object in a model response.
func ExtractJSON(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```JSON")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

// Fill replaces {{KEY}} placeholders in tmpl with the given values.
func Fill(tmpl string, values map[string]string) string {
	out := tmpl
	for k, v := range values {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}
