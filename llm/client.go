// Package llm provides the LLM capability layer used by the Macro Planner
// (spec.md §4.0): a pluggable Client interface backed by Genkit (Gemini or
// Ollama or Z.ai), or by a direct Gemini SDK client, selected the same way
// the teacher application selects its AI.Plugin.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Client generates a structured (JSON) response from a prompt. Client
// itself performs exactly one generation attempt per call; retrying is the
// caller's responsibility.
type Client interface {
	GenerateStructured(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (map[string]interface{}, error)
}

// ExtractJSON finds the first balanced JSON object or array in text and
// returns it verbatim. LLMs routinely wrap structured output in prose or
// markdown fences; this mirrors the teacher's own extractUsageJSON helper.
func ExtractJSON(text string) string {
	startObj := strings.Index(text, "{")
	startArr := strings.Index(text, "[")

	start := -1
	switch {
	case startObj != -1 && startArr != -1:
		if startObj < startArr {
			start = startObj
		} else {
			start = startArr
		}
	case startObj != -1:
		start = startObj
	case startArr != -1:
		start = startArr
	}
	if start == -1 {
		return ""
	}

	trimmed := strings.TrimSpace(text[start:])
	trimmed = strings.TrimSuffix(trimmed, ";")
	if json.Valid([]byte(trimmed)) {
		return trimmed
	}

	open, close := trimmed[0], closingFor(trimmed[0])
	balance := 0
	for i, r := range trimmed {
		switch byte(r) {
		case open:
			balance++
		case close:
			balance--
		}
		if balance == 0 {
			candidate := trimmed[:i+1]
			if json.Valid([]byte(candidate)) {
				return candidate
			}
		}
	}
	return ""
}

func closingFor(open byte) byte {
	if open == '{' {
		return '}'
	}
	return ']'
}

// ParseStructured extracts and unmarshals a JSON object from raw LLM text.
func ParseStructured(text string) (map[string]interface{}, error) {
	extracted := ExtractJSON(text)
	if extracted == "" {
		return nil, fmt.Errorf("no JSON object found in model response")
	}

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(extracted), &result); err != nil {
		return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	return result, nil
}
