package openai

import (
	"strings"
)

// extractor pulls reply text out of a decoded response body.
type extractor func(payload map[string]any) (string, bool)

// extractors is tried in order; the first non-empty result wins. The
// Responses API shape has drifted across versions, hence three paths.
var extractors = []extractor{
	extractOutputText,
	extractNestedContent,
	extractLegacyChoices,
}

func extractText(payload map[string]any) (string, bool) {
	if payload == nil {
		return "", false
	}
	for _, ex := range extractors {
		if text, ok := ex(payload); ok {
			return text, true
		}
	}
	return "", false
}

// extractOutputText reads the top-level "output_text" convenience field.
func extractOutputText(payload map[string]any) (string, bool) {
	return nonEmpty(payload["output_text"])
}

// extractNestedContent concatenates output[].content[].text.
func extractNestedContent(payload map[string]any) (string, bool) {
	var sb strings.Builder
	for _, item := range asSlice(payload["output"]) {
		msg, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, part := range asSlice(msg["content"]) {
			p, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if s, ok := p["text"].(string); ok {
				sb.WriteString(s)
			}
		}
	}
	return nonEmpty(sb.String())
}

// extractLegacyChoices reads choices[0].message.content from the Chat
// Completions shape.
func extractLegacyChoices(payload map[string]any) (string, bool) {
	choices := asSlice(payload["choices"])
	if len(choices) == 0 {
		return "", false
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}
	msg, ok := first["message"].(map[string]any)
	if !ok {
		return "", false
	}
	return nonEmpty(msg["content"])
}

func extractResponseID(payload map[string]any) string {
	id, _ := payload["id"].(string)
	return strings.TrimSpace(id)
}

func nonEmpty(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}
