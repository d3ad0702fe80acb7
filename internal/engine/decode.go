package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// cleanJSONContent strips markdown code fences some models wrap around JSON
// output even in structured mode.
func cleanJSONContent(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = content[7:]
	} else if strings.HasPrefix(content, "```") {
		content = content[3:]
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")

	return strings.TrimSpace(content)
}

// decodeStrict unmarshals a model response into v. Unknown fields are
// rejected so a drifting response shape fails loudly instead of producing a
// partially-populated value. Callers treat any error as a stage validation
// failure and run their documented fallback; a partially decoded v must
// never be used.
func decodeStrict(content string, v any) error {
	cleaned := cleanJSONContent(content)
	if cleaned == "" {
		return fmt.Errorf("empty response content")
	}

	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding structured response: %w", err)
	}
	return nil
}
