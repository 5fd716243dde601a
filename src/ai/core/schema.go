package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ValidateSchema checks that raw describes an object: a map with type "object"
// and a properties map. It returns the schema as a map on success.
func ValidateSchema(raw any) (map[string]any, error) {
	schema, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema must be a JSON object, got %T", raw)
	}
	typ, ok := schema["type"].(string)
	if !ok || strings.TrimSpace(typ) == "" {
		return nil, fmt.Errorf("schema is missing \"type\"")
	}
	if typ != "object" {
		return nil, fmt.Errorf("schema type must be \"object\", got %q", typ)
	}
	if _, ok := schema["properties"].(map[string]any); !ok {
		return nil, fmt.Errorf("schema \"properties\" must be an object")
	}
	return schema, nil
}

// ParseObject decodes a model reply into a JSON object. Surrounding prose and
// markdown code fences are tolerated as long as a single object can be located.
func ParseObject(text string) (map[string]any, error) {
	trimmed := stripFences(strings.TrimSpace(text))
	if trimmed == "" {
		return nil, fmt.Errorf("empty reply")
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(trimmed), &out); err == nil && out != nil {
		return out, nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("reply is not a JSON object")
	}
	out = nil
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("reply is not a JSON object: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("reply is not a JSON object")
	}
	return out, nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.Index(s, "\n"); nl >= 0 {
		// drop the info string (```json)
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// unparseable builds the wrapper returned when a schema was requested but the reply
// could not be decoded.
func unparseable(raw string) map[string]any {
	return map[string]any{
		RawResponseKey:       raw,
		SchemaParseFailedKey: true,
	}
}
