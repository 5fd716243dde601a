package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StructuredToolName is the single function registered for the tool-call strategy.
const StructuredToolName = "get_structured_response"

// StructuredOutputStrategy adapts a Call to request schema-conformant output and
// decodes the provider reply back into an object.
type StructuredOutputStrategy interface {
	Name() string
	Prepare(call *Call, schema map[string]any) error
	// Decode returns the parsed object, or the raw text that failed to parse with an error.
	Decode(reply Reply) (map[string]any, string, error)
}

// StrategyFor picks tool calling when the provider supports it, prompt injection otherwise.
func StrategyFor(p Provider) StructuredOutputStrategy {
	if p.SupportsTools() {
		return ToolCallStrategy{}
	}
	return PromptInjectionStrategy{}
}

// ToolCallStrategy registers one tool whose parameters are the schema and forces the model to call it.
type ToolCallStrategy struct{}

func (ToolCallStrategy) Name() string { return "tool_call" }

func (ToolCallStrategy) Prepare(call *Call, schema map[string]any) error {
	call.Tool = &ToolSpec{
		Name:        StructuredToolName,
		Description: "Generates a structured JSON response based on the request.",
		Parameters:  schema,
	}
	call.ForceTool = true
	return nil
}

func (ToolCallStrategy) Decode(reply Reply) (map[string]any, string, error) {
	for _, tc := range reply.ToolCalls {
		if tc.Name != "" && tc.Name != StructuredToolName {
			continue
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(tc.Arguments)), &out); err != nil || out == nil {
			if err == nil {
				err = fmt.Errorf("tool arguments are not an object")
			}
			return nil, tc.Arguments, fmt.Errorf("decode tool arguments: %w", err)
		}
		return out, "", nil
	}
	// Some models ignore tool_choice and answer in prose; try the text before giving up.
	out, err := ParseObject(reply.Text)
	if err != nil {
		return nil, reply.Text, err
	}
	return out, "", nil
}

// PromptInjectionStrategy embeds the schema in the system instruction and parses the text reply.
type PromptInjectionStrategy struct{}

func (PromptInjectionStrategy) Name() string { return "prompt_injection" }

func (PromptInjectionStrategy) Prepare(call *Call, schema map[string]any) error {
	encoded, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	call.System = strings.TrimSpace(call.System + "\n\n" + SchemaDirective + "\n" + string(encoded) + "\n" + JSONOnlyDirective)
	return nil
}

func (PromptInjectionStrategy) Decode(reply Reply) (map[string]any, string, error) {
	out, err := ParseObject(reply.Text)
	if err != nil {
		return nil, reply.Text, err
	}
	return out, "", nil
}
