package core

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Request is a provider-agnostic invocation.
type Request struct {
	Prompt             string
	AddInternetContext bool
	// ResponseSchema is a decoded JSON-Schema-like value. Only object schemas
	// (a map with type "object" and a properties map) are honoured.
	ResponseSchema any
}

// ResultKind tells whether a Result carries free text or a structured object.
type ResultKind string

const (
	KindText       ResultKind = "text"
	KindStructured ResultKind = "structured"
)

// Keys of the wrapper returned when a schema was requested but the reply was not JSON.
const (
	RawResponseKey       = "raw_response"
	SchemaParseFailedKey = "schema_parse_failed"
)

// Result is the normalized reply of a single invocation.
type Result struct {
	Kind     ResultKind
	Text     string
	Data     map[string]any
	Warnings []Warning
}

// Payload returns the value handed to callers: the text for KindText, the object otherwise.
func (r Result) Payload() any {
	if r.Kind == KindStructured {
		return r.Data
	}
	return r.Text
}

// HasWarning reports whether a warning with the given code was recorded.
func (r Result) HasWarning(code WarningCode) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// WarningCode identifies a soft degradation.
type WarningCode string

const (
	WarnSchemaInvalid     WarningCode = "schema_invalid"
	WarnSchemaUnparseable WarningCode = "schema_unparseable"
)

// Warning never aborts a call; it only changes the shape of the result.
type Warning struct {
	Code    WarningCode
	Message string
}

// ProviderConfig is read once at startup and never mutated afterwards.
type ProviderConfig struct {
	Provider        string
	APIKey          string
	Model           string
	Temperature     float64
	MaxOutputTokens int
	SystemPrompt    string

	// BaseURL overrides the provider endpoint root (proxies, tests).
	BaseURL string
	Timeout time.Duration
	// HTTPClient, when set, replaces the default outbound client.
	HTTPClient *http.Client

	Extra map[string]string
}

// APIKeyPresent reports whether a credential has been configured.
func (c ProviderConfig) APIKeyPresent() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Message represents a single chat turn.
type Message struct {
	Role    string
	Content string
}

// ToolSpec declares a single callable function for providers with native tool calling.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Call is the provider-level request assembled by the adapter.
type Call struct {
	Model           string
	Temperature     float64
	MaxOutputTokens int
	System          string
	Messages        []Message
	Tool            *ToolSpec
	// ForceTool requires the model to answer through Tool.
	ForceTool bool
}

// ToolCall is a function invocation returned by the provider.
type ToolCall struct {
	Name      string
	Arguments string
}

// Reply is the raw provider answer before normalization.
type Reply struct {
	Text      string
	ToolCalls []ToolCall
}

// Provider performs exactly one upstream round-trip per Complete call.
type Provider interface {
	Name() string
	// SupportsTools reports native function calling; it selects the structured output strategy.
	SupportsTools() bool
	Complete(ctx context.Context, call Call) (Reply, error)
}
