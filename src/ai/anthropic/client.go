package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/ai/core"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/logging"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/webclient"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
	defaultMaxTokens = 1024
	requestTimeout   = 90 * time.Second
)

func init() {
	core.RegisterProvider("anthropic", newClient, "claude")
}

// client talks to the Messages API. Structured output is requested through the system
// prompt, so SupportsTools reports false.
type client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func newClient(cfg core.ProviderConfig) (core.Provider, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = requestTimeout
		}
		httpClient = webclient.NewDefault(timeout)
	}
	baseURL := anthropicBaseURL
	if strings.TrimSpace(cfg.BaseURL) != "" {
		baseURL = cfg.BaseURL
	}
	return &client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

func (c *client) Name() string { return "anthropic" }

func (c *client) SupportsTools() bool { return false }

func (c *client) Complete(ctx context.Context, call core.Call) (core.Reply, error) {
	maxTokens := call.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	messages := make([]map[string]any, 0, len(call.Messages))
	for _, m := range call.Messages {
		messages = append(messages, map[string]any{
			"role": m.Role,
			"content": []map[string]string{
				{"type": "text", "text": m.Content},
			},
		})
	}

	body := map[string]any{
		"model":      call.Model,
		"max_tokens": maxTokens,
		"messages":   messages,
	}
	if strings.TrimSpace(call.System) != "" {
		body["system"] = call.System
	}
	if call.Temperature != 0 {
		body["temperature"] = call.Temperature
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return core.Reply{}, &core.ProviderError{Provider: c.Name(), Message: "encode request", Cause: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return core.Reply{}, &core.ProviderError{Provider: c.Name(), Message: "build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	status, payload, err := webclient.Send(c.httpClient, req)
	if err != nil {
		return core.Reply{}, err
	}
	if status != http.StatusOK {
		code := errorType(payload)
		log.Printf("llm: anthropic: status %d type=%q body=%s", status, code,
			logging.Redact(logging.Truncate(payload, 512), c.apiKey))
		return core.Reply{}, core.ClassifyStatus(c.Name(), status, code)
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return core.Reply{}, &core.ProviderError{Provider: c.Name(), StatusCode: status, Message: "malformed response", Cause: err}
	}

	var builder strings.Builder
	for _, chunk := range result.Content {
		if chunk.Type != "" && chunk.Type != "text" {
			continue
		}
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(chunk.Text)
	}
	return core.Reply{Text: strings.TrimSpace(builder.String())}, nil
}

// errorType reads {"type":"error","error":{"type":"rate_limit_error",...}}.
func errorType(body []byte) string {
	var envelope struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.Error.Type
}
