package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/ai/core"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/logging"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/webclient"
)

const (
	openAIBaseURL   = "https://api.openai.com/v1"
	deepSeekBaseURL = "https://api.deepseek.com/v1"
	grokBaseURL     = "https://api.x.ai/v1"
	requestTimeout  = 60 * time.Second
)

func init() {
	core.RegisterProvider("openai", newOpenAI, "gpt", "chatgpt")
	core.RegisterProvider("deepseek", newDeepSeek)
	core.RegisterProvider("grok", newGrok, "xai")
}

// client speaks the chat-completions protocol shared by OpenAI and compatible vendors.
type client struct {
	name       string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func newOpenAI(cfg core.ProviderConfig) (core.Provider, error) {
	return newClient("openai", openAIBaseURL, cfg), nil
}

func newDeepSeek(cfg core.ProviderConfig) (core.Provider, error) {
	return newClient("deepseek", deepSeekBaseURL, cfg), nil
}

func newGrok(cfg core.ProviderConfig) (core.Provider, error) {
	return newClient("grok", grokBaseURL, cfg), nil
}

func newClient(name, baseURL string, cfg core.ProviderConfig) *client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = requestTimeout
		}
		httpClient = webclient.NewDefault(timeout)
	}
	return &client{
		name:       name,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(valueOrDefault(cfg.BaseURL, baseURL), "/"),
		httpClient: httpClient,
	}
}

func (c *client) Name() string { return c.name }

func (c *client) SupportsTools() bool { return true }

func (c *client) Complete(ctx context.Context, call core.Call) (core.Reply, error) {
	bodyBytes, err := json.Marshal(buildRequest(call))
	if err != nil {
		return core.Reply{}, &core.ProviderError{Provider: c.name, Message: "encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return core.Reply{}, &core.ProviderError{Provider: c.name, Message: "build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	status, body, err := webclient.Send(c.httpClient, req)
	if err != nil {
		return core.Reply{}, err
	}
	if status != http.StatusOK {
		code := errorCode(body)
		log.Printf("llm: %s: status %d code=%q body=%s", c.name, status, code,
			logging.Redact(logging.Truncate(body, 512), c.apiKey))
		return core.Reply{}, core.ClassifyStatus(c.name, status, code)
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		log.Printf("llm: %s: failed to decode response body=%s", c.name, logging.Truncate(body, 1024))
		return core.Reply{}, &core.ProviderError{Provider: c.name, StatusCode: status, Message: "malformed response", Cause: err}
	}
	if len(result.Choices) == 0 {
		return core.Reply{}, &core.ProviderError{Provider: c.name, StatusCode: status, Message: "malformed response: no choices"}
	}

	msg := result.Choices[0].Message
	reply := core.Reply{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, core.ToolCall{
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return reply, nil
}

func buildRequest(call core.Call) map[string]any {
	messages := make([]map[string]string, 0, len(call.Messages)+1)
	if strings.TrimSpace(call.System) != "" {
		messages = append(messages, map[string]string{"role": "system", "content": call.System})
	}
	for _, m := range call.Messages {
		messages = append(messages, map[string]string{"role": m.Role, "content": m.Content})
	}

	payload := map[string]any{
		"model":    call.Model,
		"messages": messages,
	}
	if call.Temperature != 0 {
		payload["temperature"] = call.Temperature
	}
	if call.MaxOutputTokens > 0 {
		payload["max_tokens"] = call.MaxOutputTokens
	}
	if call.Tool != nil {
		payload["tools"] = []map[string]any{
			{
				"type": "function",
				"function": map[string]any{
					"name":        call.Tool.Name,
					"description": call.Tool.Description,
					"parameters":  call.Tool.Parameters,
				},
			},
		}
		payload["tool_choice"] = buildToolChoice(call)
	}
	return payload
}

func buildToolChoice(call core.Call) any {
	if !call.ForceTool {
		return "auto"
	}
	return map[string]any{
		"type":     "function",
		"function": map[string]any{"name": call.Tool.Name},
	}
}

// errorCode extracts the type and code of an OpenAI error envelope.
func errorCode(body []byte) string {
	var envelope struct {
		Error struct {
			Type string `json:"type"`
			Code any    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	parts := []string{}
	if envelope.Error.Type != "" {
		parts = append(parts, envelope.Error.Type)
	}
	if envelope.Error.Code != nil {
		if code := fmt.Sprint(envelope.Error.Code); code != "" && code != envelope.Error.Type {
			parts = append(parts, code)
		}
	}
	return strings.Join(parts, ",")
}

func valueOrDefault(val, def string) string {
	if strings.TrimSpace(val) != "" {
		return val
	}
	return def
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string         `json:"content"`
			ToolCalls []chatToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

type chatToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}
