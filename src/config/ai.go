package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/ai/core"
)

type AI struct {
	Provider        string
	OpenAIKey       string
	ClaudeKey       string
	DeepSeekKey     string
	GrokKey         string
	SystemPrompt    string
	Model           string
	Temperature     float64
	MaxOutputTokens int
	BaseURL         string
	Timeout         time.Duration
}

// LoadAIFromEnv reads the provider settings once at startup.
func LoadAIFromEnv() AI {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("AI_PROVIDER")))
	if provider == "" {
		provider = "openai"
	}
	temp, _ := strconv.ParseFloat(os.Getenv("AI_TEMPERATURE"), 64)
	maxTokens, _ := strconv.Atoi(os.Getenv("AI_MAX_OUTPUT_TOKENS"))
	timeout, _ := time.ParseDuration(os.Getenv("AI_TIMEOUT"))

	return AI{
		Provider:        provider,
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		ClaudeKey:       firstNonEmpty(os.Getenv("CLAUDE_API_KEY"), os.Getenv("ANTHROPIC_API_KEY")),
		DeepSeekKey:     os.Getenv("DEEPSEEK_API_KEY"),
		GrokKey:         firstNonEmpty(os.Getenv("GROK_API_KEY"), os.Getenv("XAI_API_KEY")),
		SystemPrompt:    os.Getenv("AI_SYSTEM_PROMPT"),
		Model:           os.Getenv("AI_MODEL"),
		Temperature:     temp,
		MaxOutputTokens: maxTokens,
		BaseURL:         os.Getenv("AI_BASE_URL"),
		Timeout:         timeout,
	}
}

// KeyFor returns the credential matching a provider name.
func (a AI) KeyFor(provider string) string {
	switch strings.ToLower(provider) {
	case "anthropic", "claude":
		return a.ClaudeKey
	case "deepseek":
		return a.DeepSeekKey
	case "grok", "xai":
		return a.GrokKey
	default:
		return a.OpenAIKey
	}
}

// ProviderConfig converts the env settings into the adapter's immutable config.
func (a AI) ProviderConfig() core.ProviderConfig {
	return core.ProviderConfig{
		Provider:        a.Provider,
		APIKey:          a.KeyFor(a.Provider),
		Model:           a.Model,
		Temperature:     a.Temperature,
		MaxOutputTokens: a.MaxOutputTokens,
		SystemPrompt:    a.SystemPrompt,
		BaseURL:         a.BaseURL,
		Timeout:         a.Timeout,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
