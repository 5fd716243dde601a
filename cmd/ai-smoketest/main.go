package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	aicore "github.com/VyshnaviVunnamatla/DualAgents-AB/src/ai/core"
	_ "github.com/VyshnaviVunnamatla/DualAgents-AB/src/ai/providers"
	sharedconfig "github.com/VyshnaviVunnamatla/DualAgents-AB/src/config"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/webclient"
)

var (
	providersFlag = flag.String("providers", "openai", "Comma-separated provider list or 'all'")
	systemFlag    = flag.String("system", "", "Override system prompt")
	modelFlag     = flag.String("model", "", "Override model name")
	promptFlag    = flag.String("prompt", defaultPrompt, "User prompt")
	schemaFlag    = flag.String("schema", "", "Path to a JSON schema file; empty requests free text")
	timeoutFlag   = flag.Duration("timeout", 45*time.Second, "Per-attempt timeout")
	tempFlag      = flag.Float64("temp", 0.2, "Completion temperature")
	webFlag       = flag.Bool("web", false, "Ask the model to draw on broader general knowledge")
	retriesFlag   = flag.Int("retries", 3, "Attempts per provider when rate limited")
	maxLenFlag    = flag.Int("max-bytes", 1200, "Maximum bytes of output to print per response (0=unlimited)")
)

var allProviders = []string{
	"openai",
	"deepseek",
	"grok",
	"anthropic",
}

func main() {
	log.SetFlags(0)
	flag.Parse()

	providers := resolveProviders(*providersFlag)
	if len(providers) == 0 {
		log.Fatal("no providers specified")
	}

	var schema any
	if *schemaFlag != "" {
		raw, err := os.ReadFile(*schemaFlag)
		if err != nil {
			log.Fatalf("read schema: %v", err)
		}
		if err := json.Unmarshal(raw, &schema); err != nil {
			log.Fatalf("parse schema: %v", err)
		}
	}

	aiEnv := sharedconfig.LoadAIFromEnv()
	failed := 0
	for _, provider := range providers {
		if err := runProvider(provider, schema, aiEnv); err != nil {
			log.Printf("[%s] ERROR: %v", provider, err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func runProvider(provider string, schema any, aiEnv sharedconfig.AI) error {
	cfg := aiEnv.ProviderConfig()
	cfg.Provider = provider
	cfg.APIKey = aiEnv.KeyFor(provider)
	cfg.Temperature = *tempFlag
	cfg.SystemPrompt = pickFirst(*systemFlag, aiEnv.SystemPrompt)
	cfg.Model = pickFirst(*modelFlag, aiEnv.Model)
	if !strings.EqualFold(provider, aiEnv.Provider) {
		cfg.Model = *modelFlag
		cfg.BaseURL = ""
	}

	adapter, err := aicore.NewAdapter(cfg)
	if err != nil {
		return fmt.Errorf("adapter init: %w", err)
	}

	fmt.Printf("=== %s (%s, %s) ===\n", adapter.Provider(), adapter.Model(), adapter.Strategy().Name())
	req := aicore.Request{
		Prompt:             *promptFlag,
		AddInternetContext: *webFlag,
		ResponseSchema:     schema,
	}

	start := time.Now()
	var res aicore.Result
	attempt := 0
	err = webclient.DoWithRetry(context.Background(), *retriesFlag, 2*time.Second, aicore.IsRetryable, func() error {
		attempt++
		if attempt > 1 {
			fmt.Printf("retrying (attempt %d)\n", attempt)
		}
		ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
		defer cancel()
		var err error
		res, err = adapter.Invoke(ctx, req)
		return err
	})
	if err != nil {
		return err
	}

	for _, w := range res.Warnings {
		fmt.Printf("warning %s: %s\n", w.Code, w.Message)
	}
	out, err := render(res)
	if err != nil {
		return err
	}
	fmt.Printf("%s ✅ (%.1fs)\n%s\n", res.Kind, time.Since(start).Seconds(), truncate(out, *maxLenFlag))
	return nil
}

func render(res aicore.Result) (string, error) {
	if res.Kind == aicore.KindText {
		return res.Text, nil
	}
	b, err := json.MarshalIndent(res.Data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(b), nil
}

func resolveProviders(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.EqualFold(raw, "all") {
		return append([]string{}, allProviders...)
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	var out []string
	seen := map[string]struct{}{}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func pickFirst(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:limit]) + "...(truncated)"
}

const defaultPrompt = "In two sentences, explain what a JSON schema is used for."
