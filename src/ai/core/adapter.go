package core

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/logging"
)

// ErrEmptyPrompt is returned when the request carries no prompt.
var ErrEmptyPrompt = errors.New("ai: prompt is required")

// Adapter turns provider-agnostic requests into provider calls and normalizes the replies.
// It holds no per-call state; one Adapter may serve any number of concurrent Invoke calls.
type Adapter struct {
	cfg      ProviderConfig
	provider Provider
	strategy StructuredOutputStrategy
}

// NewAdapter resolves the provider named in cfg from the registry.
func NewAdapter(cfg ProviderConfig) (*Adapter, error) {
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewAdapterWithProvider(cfg, p), nil
}

// NewAdapterWithProvider wires an explicit provider, bypassing the registry.
func NewAdapterWithProvider(cfg ProviderConfig, p Provider) *Adapter {
	return &Adapter{cfg: cfg, provider: p, strategy: StrategyFor(p)}
}

// Provider returns the upstream provider name.
func (a *Adapter) Provider() string { return a.provider.Name() }

// Model returns the configured model name, resolved against provider defaults.
func (a *Adapter) Model() string { return ResolveModelName(a.provider.Name(), a.cfg.Model) }

// Strategy returns the structured output strategy selected for the provider.
func (a *Adapter) Strategy() StructuredOutputStrategy { return a.strategy }

// Invoke performs one upstream round-trip. Schema problems never fail the call: they
// are recorded as warnings on the result. Errors are *ConfigError or *ProviderError.
func (a *Adapter) Invoke(ctx context.Context, req Request) (Result, error) {
	name := a.provider.Name()
	if !a.cfg.APIKeyPresent() {
		return Result{}, &ConfigError{Provider: name, Reason: ErrMissingCredential}
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return Result{}, ErrEmptyPrompt
	}

	call := a.buildCall(req)

	var warnings []Warning
	var schema map[string]any
	if req.ResponseSchema != nil {
		s, err := ValidateSchema(req.ResponseSchema)
		if err != nil {
			log.Printf("llm: %s: invalid response schema, falling back to text output: %v", name, err)
			warnings = append(warnings, Warning{Code: WarnSchemaInvalid, Message: err.Error()})
		} else if err := a.strategy.Prepare(&call, s); err != nil {
			log.Printf("llm: %s: cannot attach response schema, falling back to text output: %v", name, err)
			warnings = append(warnings, Warning{Code: WarnSchemaInvalid, Message: err.Error()})
		} else {
			schema = s
		}
	}

	reply, err := a.provider.Complete(ctx, call)
	if err != nil {
		return Result{}, classify(name, a.cfg.APIKey, err)
	}

	if schema == nil {
		if strings.TrimSpace(reply.Text) == "" {
			return Result{}, &ProviderError{Provider: name, Message: "empty response"}
		}
		return Result{Kind: KindText, Text: reply.Text, Warnings: warnings}, nil
	}

	data, raw, err := a.strategy.Decode(reply)
	if err != nil {
		log.Printf("llm: %s: %s reply did not match schema: %v", name, a.strategy.Name(), err)
		warnings = append(warnings, Warning{Code: WarnSchemaUnparseable, Message: err.Error()})
		data = unparseable(raw)
	}
	return Result{Kind: KindStructured, Data: data, Warnings: warnings}, nil
}

func (a *Adapter) buildCall(req Request) Call {
	system := strings.TrimSpace(a.cfg.SystemPrompt)
	if system == "" {
		system = DefaultSystemPrompt
	}
	if req.AddInternetContext {
		system += " " + InternetContextDirective
	}
	return Call{
		Model:           a.Model(),
		Temperature:     a.cfg.Temperature,
		MaxOutputTokens: a.cfg.MaxOutputTokens,
		System:          system,
		Messages: []Message{
			{Role: "user", Content: req.Prompt},
		},
	}
}

// classify keeps typed errors and folds anything else into a non-retryable
// ProviderError. Rate limits are only known from an upstream status code, so
// transport errors are never retryable whatever their text says.
func classify(provider, apiKey string, err error) error {
	if _, ok := AsConfigError(err); ok {
		return err
	}
	if _, ok := AsProviderError(err); ok {
		return err
	}
	msg := "request failed"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "request timed out"
	} else if errors.Is(err, context.Canceled) {
		msg = "request canceled"
	}
	log.Printf("llm: %s: %s: %s", provider, msg, logging.Redact(err.Error(), apiKey))
	return &ProviderError{Provider: provider, Message: msg, Cause: err}
}
