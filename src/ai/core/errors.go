package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/logging"
)

// ConfigError signals deployment misconfiguration: missing or rejected credential,
// unknown provider. Never retryable.
type ConfigError struct {
	Provider string
	Reason   string
}

func (e *ConfigError) Error() string {
	if strings.TrimSpace(e.Provider) != "" {
		return fmt.Sprintf("ai %s: configuration error: %s", e.Provider, e.Reason)
	}
	return "ai: configuration error: " + e.Reason
}

// ProviderError is an upstream failure. Retryable is set only for rate limit and quota conditions.
type ProviderError struct {
	Provider   string
	StatusCode int
	Code       string
	Retryable  bool
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString("ai ")
	b.WriteString(e.Provider)
	b.WriteString(": ")
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString("upstream failure")
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d", e.StatusCode)
		if e.Code != "" {
			b.WriteString(", ")
			b.WriteString(e.Code)
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// ErrMissingCredential is the reason recorded when no API key is configured.
const ErrMissingCredential = "missing credential"

func AsConfigError(err error) (*ConfigError, bool) {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsRetryable reports whether the caller may try again later.
func IsRetryable(err error) bool {
	pe, ok := AsProviderError(err)
	return ok && pe.Retryable
}

// ClassifyStatus maps a non-2xx upstream response onto the error taxonomy. code carries
// the provider's error type/code strings; the upstream message text is never used.
func ClassifyStatus(provider string, status int, code string) error {
	switch {
	case logging.IsAuthResponse(status, code):
		return &ConfigError{Provider: provider, Reason: "credential rejected by provider"}
	case logging.IsQuotaResponse(status, code):
		return &ProviderError{Provider: provider, StatusCode: status, Code: code, Retryable: true, Message: "quota exceeded"}
	case logging.IsRateLimitResponse(status, code):
		return &ProviderError{Provider: provider, StatusCode: status, Code: code, Retryable: true, Message: "rate limit exceeded"}
	default:
		return &ProviderError{Provider: provider, StatusCode: status, Code: code, Message: "upstream error"}
	}
}
