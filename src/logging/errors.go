package logging

import (
	"net/http"
	"strings"
)

var rateLimitMarkers = []string{"rate_limit", "rate limit", "too many requests"}

var quotaMarkers = []string{"insufficient_quota", "quota", "billing_hard_limit", "credit balance"}

// IsRateLimitResponse classifies an upstream response as a rate limit condition.
func IsRateLimitResponse(status int, code string) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return containsAny(strings.ToLower(code), rateLimitMarkers)
}

// IsQuotaResponse classifies an upstream response as quota or billing exhaustion.
func IsQuotaResponse(status int, code string) bool {
	lc := strings.ToLower(code)
	if status == http.StatusPaymentRequired {
		return true
	}
	return containsAny(lc, quotaMarkers)
}

// IsAuthResponse reports a rejected credential.
func IsAuthResponse(status int, code string) bool {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return true
	}
	lc := strings.ToLower(code)
	return lc == "invalid_api_key" || lc == "authentication_error" || lc == "permission_error"
}

// Redact removes every occurrence of secret from s.
func Redact(s, secret string) string {
	if strings.TrimSpace(secret) == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "[redacted]")
}

// Truncate shortens payloads before they reach the log.
func Truncate(b []byte, limit int) string {
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "... (truncated)"
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
