package webserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/ai/core"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/metrics"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/types"
)

const warningsHeader = "X-LLM-Warnings"

const (
	msgNotConfigured = "AI provider is not configured correctly."
	msgRateLimited   = "AI provider rate limit or quota exceeded. Please try again later."
	msgUpstream      = "Failed to get response from AI."
)

type LLM struct {
	adapter Invoker
	metrics *metrics.Recorder
	timeout time.Duration
}

func NewLLM(adapter Invoker, rec *metrics.Recorder, timeout time.Duration) LLM {
	return LLM{adapter: adapter, metrics: rec, timeout: timeout}
}

func (h LLM) Invoke(c *gin.Context) {
	var req struct {
		Prompt                 string `json:"prompt" binding:"required"`
		AddContextFromInternet bool   `json:"add_context_from_internet"`
		ResponseJSONSchema     any    `json:"response_json_schema"`
		AgentID                string `json:"agent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if req.AgentID != "" && !types.ValidAgent(req.AgentID) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "agent_id must be agent-1 or agent-2"})
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	provider := h.adapter.Provider()
	start := time.Now()
	res, err := h.adapter.Invoke(ctx, core.Request{
		Prompt:             req.Prompt,
		AddInternetContext: req.AddContextFromInternet,
		ResponseSchema:     req.ResponseJSONSchema,
	})
	status, outcome, msg := statusFor(err)
	h.observe(provider, req.AgentID, outcome, time.Since(start), res.Warnings)

	if err != nil {
		log.Printf("http: llm: %s agent=%q: %v", provider, req.AgentID, err)
		c.JSON(status, gin.H{"message": msg})
		return
	}

	if len(res.Warnings) > 0 {
		codes := make([]string, 0, len(res.Warnings))
		for _, w := range res.Warnings {
			codes = append(codes, string(w.Code))
		}
		c.Header(warningsHeader, strings.Join(codes, ","))
	}
	c.JSON(http.StatusOK, res.Payload())
}

func (h LLM) observe(provider, agentID, outcome string, d time.Duration, warnings []core.Warning) {
	if h.metrics == nil {
		return
	}
	h.metrics.ObserveInvocation(provider, agentID, outcome, d)
	for _, w := range warnings {
		h.metrics.ObserveWarning(provider, string(w.Code))
	}
}

// statusFor maps an adapter outcome onto the HTTP status, metrics label and client message.
func statusFor(err error) (int, string, string) {
	if err == nil {
		return http.StatusOK, "ok", ""
	}
	if errors.Is(err, core.ErrEmptyPrompt) {
		return http.StatusBadRequest, "bad_request", "prompt is required"
	}
	if _, ok := core.AsConfigError(err); ok {
		return http.StatusServiceUnavailable, "config_error", msgNotConfigured
	}
	if core.IsRetryable(err) {
		return http.StatusTooManyRequests, "rate_limited", msgRateLimited
	}
	return http.StatusBadGateway, "upstream_error", msgUpstream
}
