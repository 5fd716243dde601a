package webserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/ai/core"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/config"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/data"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/metrics"
)

const invokePath = "/api/v1/llm/invoke"

func TestInvokeText(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, invokePath, tokenFor(t, 1), map[string]any{
		"prompt":                    "hi",
		"add_context_from_internet": true,
		"agent_id":                  "agent-2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("invoke: %d %s", rec.Code, rec.Body.String())
	}
	if decode[string](t, rec) != "hello" {
		t.Fatalf("expected JSON string body, got %s", rec.Body.String())
	}
	if rec.Header().Get(warningsHeader) != "" {
		t.Fatalf("unexpected warnings header")
	}
	got := ts.llm.reqs[0]
	if got.Prompt != "hi" || !got.AddInternetContext || got.ResponseSchema != nil {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestInvokeStructuredWithWarnings(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.llm.reply = func(req core.Request) (core.Result, error) {
		return core.Result{
			Kind:     core.KindStructured,
			Data:     map[string]any{core.RawResponseKey: "I don't know", core.SchemaParseFailedKey: true},
			Warnings: []core.Warning{{Code: core.WarnSchemaUnparseable}},
		}, nil
	}
	schema := map[string]any{"type": "object", "properties": map[string]any{"answer": map[string]any{"type": "string"}}}
	rec := ts.do(t, http.MethodPost, invokePath, tokenFor(t, 1), map[string]any{"prompt": "q", "response_json_schema": schema})
	if rec.Code != http.StatusOK {
		t.Fatalf("invoke: %d %s", rec.Code, rec.Body.String())
	}
	body := decode[map[string]any](t, rec)
	if body[core.SchemaParseFailedKey] != true || body[core.RawResponseKey] != "I don't know" {
		t.Fatalf("unexpected wrapper: %v", body)
	}
	if rec.Header().Get(warningsHeader) != "schema_unparseable" {
		t.Fatalf("warnings header = %q", rec.Header().Get(warningsHeader))
	}
	if _, ok := ts.llm.reqs[0].ResponseSchema.(map[string]any); !ok {
		t.Fatalf("schema not forwarded: %#v", ts.llm.reqs[0].ResponseSchema)
	}
}

func TestInvokeErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"missing credential", &core.ConfigError{Provider: "fake", Reason: core.ErrMissingCredential}, http.StatusServiceUnavailable, msgNotConfigured},
		{"quota", &core.ProviderError{Provider: "fake", Retryable: true, Message: "quota exceeded"}, http.StatusTooManyRequests, msgRateLimited},
		{"upstream", &core.ProviderError{Provider: "fake", StatusCode: 500, Message: "upstream error: sk-secret"}, http.StatusBadGateway, msgUpstream},
		{"untyped", errors.New("boom"), http.StatusBadGateway, msgUpstream},
		{"blank prompt", core.ErrEmptyPrompt, http.StatusBadRequest, "prompt is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			ts.llm.reply = func(core.Request) (core.Result, error) { return core.Result{}, tc.err }
			rec := ts.do(t, http.MethodPost, invokePath, tokenFor(t, 1), map[string]any{"prompt": "q"})
			if rec.Code != tc.status || messageOf(t, rec) != tc.msg {
				t.Fatalf("got %d %s", rec.Code, rec.Body.String())
			}
			if strings.Contains(rec.Body.String(), "sk-secret") {
				t.Fatalf("upstream detail leaked: %s", rec.Body.String())
			}
		})
	}
}

func TestInvokeBadRequest(t *testing.T) {
	ts := newTestServer(t, nil)
	tok := tokenFor(t, 1)
	for name, body := range map[string]any{
		"missing prompt": map[string]any{"add_context_from_internet": true},
		"bad agent":      map[string]any{"prompt": "q", "agent_id": "agent-3"},
		"wrong type":     map[string]any{"prompt": 42},
	} {
		if rec := ts.do(t, http.MethodPost, invokePath, tok, body); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, rec.Code)
		}
	}
	if len(ts.llm.reqs) != 0 {
		t.Fatalf("adapter called for invalid bodies")
	}
}

func TestInvokeRateLimited(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb, err := data.NewRedis("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	defer rdb.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for name, build := range map[string]func(cfg config.Config) Limiter{
		"memory": func(cfg config.Config) Limiter { return NewRateLimiter(ctx, cfg.RateLimit, cfg.RateWindow) },
		"redis":  func(cfg config.Config) Limiter { return data.NewRedisLimiter(rdb, cfg.RateLimit, cfg.RateWindow) },
	} {
		t.Run(name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			recorder, err := metrics.NewRecorder(reg)
			if err != nil {
				t.Fatalf("recorder: %v", err)
			}
			ts := newTestServer(t, func(cfg *config.Config, d *Deps) {
				cfg.RateLimit = 2
				cfg.RateWindow = time.Hour
				d.Limiter = build(*cfg)
				d.Metrics = recorder
			})
			userA, userB := tokenFor(t, 10), tokenFor(t, 11)
			for i := 0; i < 2; i++ {
				if rec := ts.do(t, http.MethodPost, invokePath, userA, map[string]any{"prompt": "q"}); rec.Code != http.StatusOK {
					t.Fatalf("request %d: %d", i, rec.Code)
				}
			}
			if rec := ts.do(t, http.MethodPost, invokePath, userA, map[string]any{"prompt": "q"}); rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", rec.Code)
			}
			if rec := ts.do(t, http.MethodPost, invokePath, userB, map[string]any{"prompt": "q"}); rec.Code != http.StatusOK {
				t.Fatalf("limit must be per user, got %d", rec.Code)
			}
			if len(ts.llm.reqs) != 3 {
				t.Fatalf("expected 3 adapter calls, got %d", len(ts.llm.reqs))
			}

			rec := ts.do(t, http.MethodGet, "/metrics", "", nil)
			if !strings.Contains(rec.Body.String(), `dualagents_rate_limited_total{route="llm_invoke"} 1`) {
				t.Fatalf("rate limit not recorded:\n%s", rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), `dualagents_llm_invocations_total{agent_id="none",outcome="ok",provider="fake"} 3`) {
				t.Fatalf("invocations not recorded:\n%s", rec.Body.String())
			}
		})
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) { return false, errors.New("redis down") }
func (failingLimiter) Describe() string                            { return "broken" }

func TestInvokeLimiterFailureLetsRequestThrough(t *testing.T) {
	ts := newTestServer(t, func(_ *config.Config, d *Deps) { d.Limiter = failingLimiter{} })
	if rec := ts.do(t, http.MethodPost, invokePath, tokenFor(t, 1), map[string]any{"prompt": "q"}); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestInvokeAttachesDeadline(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config, _ *Deps) { cfg.LLMTimeout = 20 * time.Millisecond })
	ts.llm.reply = func(core.Request) (core.Result, error) {
		return core.Result{}, &core.ProviderError{Provider: "fake", Message: "request timed out", Cause: context.DeadlineExceeded}
	}
	rec := ts.do(t, http.MethodPost, invokePath, tokenFor(t, 1), map[string]any{"prompt": "q"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}
