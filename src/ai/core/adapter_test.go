package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
)

type fakeProvider struct {
	tools bool
	reply func(Call) (Reply, error)

	mu    sync.Mutex
	calls []Call
}

func (f *fakeProvider) Name() string       { return "fake" }
func (f *fakeProvider) SupportsTools() bool { return f.tools }

func (f *fakeProvider) Complete(_ context.Context, call Call) (Reply, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	return f.reply(call)
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeProvider) lastCall(t *testing.T) Call {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatalf("provider was never called")
	}
	return f.calls[len(f.calls)-1]
}

func textReply(text string) func(Call) (Reply, error) {
	return func(Call) (Reply, error) { return Reply{Text: text}, nil }
}

func answerSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer": map[string]any{"type": "string"},
		},
	}
}

func testConfig() ProviderConfig {
	return ProviderConfig{Provider: "fake", APIKey: "sk-test-secret", Model: "fake-model"}
}

func TestInvokeWithoutSchemaReturnsText(t *testing.T) {
	p := &fakeProvider{reply: textReply("Paris is the capital of France.")}
	a := NewAdapterWithProvider(testConfig(), p)

	res, err := a.Invoke(context.Background(), Request{Prompt: "Capital of France?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != KindText {
		t.Fatalf("expected text result, got %s", res.Kind)
	}
	if _, ok := res.Payload().(string); !ok {
		t.Fatalf("expected string payload, got %T", res.Payload())
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", res.Warnings)
	}

	call := p.lastCall(t)
	if call.Tool != nil {
		t.Fatalf("no tool expected without schema")
	}
	if call.System != DefaultSystemPrompt {
		t.Fatalf("unexpected system prompt %q", call.System)
	}
	if call.Model != "fake-model" {
		t.Fatalf("unexpected model %q", call.Model)
	}
	if len(call.Messages) != 1 || call.Messages[0].Role != "user" || call.Messages[0].Content != "Capital of France?" {
		t.Fatalf("unexpected messages: %+v", call.Messages)
	}
}

func TestInvokeInvalidSchemaFallsBackToText(t *testing.T) {
	cases := map[string]any{
		"missing type":       map[string]any{"properties": map[string]any{}},
		"array type":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"missing properties": map[string]any{"type": "object"},
		"not an object":      "answer as json please",
		"list":               []any{"type", "object"},
	}

	for name, schema := range cases {
		t.Run(name, func(t *testing.T) {
			for _, tools := range []bool{true, false} {
				plain := &fakeProvider{tools: tools, reply: textReply("plain answer")}
				want, err := NewAdapterWithProvider(testConfig(), plain).Invoke(context.Background(), Request{Prompt: "q"})
				if err != nil {
					t.Fatalf("baseline: %v", err)
				}

				p := &fakeProvider{tools: tools, reply: textReply("plain answer")}
				got, err := NewAdapterWithProvider(testConfig(), p).Invoke(context.Background(), Request{Prompt: "q", ResponseSchema: schema})
				if err != nil {
					t.Fatalf("invalid schema must not fail the call: %v", err)
				}
				if got.Kind != want.Kind || !reflect.DeepEqual(got.Payload(), want.Payload()) {
					t.Fatalf("fallback mismatch: got %#v want %#v", got.Payload(), want.Payload())
				}
				if !got.HasWarning(WarnSchemaInvalid) {
					t.Fatalf("expected %s warning, got %+v", WarnSchemaInvalid, got.Warnings)
				}
				if !reflect.DeepEqual(p.lastCall(t), plain.lastCall(t)) {
					t.Fatalf("provider call differs from the no-schema call")
				}
			}
		})
	}
}

func TestInvokeToolStrategyParsesArguments(t *testing.T) {
	p := &fakeProvider{tools: true, reply: func(call Call) (Reply, error) {
		if call.Tool == nil || call.Tool.Name != StructuredToolName || !call.ForceTool {
			return Reply{}, fmt.Errorf("structured tool not forced: %+v", call.Tool)
		}
		return Reply{ToolCalls: []ToolCall{{Name: StructuredToolName, Arguments: `{"answer":"42"}`}}}, nil
	}}
	a := NewAdapterWithProvider(testConfig(), p)
	if a.Strategy().Name() != "tool_call" {
		t.Fatalf("expected tool_call strategy, got %s", a.Strategy().Name())
	}

	schema := answerSchema()
	res, err := a.Invoke(context.Background(), Request{Prompt: "meaning of life", ResponseSchema: schema})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != KindStructured {
		t.Fatalf("expected structured result, got %s", res.Kind)
	}
	props := schema["properties"].(map[string]any)
	for k := range res.Data {
		if _, ok := props[k]; !ok {
			t.Fatalf("key %q not declared in schema", k)
		}
	}
	if res.Data["answer"] != "42" {
		t.Fatalf("unexpected data: %+v", res.Data)
	}
	if !reflect.DeepEqual(p.lastCall(t).Tool.Parameters, schema) {
		t.Fatalf("tool parameters must equal the schema")
	}
}

func TestInvokePromptInjectionRoundTrip(t *testing.T) {
	p := &fakeProvider{reply: textReply(`{"answer":"42"}`)}
	a := NewAdapterWithProvider(testConfig(), p)

	res, err := a.Invoke(context.Background(), Request{Prompt: "meaning of life", ResponseSchema: answerSchema()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.Payload(), map[string]any{"answer": "42"}) {
		t.Fatalf("unexpected payload: %#v", res.Payload())
	}

	call := p.lastCall(t)
	if call.Tool != nil {
		t.Fatalf("prompt injection must not declare tools")
	}
	if !strings.Contains(call.System, SchemaDirective) || !strings.Contains(call.System, `"answer"`) {
		t.Fatalf("schema not embedded in system prompt: %q", call.System)
	}
}

func TestInvokePromptInjectionParseFailure(t *testing.T) {
	p := &fakeProvider{reply: textReply("I don't know")}
	a := NewAdapterWithProvider(testConfig(), p)

	res, err := a.Invoke(context.Background(), Request{Prompt: "meaning of life", ResponseSchema: answerSchema()})
	if err != nil {
		t.Fatalf("parse failure must not raise: %v", err)
	}
	if res.Kind != KindStructured {
		t.Fatalf("expected structured wrapper, got %s", res.Kind)
	}
	if res.Data[RawResponseKey] != "I don't know" || res.Data[SchemaParseFailedKey] != true {
		t.Fatalf("unexpected wrapper: %#v", res.Data)
	}
	if !res.HasWarning(WarnSchemaUnparseable) {
		t.Fatalf("expected %s warning", WarnSchemaUnparseable)
	}
}

func TestInvokeToolStrategyBadArgumentsDegrade(t *testing.T) {
	p := &fakeProvider{tools: true, reply: func(Call) (Reply, error) {
		return Reply{ToolCalls: []ToolCall{{Name: StructuredToolName, Arguments: `{"answer":`}}}, nil
	}}
	res, err := NewAdapterWithProvider(testConfig(), p).Invoke(context.Background(), Request{Prompt: "q", ResponseSchema: answerSchema()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Data[SchemaParseFailedKey] != true || res.Data[RawResponseKey] != `{"answer":` {
		t.Fatalf("unexpected wrapper: %#v", res.Data)
	}
}

func TestInvokeMissingCredential(t *testing.T) {
	p := &fakeProvider{reply: textReply("never")}
	cfg := testConfig()
	cfg.APIKey = "  "
	a := NewAdapterWithProvider(cfg, p)

	_, err := a.Invoke(context.Background(), Request{Prompt: "hello"})
	ce, ok := AsConfigError(err)
	if !ok {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if ce.Reason != ErrMissingCredential {
		t.Fatalf("unexpected reason %q", ce.Reason)
	}
	if p.callCount() != 0 {
		t.Fatalf("provider must not be called, got %d calls", p.callCount())
	}
}

func TestInvokeEmptyPrompt(t *testing.T) {
	p := &fakeProvider{reply: textReply("never")}
	_, err := NewAdapterWithProvider(testConfig(), p).Invoke(context.Background(), Request{Prompt: "   "})
	if !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
	if p.callCount() != 0 {
		t.Fatalf("provider must not be called")
	}
}

func TestInvokeInternetContextShapesPromptOnly(t *testing.T) {
	p := &fakeProvider{reply: textReply("ok")}
	cfg := testConfig()
	cfg.SystemPrompt = "Be brief."
	a := NewAdapterWithProvider(cfg, p)

	if _, err := a.Invoke(context.Background(), Request{Prompt: "news?", AddInternetContext: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call := p.lastCall(t)
	if !strings.HasPrefix(call.System, "Be brief.") || !strings.Contains(call.System, InternetContextDirective) {
		t.Fatalf("internet directive missing: %q", call.System)
	}
	if p.callCount() != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", p.callCount())
	}
}

func TestInvokeWrapsUntypedErrors(t *testing.T) {
	p := &fakeProvider{reply: func(Call) (Reply, error) {
		return Reply{}, errors.New("dial tcp: connection refused (key sk-test-secret)")
	}}
	_, err := NewAdapterWithProvider(testConfig(), p).Invoke(context.Background(), Request{Prompt: "hi"})
	pe, ok := AsProviderError(err)
	if !ok {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Retryable {
		t.Fatalf("network failure must not be retryable")
	}
	if strings.Contains(err.Error(), "sk-test-secret") {
		t.Fatalf("credential leaked in %q", err.Error())
	}
}

func TestInvokeTransportErrorsAreNeverRetryable(t *testing.T) {
	for _, msg := range []string{
		`Post "http://llm-proxy.internal:8429/v1/chat/completions": dial tcp 10.0.0.7:8429: connect: connection refused`,
		"read tcp 10.0.0.2:42900->10.0.0.7:443: connection reset by peer (rate_limit proxy)",
	} {
		p := &fakeProvider{reply: func(Call) (Reply, error) { return Reply{}, errors.New(msg) }}
		_, err := NewAdapterWithProvider(testConfig(), p).Invoke(context.Background(), Request{Prompt: "hi"})
		pe, ok := AsProviderError(err)
		if !ok {
			t.Fatalf("expected ProviderError, got %v", err)
		}
		if pe.Retryable || IsRetryable(err) {
			t.Fatalf("%q classified as retryable", msg)
		}
		if pe.Message != "request failed" {
			t.Fatalf("message = %q", pe.Message)
		}
	}
}

func TestInvokePassesTypedErrors(t *testing.T) {
	quota := ClassifyStatus("fake", 429, "insufficient_quota")
	p := &fakeProvider{reply: func(Call) (Reply, error) { return Reply{}, quota }}
	_, err := NewAdapterWithProvider(testConfig(), p).Invoke(context.Background(), Request{Prompt: "hi"})
	if !IsRetryable(err) {
		t.Fatalf("quota error must be retryable: %v", err)
	}
}

func TestInvokeEmptyTextIsProviderError(t *testing.T) {
	p := &fakeProvider{reply: textReply("  ")}
	_, err := NewAdapterWithProvider(testConfig(), p).Invoke(context.Background(), Request{Prompt: "hi"})
	if _, ok := AsProviderError(err); !ok {
		t.Fatalf("expected ProviderError, got %v", err)
	}
}

func TestInvokeConcurrentCallsDoNotCrossTalk(t *testing.T) {
	p := &fakeProvider{reply: func(call Call) (Reply, error) {
		return Reply{Text: "echo:" + call.Messages[0].Content}, nil
	}}
	a := NewAdapterWithProvider(testConfig(), p)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			prompt := fmt.Sprintf("prompt-%d", i)
			req := Request{Prompt: prompt}
			if i%2 == 0 {
				req.ResponseSchema = "bogus"
			}
			res, err := a.Invoke(context.Background(), req)
			if err != nil {
				errs <- err
				return
			}
			if res.Text != "echo:"+prompt {
				errs <- fmt.Errorf("cross-talk: %q for %q", res.Text, prompt)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}
