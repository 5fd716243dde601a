package webclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSendReturnsStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	status, body, err := Send(NewDefault(time.Second), req)
	if err != nil {
		t.Fatalf("non-2xx must not be an error: %v", err)
	}
	if status != http.StatusTooManyRequests || string(body) != `{"error":"slow down"}` {
		t.Fatalf("unexpected %d %s", status, body)
	}
}

func TestSendTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if _, _, err := Send(nil, req); err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestNewDefaultTimeout(t *testing.T) {
	if NewDefault(0).Timeout != 60*time.Second {
		t.Fatalf("zero timeout must use the default")
	}
	if NewDefault(time.Second).Timeout != time.Second {
		t.Fatalf("explicit timeout ignored")
	}
}
