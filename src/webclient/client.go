package webclient

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBody bounds how much of an upstream response is read into memory.
const maxBody = 8 << 20

// NewDefault returns an HTTP client with sane timeouts.
func NewDefault(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// Send performs exactly one attempt. A non-2xx status is returned with its body and a nil error;
// callers decide how to classify it.
func Send(client *http.Client, req *http.Request) (int, []byte, error) {
	if client == nil {
		client = NewDefault(0)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, b, nil
}
