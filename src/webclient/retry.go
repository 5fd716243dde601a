package webclient

import (
	"context"
	"time"
)

// AttemptFunc is one try of a caller-driven operation.
type AttemptFunc func() error

// DoWithRetry retries fn while retryable(err) holds, doubling the delay up to 30s.
// Outbound provider calls never retry on their own; interactive callers opt in here.
func DoWithRetry(ctx context.Context, attempts int, initialDelay time.Duration, retryable func(error) bool, fn AttemptFunc) error {
	if attempts <= 0 {
		attempts = 1
	}
	if initialDelay <= 0 {
		initialDelay = 2 * time.Second
	}
	delay := initialDelay
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || retryable == nil || !retryable(err) {
			return err
		}
		if i == attempts-1 {
			return err
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
	return err
}
