package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// apiError represents an error from an LLM API that may or may not be retryable.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// UpstreamStatus is the HTTP status the LLM API answered with.
func (e *apiError) UpstreamStatus() int { return e.StatusCode }

// isRetryable returns true for transient errors (rate limit, server errors).
func (e *apiError) isRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// retryBackoff is the base delay between attempts; tests shorten it.
var retryBackoff = 2 * time.Second

// withRetry calls fn up to twice, retrying once with backoff on transient
// failures. Errors are prefixed with name.
func withRetry(ctx context.Context, name string, fn func() (string, error)) (string, error) {
	const maxAttempts = 2
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		// Only retry on transient/retryable errors.
		var ae *apiError
		if errors.As(err, &ae) && !ae.isRetryable() {
			return "", fmt.Errorf("%s: %w", name, err)
		}

		if attempt < maxAttempts-1 {
			backoff := time.Duration(attempt+1) * retryBackoff
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return "", fmt.Errorf("%s: %w", name, lastErr)
}
