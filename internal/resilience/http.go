package resilience

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// HTTPClient issues GET requests through an Executor. Network errors and
// 5xx responses are retried; other non-2xx responses fail immediately.
type HTTPClient struct {
	http *http.Client
	exec *Executor
}

// NewHTTPClient creates a client whose individual attempts time out after timeout.
// Default timeout: 30 seconds.
func NewHTTPClient(cfg Config, timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		http: &http.Client{Timeout: timeout},
		exec: NewExecutor(cfg),
	}
}

// Executor returns the executor backing the client.
func (c *HTTPClient) Executor() *Executor { return c.exec }

// Get fetches url. On success the caller must close the response body.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	var resp *http.Response
	err := c.exec.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return Permanent(err)
		}
		r, err := c.http.Do(req)
		if err != nil {
			return err
		}
		if r.StatusCode >= 200 && r.StatusCode < 300 {
			resp = r
			return nil
		}

		_, _ = io.Copy(io.Discard, r.Body)
		r.Body.Close()
		statusErr := &StatusError{StatusCode: r.StatusCode}
		if r.StatusCode >= 500 {
			return statusErr
		}
		return Permanent(statusErr)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
