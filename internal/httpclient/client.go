// Package httpclient provides the minimal HTTP client surface the
// remote list fetcher needs, small enough to fake in tests.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single request when no explicit timeout is
// given.
const DefaultTimeout = 30 * time.Second

// maxResponseSize caps how much of a response body is read. Overlay
// lists are small; anything beyond this is a misbehaving server.
const maxResponseSize = 32 * 1024 * 1024

// Client fetches the body of a URL.
type Client interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// HTTPError reports a response with a non-success status code.
type HTTPError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

type defaultClient struct {
	client *http.Client
}

// NewDefaultClient creates a client with the given per-request
// timeout; zero selects DefaultTimeout.
func NewDefaultClient(timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &defaultClient{
		client: &http.Client{Timeout: timeout},
	}
}

// Get implements Client.
func (c *defaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %q: %w", url, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %q failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			URL:        url,
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %q: %w", url, err)
	}
	return body, nil
}
