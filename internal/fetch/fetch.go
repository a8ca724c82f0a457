// Package fetch retrieves raw page content over HTTP.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single fetch including connection setup and body
// read. The timeout is the only cancellation mechanism; there are no retries.
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent identifies the service to fetched sites.
const DefaultUserAgent = "webwatch/1.0 (+https://github.com/ochse/webwatch)"

// Error carries the failure cause for a single fetch attempt. Status is zero
// for connection-level failures.
type Error struct {
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client issues single GET requests with a fixed User-Agent and bounded
// timeout.
type Client struct {
	http      *http.Client
	userAgent string
}

// New returns a Client. Zero timeout falls back to DefaultTimeout, empty
// userAgent to DefaultUserAgent.
func New(timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch GETs url and returns the response body as a string. Any non-2xx
// status, connection failure or timeout yields *Error.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &Error{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{URL: url, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{URL: url, Err: err}
	}
	return string(body), nil
}
