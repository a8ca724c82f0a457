package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client provides HTTP client functionality to communicate with a webwatch daemon
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger // Optional logger for client operations
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080",
		Timeout: 10 * time.Second,
	}
}

// New creates a new webwatch API client
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8080"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks if the daemon is running and reachable
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/healthz", nil)
	if err != nil {
		c.logger.Debug("Failed to create request for reachability check", "error", err)
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("Daemon unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	isReachable := resp.StatusCode == http.StatusOK
	c.logger.Debug("Daemon reachability check", "reachable", isReachable, "status", resp.StatusCode)
	return isReachable
}

// List returns all monitors registered under the given owner key
func (c *Client) List(ctx context.Context, ownerKey string) ([]Monitor, error) {
	c.logger.Debug("Listing monitors")

	endpoint := c.baseURL + "/monitors?owner_key=" + url.QueryEscape(ownerKey)
	resp, err := c.do(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}

	var out struct {
		Count int       `json:"count"`
		Data  []Monitor `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Data, nil
}

// Create registers a new monitor and returns its id
func (c *Client) Create(ctx context.Context, req CreateRequest) (int64, error) {
	c.logger.Debug("Creating monitor", "url", req.URL, "selector", req.Selector)

	data, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.do(ctx, "POST", c.baseURL+"/monitors", data)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp, http.StatusCreated); err != nil {
		return 0, err
	}

	var out struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	c.logger.Debug("Monitor created", "id", out.ID)
	return out.ID, nil
}

// Delete removes a monitor owned by the given key
func (c *Client) Delete(ctx context.Context, id int64, ownerKey string) error {
	c.logger.Debug("Deleting monitor", "id", id)

	endpoint := c.baseURL + "/monitors/" + strconv.FormatInt(id, 10) +
		"?owner_key=" + url.QueryEscape(ownerKey)
	resp, err := c.do(ctx, "DELETE", endpoint, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	return c.checkStatus(resp, http.StatusOK)
}

// TriggerRun asks the daemon to run one batch pass immediately
func (c *Client) TriggerRun(ctx context.Context, secret string) (RunSummary, error) {
	c.logger.Debug("Triggering batch run")

	endpoint := c.baseURL + "/worker/run?secret=" + url.QueryEscape(secret)
	resp, err := c.do(ctx, "POST", endpoint, nil)
	if err != nil {
		return RunSummary{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp, http.StatusOK); err != nil {
		return RunSummary{}, err
	}

	var sum RunSummary
	if err := json.NewDecoder(resp.Body).Decode(&sum); err != nil {
		return RunSummary{}, fmt.Errorf("decode response: %w", err)
	}
	return sum, nil
}

// do performs an HTTP request with common error handling
func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	var req *http.Request
	var err error
	if bodyReader != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, bodyReader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", "error", err, "url", url)
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

// checkStatus drains an error body into a typed error when the status differs
func (c *Client) checkStatus(resp *http.Response, want int) error {
	if resp.StatusCode == want {
		return nil
	}

	var errorResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
		c.logger.Error("Failed to decode error response", "status", resp.StatusCode)
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	c.logger.Error("API request failed", "error", errorResp.Error, "status", resp.StatusCode)
	return fmt.Errorf("API error: %s", errorResp.Error)
}
