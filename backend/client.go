package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NetworkRequests returns the audit entries logged under one session key,
// in backend order. An empty slice simply means persistence has not caught
// up yet; the poller retries.
func (c *Client) NetworkRequests(ctx context.Context, sessionKey string) ([]NetworkRequest, error) {
	path := fmt.Sprintf("/v1/sessions/%s/network-requests", url.PathEscape(sessionKey))
	var entries []NetworkRequest
	if err := c.get(ctx, path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetSession fetches the backend's session record for one key.
func (c *Client) GetSession(ctx context.Context, sessionKey string) (*Session, error) {
	path := fmt.Sprintf("/v1/sessions/%s", url.PathEscape(sessionKey))
	var s Session
	if err := c.get(ctx, path, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateTestRecord persists one execution outcome to the backend.
func (c *Client) CreateTestRecord(ctx context.Context, rec *TestRecord) error {
	return c.post(ctx, "/v1/punchout-tests", rec, nil)
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("api request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	return c.decode(resp, path, result)
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("api marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("api request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api POST %s: %w", path, err)
	}
	defer resp.Body.Close()
	return c.decode(resp, path, result)
}

func (c *Client) decode(resp *http.Response, path string, result any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("api HTTP %d on %s: %s", resp.StatusCode, path, string(data))
	}
	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("api decode %s: %w", path, err)
		}
	}
	return nil
}

// BaseURL returns the client's base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Reconfigure updates the client's base URL and timeout for hot-reload.
func (c *Client) Reconfigure(baseURL string, timeout time.Duration) {
	c.baseURL = strings.TrimRight(baseURL, "/")
	c.httpClient.Timeout = timeout
}
