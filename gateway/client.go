package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrTemplateNotFound is returned when the gateway has no stored template at
// the requested scope. Callers fall through to the next tier.
var ErrTemplateNotFound = errors.New("gateway: template not found")

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

// SetupResult is the raw outcome of one setup dispatch. A transport failure
// never produces a SetupResult; it surfaces as an error from PostSetup.
type SetupResult struct {
	OK         bool
	StatusCode int
	Body       string
}

// PostSetup sends one PunchOutSetupRequest document to the gateway. A single
// attempt, no retry: the poller observes everything that happens after the
// gateway accepts the document.
func (c *Client) PostSetup(ctx context.Context, payload string) (*SetupResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/punchout/setup", strings.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gateway setup request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway POST /punchout/setup: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway read setup response: %w", err)
	}

	return &SetupResult{
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}, nil
}

// CustomerTemplate fetches the template stored for one customer in one
// environment. Returns ErrTemplateNotFound on 404.
func (c *Client) CustomerTemplate(ctx context.Context, environment, customerID string) (string, error) {
	path := fmt.Sprintf("/cxml-templates/environment/%s/customer/%s",
		url.PathEscape(environment), url.PathEscape(customerID))
	return c.fetchTemplate(ctx, path)
}

// EnvironmentTemplate fetches the environment-wide default template.
// Returns ErrTemplateNotFound on 404.
func (c *Client) EnvironmentTemplate(ctx context.Context, environment string) (string, error) {
	path := fmt.Sprintf("/cxml-templates/environment/%s/default", url.PathEscape(environment))
	return c.fetchTemplate(ctx, path)
}

func (c *Client) fetchTemplate(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("gateway template request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gateway read template: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return "", ErrTemplateNotFound
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("gateway HTTP %d: %s", resp.StatusCode, string(data))
	}
	return string(data), nil
}

// BaseURL returns the client's base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Reconfigure updates the client's base URL and timeout for hot-reload.
func (c *Client) Reconfigure(baseURL string, timeout time.Duration) {
	c.baseURL = strings.TrimRight(baseURL, "/")
	c.httpClient.Timeout = timeout
}
