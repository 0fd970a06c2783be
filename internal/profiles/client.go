// File: internal/profiles/client.go
package profiles

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fingerprints maps the configured fingerprint name to the profile template
// sent to the control service.
var fingerprints = map[string]map[string]string{
	"macos": {
		"user_agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)",
		"resolution": "2560x1600",
		"timezone":   "UTC-5",
	},
	"windows": {
		"user_agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
		"resolution": "1920x1080",
		"timezone":   "UTC+1",
	},
	"linux": {
		"user_agent": "Mozilla/5.0 (X11; Linux x86_64)",
		"resolution": "1920x1080",
		"timezone":   "UTC",
	},
}

// Client is a thin wrapper around the profile control service HTTP API.
// All methods perform one network round trip.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *zap.Logger
}

// NewClient creates a control-service client. baseURL points at the local
// control endpoint, e.g. "http://local.adspower.net:50325".
func NewClient(httpClient *http.Client, baseURL, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		logger:     logger.Named("profiles_client"),
	}
}

// apiResponse is the uniform envelope the control service wraps every payload
// in. Code zero means success.
type apiResponse struct {
	Code int                 `json:"code"`
	Msg  string              `json:"msg"`
	Data jsoniter.RawMessage `json:"data"`
}

type browserWS struct {
	Puppeteer string `json:"puppeteer"`
	Selenium  string `json:"selenium"`
}

type activeBrowser struct {
	UserID    string    `json:"user_id"`
	WS        browserWS `json:"ws"`
	WebDriver string    `json:"webdriver"`
}

// CheckHealth verifies the control service responds on its status endpoint.
func (c *Client) CheckHealth(ctx context.Context) error {
	_, err := c.get(ctx, "/status", nil)
	if err != nil {
		return fmt.Errorf("profile service unreachable: %w", err)
	}
	return nil
}

// CreateProfile registers a new browser profile and returns its id.
func (c *Client) CreateProfile(ctx context.Context, name, groupID, fingerprint string) (string, error) {
	fp, ok := fingerprints[fingerprint]
	if !ok {
		return "", fmt.Errorf("unknown fingerprint template %q", fingerprint)
	}

	payload := map[string]any{
		"name":               name,
		"group_id":           groupID,
		"fingerprint_config": fp,
	}
	data, err := c.post(ctx, "/api/v1/user/create", payload)
	if err != nil {
		return "", fmt.Errorf("create profile: %w", err)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("create profile: service returned empty profile id")
	}
	return created.ID, nil
}

// DeleteProfile removes a profile remotely. The service treats deleting an
// unknown id as success, which keeps release idempotent.
func (c *Client) DeleteProfile(ctx context.Context, id string) error {
	payload := map[string]any{"user_ids": []string{id}}
	if _, err := c.post(ctx, "/api/v1/user/delete", payload); err != nil {
		return fmt.Errorf("delete profile %s: %w", id, err)
	}
	return nil
}

// StartBrowser asks the service to launch the profile's browser instance.
func (c *Client) StartBrowser(ctx context.Context, id string) error {
	params := url.Values{"user_id": {id}}
	if _, err := c.get(ctx, "/api/v1/browser/start", params); err != nil {
		return fmt.Errorf("start browser for profile %s: %w", id, err)
	}
	return nil
}

// StopBrowser shuts the profile's browser instance down. Stopping an already
// stopped browser is not an error.
func (c *Client) StopBrowser(ctx context.Context, id string) error {
	params := url.Values{"user_id": {id}}
	if _, err := c.get(ctx, "/api/v1/browser/stop", params); err != nil {
		return fmt.Errorf("stop browser for profile %s: %w", id, err)
	}
	return nil
}

// ConnectionEndpoint looks the profile up in the service's active-browser list
// and returns its CDP websocket endpoint. Returns empty string (no error) when
// the browser is not yet listed, so callers can poll.
func (c *Client) ConnectionEndpoint(ctx context.Context, id string) (string, error) {
	data, err := c.get(ctx, "/api/v1/browser/local-active", nil)
	if err != nil {
		return "", fmt.Errorf("list active browsers: %w", err)
	}

	var listing struct {
		List []activeBrowser `json:"list"`
	}
	if err := json.Unmarshal(data, &listing); err != nil {
		return "", fmt.Errorf("decode active browsers: %w", err)
	}

	for _, b := range listing.List {
		if b.UserID == id && b.WS.Puppeteer != "" {
			return b.WS.Puppeteer, nil
		}
	}
	return "", nil
}

// -- transport helpers --

func (c *Client) get(ctx context.Context, path string, params url.Values) (jsoniter.RawMessage, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, payload any) (jsoniter.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (jsoniter.RawMessage, error) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Path)
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode response envelope: %w", err)
	}
	if envelope.Code != 0 {
		return nil, fmt.Errorf("service error from %s: %s", req.URL.Path, envelope.Msg)
	}
	return envelope.Data, nil
}
