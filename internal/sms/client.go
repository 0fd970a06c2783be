// File: internal/sms/client.go

// Package sms talks to the phone-verification provider. The provider speaks
// a plain-text query protocol: every call is a GET with an action parameter,
// and the body is either a colon-separated status line or, for price lookups,
// a JSON document.
package sms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/forgelabs-io/accountforge/internal/config"
	"github.com/forgelabs-io/accountforge/internal/network"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Sentinel errors for provider-side conditions the caller must branch on.
var (
	// ErrProviderExhausted means no number can be leased right now, either
	// because stock ran out or the account balance cannot cover one.
	ErrProviderExhausted = errors.New("sms: provider exhausted")
	// ErrBadCredentials means the API key was rejected.
	ErrBadCredentials = errors.New("sms: bad credentials")
	// ErrCodeTimeout means polling ran out of time before a code arrived.
	ErrCodeTimeout = errors.New("sms: timed out waiting for verification code")
	// ErrRequestCancelled means the provider reports the lease as cancelled.
	ErrRequestCancelled = errors.New("sms: verification request cancelled by provider")
)

// Status of a verification request over its lifetime.
type Status string

const (
	StatusPending      Status = "pending"
	StatusCodeReceived Status = "code-received"
	StatusCancelled    Status = "cancelled"
	StatusUsed         Status = "used"
	StatusExpired      Status = "expired"
)

// VerificationRequest is one leased phone number awaiting an SMS code.
type VerificationRequest struct {
	ID       string
	Number   string
	Country  string
	Status   Status
	Code     string
	LeasedAt time.Time
}

// provider status codes for setStatus.
const (
	statusCodeReceived = "3"
	statusCancel       = "6"
	statusComplete     = "8"
)

// Client is a provider API client. Requests are rate limited so concurrent
// pipeline runs cannot trip the provider's per-key throttling.
type Client struct {
	httpClient *http.Client
	cfg        config.SMSConfig
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient builds a provider client from configuration.
func NewClient(cfg config.SMSConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	rps := cfg.RequestRate
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		httpClient: network.NewClient(network.NewDefaultClientConfig()),
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger.Named("sms"),
	}
}

// Balance reports the account balance in the provider's currency.
func (c *Client) Balance(ctx context.Context) (float64, error) {
	body, err := c.call(ctx, url.Values{"action": {"getBalance"}})
	if err != nil {
		return 0, err
	}
	val, ok := strings.CutPrefix(body, "ACCESS_BALANCE:")
	if !ok {
		return 0, c.protocolError("getBalance", body)
	}
	balance, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return 0, fmt.Errorf("sms: malformed balance %q: %w", body, err)
	}
	return balance, nil
}

// Price is one country's price entry for the configured service.
type Price struct {
	Cost  float64 `json:"cost"`
	Count int     `json:"count"`
}

// Prices returns the cost and stock of the configured service per country,
// keyed by numeric country code.
func (c *Client) Prices(ctx context.Context, country string) (map[string]Price, error) {
	params := url.Values{"action": {"getPrices"}, "service": {c.cfg.Service}}
	if country != "" {
		params.Set("country", country)
	}
	body, err := c.call(ctx, params)
	if err != nil {
		return nil, err
	}

	// Response shape: {"<country>": {"<service>": {"cost": x, "count": n}}}
	var raw map[string]map[string]Price
	if err := json.UnmarshalFromString(body, &raw); err != nil {
		return nil, fmt.Errorf("sms: decode prices: %w", err)
	}
	out := make(map[string]Price, len(raw))
	for code, services := range raw {
		if entry, ok := services[c.cfg.Service]; ok {
			out[code] = entry
		}
	}
	return out, nil
}

// CheapestCountry picks the configured country with the lowest price that
// still has numbers in stock. Falls back to the first configured country
// when the price lookup fails, so a flaky pricing endpoint never blocks a
// lease attempt outright.
func (c *Client) CheapestCountry(ctx context.Context) string {
	fallback := ""
	for code := range c.cfg.Countries {
		if fallback == "" || code < fallback {
			fallback = code
		}
	}

	prices, err := c.Prices(ctx, "")
	if err != nil {
		c.logger.Warn("Price lookup failed, using fallback country.", zap.Error(err), zap.String("country", fallback))
		return fallback
	}

	best := ""
	bestCost := 0.0
	for code := range c.cfg.Countries {
		entry, ok := prices[code]
		if !ok || entry.Count <= 0 {
			continue
		}
		if best == "" || entry.Cost < bestCost {
			best = code
			bestCost = entry.Cost
		}
	}
	if best == "" {
		return fallback
	}
	return best
}

// RequestNumber leases a phone number in the given country. Provider stock
// or balance exhaustion surfaces as ErrProviderExhausted.
func (c *Client) RequestNumber(ctx context.Context, country string) (*VerificationRequest, error) {
	body, err := c.call(ctx, url.Values{
		"action":  {"getNumber"},
		"service": {c.cfg.Service},
		"country": {country},
	})
	if err != nil {
		return nil, err
	}

	rest, ok := strings.CutPrefix(body, "ACCESS_NUMBER:")
	if !ok {
		return nil, c.protocolError("getNumber", body)
	}
	parts := strings.SplitN(strings.TrimSpace(rest), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("sms: malformed number response %q", body)
	}

	req := &VerificationRequest{
		ID:       parts[0],
		Number:   parts[1],
		Country:  country,
		Status:   StatusPending,
		LeasedAt: time.Now(),
	}
	c.logger.Info("Leased verification number.",
		zap.String("activation_id", req.ID),
		zap.String("country", country),
	)
	return req, nil
}

// ReuseNumber buys a fresh activation on a previously used number. The new
// activation gets its own id and starts pending; the old activation from prev
// is left untouched and must never be polled again.
func (c *Client) ReuseNumber(ctx context.Context, prev *VerificationRequest) (*VerificationRequest, error) {
	if prev == nil || prev.ID == "" {
		return nil, fmt.Errorf("sms: no previous activation to reuse")
	}
	body, err := c.call(ctx, url.Values{
		"action":  {"getExtraService"},
		"id":      {prev.ID},
		"service": {c.cfg.Service},
	})
	if err != nil {
		return nil, err
	}

	rest, ok := strings.CutPrefix(body, "ACCESS_EXTRA_SERVICE:")
	if !ok {
		return nil, c.protocolError("getExtraService", body)
	}
	parts := strings.SplitN(strings.TrimSpace(rest), ":", 2)
	if parts[0] == "" {
		return nil, fmt.Errorf("sms: malformed extra service response %q", body)
	}
	number := prev.Number
	if len(parts) == 2 && parts[1] != "" {
		number = parts[1]
	}

	req := &VerificationRequest{
		ID:       parts[0],
		Number:   number,
		Country:  prev.Country,
		Status:   StatusPending,
		LeasedAt: time.Now(),
	}
	c.logger.Info("Reactivated pooled number.",
		zap.String("activation_id", req.ID),
		zap.String("number", req.Number),
	)
	return req, nil
}

// PollForCode polls the provider until the SMS code arrives, the timeout
// elapses, or ctx is cancelled. It never blocks past the timeout bound. On
// success the request is updated in place and its code returned.
func (c *Client) PollForCode(ctx context.Context, req *VerificationRequest, timeout time.Duration) (string, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		code, done, err := c.checkStatus(ctx, req)
		if err != nil {
			return "", err
		}
		if done {
			req.Status = StatusCodeReceived
			req.Code = code
			return code, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			req.Status = StatusExpired
			return "", ErrCodeTimeout
		case <-ticker.C:
		}
	}
}

// checkStatus performs one getStatus round trip.
func (c *Client) checkStatus(ctx context.Context, req *VerificationRequest) (code string, done bool, err error) {
	body, err := c.call(ctx, url.Values{"action": {"getStatus"}, "id": {req.ID}})
	if err != nil {
		return "", false, err
	}
	switch {
	case strings.HasPrefix(body, "STATUS_OK:"):
		return strings.TrimSpace(strings.TrimPrefix(body, "STATUS_OK:")), true, nil
	case strings.HasPrefix(body, "STATUS_WAIT"):
		return "", false, nil
	case body == "STATUS_CANCEL":
		req.Status = StatusCancelled
		return "", false, ErrRequestCancelled
	default:
		return "", false, c.protocolError("getStatus", body)
	}
}

// MarkUsed tells the provider the code was consumed and the activation is
// complete, freeing the number for the reuse window.
func (c *Client) MarkUsed(ctx context.Context, req *VerificationRequest) error {
	if req == nil {
		return nil
	}
	if _, err := c.setStatus(ctx, req.ID, statusCodeReceived); err != nil {
		return err
	}
	if _, err := c.setStatus(ctx, req.ID, statusComplete); err != nil {
		return err
	}
	req.Status = StatusUsed
	return nil
}

// Cancel releases a leased number without using it. Idempotent: cancelling
// a nil or already-cancelled request is a no-op.
func (c *Client) Cancel(ctx context.Context, req *VerificationRequest) error {
	if req == nil || req.Status == StatusCancelled || req.Status == StatusUsed {
		return nil
	}
	if _, err := c.setStatus(ctx, req.ID, statusCancel); err != nil {
		return err
	}
	req.Status = StatusCancelled
	return nil
}

func (c *Client) setStatus(ctx context.Context, id, status string) (string, error) {
	return c.call(ctx, url.Values{
		"action": {"setStatus"},
		"id":     {id},
		"status": {status},
	})
}

// call performs one rate-limited provider round trip and returns the raw
// response body with provider-level error codes already translated.
func (c *Client) call(ctx context.Context, params url.Values) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	params.Set("api_key", c.cfg.APIKey)
	reqURL := c.cfg.BaseURL + "?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("sms: build request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sms: %s: %w", params.Get("action"), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("sms: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sms: %s: unexpected HTTP status %d", params.Get("action"), resp.StatusCode)
	}

	body := strings.TrimSpace(string(raw))
	switch body {
	case "NO_NUMBERS", "NO_BALANCE":
		return "", fmt.Errorf("%w: %s", ErrProviderExhausted, body)
	case "BAD_KEY":
		return "", ErrBadCredentials
	case "BAD_SERVICE":
		return "", fmt.Errorf("sms: unknown service %q", c.cfg.Service)
	case "ERROR_SQL":
		return "", fmt.Errorf("sms: provider internal error")
	}
	return body, nil
}

func (c *Client) protocolError(action, body string) error {
	if len(body) > 64 {
		body = body[:64]
	}
	return fmt.Errorf("sms: %s: unexpected response %q", action, body)
}
