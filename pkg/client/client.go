package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "http://localhost:8080"
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 64 << 10
)

// Client is the tether API client. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
	obs     *observer
}

// New creates a Client.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		baseURL: defaultBaseURL,
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	u, err := url.Parse(strings.TrimRight(cfg.baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("tether: invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("tether: base url %q must use http or https", cfg.baseURL)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{baseURL: u, apiKey: cfg.apiKey, http: hc, obs: obs}, nil
}

// Passes returns the allowance of the current month.
func (c *Client) Passes(ctx context.Context) (p Passes, err error) {
	start := time.Now()
	defer func() { c.obs.observe("passes", start, err) }()

	err = c.do(ctx, http.MethodGet, "/api/passes", nil, nil, &p)
	return p, err
}

// History returns the passes used in month ("YYYY-MM"). An empty month
// means the current one.
func (c *Client) History(ctx context.Context, month string) (h History, err error) {
	start := time.Now()
	defer func() { c.obs.observe("history", start, err) }()

	var q url.Values
	if month != "" {
		q = url.Values{"month": {month}}
	}
	err = c.do(ctx, http.MethodGet, "/api/passes/history", q, nil, &h)
	return h, err
}

// UsePass consumes one pass with the given reason.
func (c *Client) UsePass(ctx context.Context, reason string) (u UsedPass, err error) {
	start := time.Now()
	defer func() { c.obs.observe("use_pass", start, err) }()

	body := struct {
		Reason string `json:"reason"`
	}{Reason: reason}
	err = c.do(ctx, http.MethodPost, "/api/passes/use", nil, body, &u)
	return u, err
}

// SetQuota changes the monthly allowance. The result says whether the
// change waits for the next month.
func (c *Client) SetQuota(ctx context.Context, perMonth uint32) (q QuotaChange, err error) {
	start := time.Now()
	defer func() { c.obs.observe("set_quota", start, err) }()

	body := struct {
		PerMonth uint32 `json:"per_month"`
	}{PerMonth: perMonth}
	err = c.do(ctx, http.MethodPut, "/api/config/passes", nil, body, &q)
	return q, err
}

// Proximity checks whether the paired phone is near.
func (c *Client) Proximity(ctx context.Context) (p Proximity, err error) {
	start := time.Now()
	defer func() { c.obs.observe("proximity", start, err) }()

	err = c.do(ctx, http.MethodGet, "/api/proximity", nil, nil, &p)
	return p, err
}

// Health returns the server health. A degraded server answers 503 with a
// report; that report is returned without an error.
func (c *Client) Health(ctx context.Context) (h HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	err = c.do(ctx, http.MethodGet, "/health", nil, nil, &h)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		if jerr := json.Unmarshal(apiErr.Details, &h); jerr == nil && h.Status != "" {
			return h, nil
		}
	}
	return h, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("tether: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("tether: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tether: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("tether: decode %s %s response: %w", method, path, err)
	}
	return nil
}

// decodeError turns a non-2xx response into an *APIError. For bodies that
// are not an error envelope, Details holds the raw body.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope struct {
		Error   string          `json:"error"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != "" {
		apiErr.Code = envelope.Error
		apiErr.Message = envelope.Message
		apiErr.Details = envelope.Details
		return apiErr
	}

	apiErr.Message = http.StatusText(resp.StatusCode)
	if len(raw) > 0 && json.Valid(raw) {
		apiErr.Details = raw
	}
	return apiErr
}
