package rmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
	"github.com/custodia-labs/holdings-sync/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultRate is the proactive throttle in requests per second.
	DefaultRate = 4.0

	// HeaderAPIKey carries the customer's API key.
	HeaderAPIKey = "x-api-key"

	// HeaderRetryAfter is the retry-after header (seconds).
	HeaderRetryAfter = "Retry-After"

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 512
)

// Client talks to the resource management API. One client serves every
// tenant; the remote configuration is passed on each call.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit sets the proactive throttle. A non-positive rate disables it.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithTimeout sets the per-request timeout. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// NewClient creates a client with default timeout and throttle.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(DefaultRate), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// endpoint builds {URL}/{customer}/{path} with the given query. path is
// used as is; ids inside it must be escaped with resourcePath.
func endpoint(cfg domain.RemoteConfiguration, path string, query url.Values) (string, error) {
	if cfg.URL == "" || cfg.CustomerID == "" {
		return "", fmt.Errorf("%w: remote URL and customer id are required", domain.ErrInvalidInput)
	}
	u, err := url.Parse(strings.TrimRight(cfg.URL, "/") + "/" + url.PathEscape(cfg.CustomerID) + "/" + path)
	if err != nil {
		return "", fmt.Errorf("%w: remote URL: %v", domain.ErrInvalidInput, err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// resourcePath appends escaped segments to a fixed API path.
func resourcePath(base string, segments ...string) string {
	var b strings.Builder
	b.WriteString(base)
	for _, seg := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(seg))
	}
	return b.String()
}

func pageQuery(page, pageSize int) url.Values {
	return url.Values{
		"offset": {strconv.Itoa(page)},
		"count":  {strconv.Itoa(pageSize)},
	}
}

// do sends one request and decodes a JSON response into out when out is non-nil.
func (c *Client) do(
	ctx context.Context,
	cfg domain.RemoteConfiguration,
	method, path string,
	query url.Values,
	body, out any,
) error {
	target, err := endpoint(cfg, path, query)
	if err != nil {
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(HeaderAPIKey, cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.Debug("rmapi: %s %s", method, req.URL.Path)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		rlErr := &RateLimitError{}
		if retryAfter := resp.Header.Get(HeaderRetryAfter); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil {
				rlErr.RetryAt = time.Now().Add(time.Duration(seconds) * time.Second)
			}
		}
		return rlErr
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(msg)),
		URL:        resp.Request.URL.String(),
	}
}

// timestamp accepts RFC3339 and the API's "2006-01-02 15:04:05" UTC form.
type timestamp struct {
	time.Time
}

func (t *timestamp) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil || s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}
