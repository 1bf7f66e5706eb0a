package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/siteaudit/internal/crawler"
)

// Default client settings.
const (
	// DefaultTimeout bounds one HTTP request including body read.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 10 * 1024 * 1024

	// DefaultMaxRetries is the number of retries after a failed attempt.
	DefaultMaxRetries = 2

	// DefaultRetryWait is the base wait before a retry; it doubles per
	// attempt.
	DefaultRetryWait = 500 * time.Millisecond

	// DefaultUserAgent identifies the auditor to servers.
	DefaultUserAgent = "siteaudit/1.0 (+https://github.com/nao1215/siteaudit)"
)

// Renderer executes a page's JavaScript and returns the rendered markup.
type Renderer interface {
	// Render returns the rendered HTML and the final URL after any
	// client-side redirects.
	Render(ctx context.Context, url string) (html, finalURL string, err error)
}

// Client fetches pages over HTTP and implements crawler.Fetcher.
type Client struct {
	// httpClient performs the requests. Redirects are followed by the
	// default policy; the final URL is reported in the result.
	httpClient *http.Client

	// renderer, when set, re-renders each fetched page with JavaScript.
	// Render failures degrade to the raw body.
	renderer Renderer

	// userAgent is sent on every request.
	userAgent string

	// maxBodySize limits the bytes read from a response body.
	maxBodySize int64

	// maxRetries is the number of retries after the first attempt.
	// Only transport errors and retryable statuses (5xx, 429) retry.
	maxRetries int

	// retryWait is the base backoff, doubled on each retry.
	retryWait time.Duration

	// cookie, when non-empty, is sent as the Cookie header on every
	// request. Used for sites that require an authenticated session.
	cookie string

	// extraHeaders are additional headers sent on every request.
	extraHeaders map[string]string

	// logger receives retry and degradation events.
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithRetries sets the retry count and base backoff.
func WithRetries(retries int, wait time.Duration) Option {
	return func(c *Client) {
		if retries >= 0 {
			c.maxRetries = retries
		}
		if wait > 0 {
			c.retryWait = wait
		}
	}
}

// WithCookie sets a Cookie header sent with every request.
// Format: "name=value" or "name1=value1; name2=value2".
func WithCookie(cookie string) Option {
	return func(c *Client) {
		c.cookie = cookie
	}
}

// WithExtraHeaders sets additional HTTP headers sent with every request.
func WithExtraHeaders(headers map[string]string) Option {
	return func(c *Client) {
		if len(headers) > 0 {
			c.extraHeaders = headers
		}
	}
}

// WithRenderer enables JavaScript rendering of fetched pages.
func WithRenderer(r Renderer) Option {
	return func(c *Client) {
		c.renderer = r
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Client with default timeout, size, and retry
// settings.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		maxRetries:  DefaultMaxRetries,
		retryWait:   DefaultRetryWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Fetch retrieves the page at url. Transport errors and retryable
// statuses are retried with doubling backoff; when a renderer is
// configured, its failure downgrades the result instead of failing the
// fetch.
func (c *Client) Fetch(ctx context.Context, url string) (*crawler.FetchResult, error) {
	body, finalURL, status, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	result := &crawler.FetchResult{
		HTML:       body,
		FinalURL:   finalURL,
		StatusCode: status,
	}

	if c.renderer != nil {
		rendered, renderedURL, rerr := c.renderer.Render(ctx, finalURL)
		if rerr != nil {
			c.logger.Warn("render failed, falling back to raw body", "url", finalURL, "error", rerr)
			result.Degraded = true
			return result, nil
		}
		result.HTML = rendered
		if renderedURL != "" {
			result.FinalURL = renderedURL
		}
	}
	return result, nil
}

// get performs the HTTP request with retries and returns the body, the
// final URL after redirects, and the status code.
func (c *Client) get(ctx context.Context, url string) (string, string, int, error) {
	var lastErr error
	wait := c.retryWait

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying fetch", "url", url, "attempt", attempt, "wait", wait)
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return "", "", 0, ctx.Err()
			}
			wait *= 2
		}

		body, finalURL, status, err := c.getOnce(ctx, url)
		if err == nil && !retryableStatus(status) {
			if status >= 400 {
				return "", "", status, fmt.Errorf("server returned status %d", status)
			}
			return body, finalURL, status, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("server returned status %d", status)
		}
		if ctx.Err() != nil {
			return "", "", 0, ctx.Err()
		}
	}
	return "", "", 0, fmt.Errorf("fetch %s: %w", url, lastErr)
}

// getOnce performs a single HTTP GET.
func (c *Client) getOnce(ctx context.Context, url string) (string, string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", 0, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
	for k, v := range c.extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return "", "", resp.StatusCode, err
	}

	return string(body), resp.Request.URL.String(), resp.StatusCode, nil
}

// retryableStatus reports whether a status is worth retrying.
func retryableStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}
