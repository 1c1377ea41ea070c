package polymarket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
)

// restClient is the plumbing shared by the CLOB and Gamma clients: optional
// distributed rate limiting, status mapping and retry with jittered backoff.
type restClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	limiter    domain.RateLimiter
	limiterKey string

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a CLOB or Gamma client.
type ClientOption func(*restClient)

func newRESTClient(name, baseURL string, opts ...ClientOption) restClient {
	c := restClient{
		name:    name,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   2,
		retryBackoff: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.logger = c.logger.With(slog.String("component", "polymarket/"+name))
	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *restClient) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *restClient) {
		c.httpClient = hc
	}
}

// WithRetries sets how many times a 429 or 5xx response is retried and the
// initial backoff between attempts.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *restClient) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithRateLimiter makes every request wait on limiter under key first.
func WithRateLimiter(limiter domain.RateLimiter, key string) ClientOption {
	return func(c *restClient) {
		c.limiter = limiter
		c.limiterKey = key
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *restClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// APIError is a non-2xx response from a Polymarket API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Unwrap maps well-known status codes onto domain sentinels.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrUnauthorized
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	}
	return nil
}

// IsRetryable reports whether the request may succeed if repeated.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// checkHTTPStatus returns an *APIError for non-2xx codes.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	const maxBody = 512
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return &APIError{StatusCode: statusCode, Body: string(body)}
}

// doGet sends a GET request once.
func (c *restClient) doGet(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.limiterKey); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// getWithRetry wraps doGet with exponential backoff on retryable errors.
func (c *restClient) getWithRetry(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff/2 + time.Duration(rand.Int64N(int64(backoff)+1))
			c.logger.DebugContext(ctx, "retrying request",
				slog.Int("attempt", attempt),
				slog.Duration("backoff", wait),
				slog.String("path", path),
			)

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			backoff *= 2
		}

		body, err := c.doGet(ctx, path, query)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
