package ee

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/verdantlabs/earthengine-cli/internal/debug"
	ctxerrors "github.com/verdantlabs/earthengine-cli/internal/errors"
)

const (
	// DefaultAPIBaseURL is the REST API root.
	DefaultAPIBaseURL = "https://earthengine.googleapis.com/api"
	// DefaultTileBaseURL is the root for map tile and thumbnail fetches.
	DefaultTileBaseURL = "https://earthengine.googleapis.com"

	defaultTimeout = 30 * time.Second

	// Retry window: 5 attempts, 1s base, 120s cap.
	maxRetries    = 5
	baseRetryWait = 1 * time.Second
	maxRetryWait  = 120 * time.Second

	// ProfileRequestHeader asks the service to profile the computation.
	ProfileRequestHeader = "X-Earth-Engine-Computation-Profiling"
	// ProfileResponseHeader carries the resulting profile ID.
	ProfileResponseHeader = "X-Earth-Engine-Computation-Profile"

	// Circuit breaker defaults
	defaultCircuitBreakerThreshold       = 5
	defaultCircuitBreakerRecoveryTimeout = 30 * time.Second
)

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open - too many consecutive API failures")

// TokenSource yields a bearer access token for a request. Sources that
// refresh tokens should cache them internally.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken returns a TokenSource that always yields token.
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) {
		return token, nil
	}
}

// ProfileHook receives computation profile IDs when profiling is enabled.
type ProfileHook func(profileID string)

// circuitBreaker implements a circuit breaker pattern to prevent hammering a failing API
type circuitBreaker struct {
	mu              sync.Mutex
	failures        int
	lastFailure     time.Time
	open            bool
	threshold       int
	recoveryTimeout time.Duration
	enabled         bool
}

// recordSuccess clears the failure counter and closes the circuit
func (cb *circuitBreaker) recordSuccess() {
	if !cb.enabled {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	wasOpen := cb.open
	cb.failures = 0
	cb.open = false

	if wasOpen {
		slog.Info("circuit breaker recovered", "component", "circuit_breaker")
	}
}

// recordFailure increments the failure counter and opens circuit if threshold reached
func (cb *circuitBreaker) recordFailure() bool {
	if !cb.enabled {
		return false
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	if cb.failures >= cb.threshold && !cb.open {
		cb.open = true
		slog.Warn("circuit breaker opened", "component", "circuit_breaker", "failures", cb.failures)
		return true
	}

	return false
}

// isOpen checks if the circuit is currently open.
// Auto-recovers if recovery timeout has passed.
func (cb *circuitBreaker) isOpen() bool {
	if !cb.enabled {
		return false
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.open {
		return false
	}

	if time.Since(cb.lastFailure) > cb.recoveryTimeout {
		cb.open = false
		cb.failures = 0
		slog.Debug("circuit breaker half-open, attempting recovery", "component", "circuit_breaker")
		return false
	}

	return true
}

// Client is the Earth Engine API client. Requests are form-encoded
// (POST bodies and GET query strings) and responses arrive in a JSON
// envelope: {"data": ...} on success, {"error": {...}} on failure.
type Client struct {
	httpClient     *http.Client
	tokenSource    TokenSource
	apiBase        string
	tileBase       string
	project        string
	deadline       time.Duration
	maxRetries     int
	profileHook    ProfileHook
	circuitBreaker *circuitBreaker
	rateLimiter    *RateLimitTracker
}

// NewClient creates a client that authenticates with tokens from ts.
// A nil ts sends unauthenticated requests (test servers).
func NewClient(ts TokenSource) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		tokenSource: ts,
		apiBase:     DefaultAPIBaseURL,
		tileBase:    DefaultTileBaseURL,
		maxRetries:  maxRetries,
		circuitBreaker: &circuitBreaker{
			threshold:       defaultCircuitBreakerThreshold,
			recoveryTimeout: defaultCircuitBreakerRecoveryTimeout,
			enabled:         false, // Disabled by default
		},
		rateLimiter: NewRateLimitTracker(),
	}
}

// WithHTTPClient sets a custom HTTP client
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.httpClient = client
	return c
}

// WithAPIBaseURL sets a custom API base URL (useful for testing)
func (c *Client) WithAPIBaseURL(baseURL string) *Client {
	c.apiBase = strings.TrimRight(baseURL, "/")
	return c
}

// WithTileBaseURL sets a custom tile base URL
func (c *Client) WithTileBaseURL(baseURL string) *Client {
	c.tileBase = strings.TrimRight(baseURL, "/")
	return c
}

// WithProject sets the Cloud project sent with every request.
func (c *Client) WithProject(project string) *Client {
	c.project = project
	return c
}

// WithDeadline sets a per-request timeout applied on top of any
// context deadline the caller provides. Zero disables it.
func (c *Client) WithDeadline(d time.Duration) *Client {
	c.deadline = d
	return c
}

// WithMaxRetries sets the maximum number of retries for transient errors.
func (c *Client) WithMaxRetries(n int) *Client {
	c.maxRetries = n
	return c
}

// WithProfileHook enables computation profiling. Every request carries
// the profiling header and hook receives each profile ID the service
// returns.
func (c *Client) WithProfileHook(hook ProfileHook) *Client {
	c.profileHook = hook
	return c
}

// WithCircuitBreaker enables circuit breaker with custom threshold and recovery timeout
func (c *Client) WithCircuitBreaker(threshold int, recoveryTimeout time.Duration) *Client {
	c.circuitBreaker.enabled = true
	c.circuitBreaker.threshold = threshold
	c.circuitBreaker.recoveryTimeout = recoveryTimeout
	return c
}

// EnableCircuitBreaker enables circuit breaker with default settings
func (c *Client) EnableCircuitBreaker() *Client {
	c.circuitBreaker.enabled = true
	return c
}

// WithDebug enables debug mode for HTTP request/response logging
func (c *Client) WithDebug() *Client {
	return c.WithDebugOutput(os.Stderr)
}

// WithDebugOutput enables debug mode for HTTP request/response logging to the provided writer.
func (c *Client) WithDebugOutput(w io.Writer) *Client {
	baseTransport := c.httpClient.Transport
	if baseTransport == nil {
		baseTransport = http.DefaultTransport
	}

	c.httpClient.Transport = debug.NewTransport(baseTransport, w)
	return c
}

// TileBaseURL returns the configured tile base URL.
func (c *Client) TileBaseURL() string {
	return c.tileBase
}

// envelope is the API's uniform response wrapper.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *ErrorResponse  `json:"error"`
}

// send performs a request against an API endpoint with retry for rate
// limits and transient errors, and decodes the data envelope into result.
// method is GET or POST; params become the query string or the
// form-encoded body respectively.
func (c *Client) send(ctx context.Context, method, path string, params url.Values, result interface{}) error {
	requestURL := c.apiBase + path

	if c.circuitBreaker.isOpen() {
		return ctxerrors.WrapContext(method, requestURL, 0, ErrCircuitOpen)
	}

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		// Wait before retry (skip on first attempt)
		if attempt > 0 {
			delay := c.calculateRetryDelay(attempt, lastErr)

			if apiErr, ok := lastErr.(*APIError); ok && apiErr.StatusCode == http.StatusTooManyRequests {
				slog.Debug("rate limited, waiting before retry",
					"method", method,
					"path", path,
					"attempt", attempt,
					"delay", delay.String(),
					"retry_after", apiErr.RetryAfter.String())
			} else {
				slog.Debug("retrying request",
					"method", method,
					"path", path,
					"attempt", attempt,
					"delay", delay.String())
			}

			select {
			case <-ctx.Done():
				return ctxerrors.WrapContext(method, requestURL, 0, ctx.Err())
			case <-time.After(delay):
			}
		}

		data, err := c.sendOnce(ctx, method, requestURL, params)
		if err != nil {
			lastErr = err

			if apiErr, ok := err.(*APIError); ok {
				if isRetryable(apiErr.StatusCode) {
					continue
				}
			}

			// Non-retryable error, return immediately
			return ctxerrors.WrapContext(method, requestURL, getStatusCode(err), err)
		}

		// Success - record it to reset circuit breaker
		c.circuitBreaker.recordSuccess()

		if result != nil && len(data) > 0 {
			if err := json.Unmarshal(data, result); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	}

	// All retries exhausted - record as a single failure for circuit breaker
	if apiErr, ok := lastErr.(*APIError); ok && apiErr.StatusCode >= 500 {
		c.circuitBreaker.recordFailure()
	}

	return ctxerrors.WrapContext(method, requestURL, getStatusCode(lastErr), lastErr)
}

// sendOnce performs a single request attempt and unwraps the envelope,
// returning the raw data payload.
func (c *Client) sendOnce(ctx context.Context, method, requestURL string, params url.Values) (json.RawMessage, error) {
	if c.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.deadline)
		defer cancel()
	}

	if c.project != "" {
		if params == nil {
			params = url.Values{}
		} else {
			cloned := url.Values{}
			for k, vs := range params {
				cloned[k] = vs
			}
			params = cloned
		}
		params.Set("project", c.project)
	}

	var body io.Reader
	if method == http.MethodGet {
		if len(params) > 0 {
			requestURL = requestURL + "?" + params.Encode()
		}
	} else {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.tokenSource != nil {
		token, err := c.tokenSource(ctx)
		if err != nil {
			return nil, err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.profileHook != nil {
		req.Header.Set(ProfileRequestHeader, "1")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Update rate limit tracker with response headers
	c.rateLimiter.Update(resp)

	if c.profileHook != nil {
		if profileID := resp.Header.Get(ProfileResponseHeader); profileID != "" {
			c.profileHook(profileID)
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Non-JSON payloads are protocol errors; HTTP error statuses
		// without an envelope still map to APIError.
		if resp.StatusCode >= 400 {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}
		return nil, fmt.Errorf("invalid API response (not JSON): %w", err)
	}

	// The service reports failures in the envelope even on HTTP 200.
	if env.Error != nil {
		status := resp.StatusCode
		if status < 400 && env.Error.Code >= 400 {
			status = env.Error.Code
		}
		return nil, &APIError{
			StatusCode: status,
			Response:   env.Error,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	return env.Data, nil
}

// doPost performs a form-encoded POST against an endpoint.
func (c *Client) doPost(ctx context.Context, path string, params url.Values, result interface{}) error {
	return c.send(ctx, http.MethodPost, path, params, result)
}

// doGet performs a GET with query parameters against an endpoint.
func (c *Client) doGet(ctx context.Context, path string, params url.Values, result interface{}) error {
	return c.send(ctx, http.MethodGet, path, params, result)
}

// calculateRetryDelay calculates the delay before the next retry attempt
func (c *Client) calculateRetryDelay(attempt int, lastErr error) time.Duration {
	// Check if the error has a Retry-After header
	if apiErr, ok := lastErr.(*APIError); ok && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter
	}

	// Exponential backoff: 1s, 2s, 4s, ... capped at maxRetryWait
	delay := baseRetryWait * time.Duration(1<<(attempt-1))
	if delay > maxRetryWait {
		delay = maxRetryWait
	}

	// Add jitter (0-25% of delay)
	jitter := time.Duration(rand.Int63n(int64(delay / 4)))
	delay += jitter

	return delay
}

// isRetryable returns true if the HTTP status code indicates a retryable error
func isRetryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

// parseRetryAfter parses the Retry-After header value.
// Returns the duration to wait, or 0 if not parseable.
func parseRetryAfter(retryAfter string) time.Duration {
	if retryAfter == "" {
		return 0
	}

	// Try parsing as seconds (integer)
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}

	// Try parsing as HTTP date
	if t, err := http.ParseTime(retryAfter); err == nil {
		delay := time.Until(t)
		if delay > 0 {
			return delay
		}
	}

	return 0
}

// getStatusCode extracts the HTTP status code from an error if it's an APIError
func getStatusCode(err error) int {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.StatusCode
	}
	return 0
}

// GetRateLimitInfo returns the current rate limit information.
// Returns nil if no API requests have been made yet.
func (c *Client) GetRateLimitInfo() *RateLimitInfo {
	return c.rateLimiter.Get()
}
