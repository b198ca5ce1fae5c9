package stateset

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// Client is a resilient StateSet API client that layers error
// classification, retries with backoff, an optional circuit breaker,
// client-side rate limiting, deduplication and metrics around the standard
// net/http client. It is safe for concurrent use; the circuit breaker and
// rate limiter are shared, long-lived state mutated by every call.
type Client struct {
	httpClient     *http.Client
	config         *Config
	apiKey         string
	retryPolicy    *RetryPolicy
	circuitBreaker *CircuitBreaker
	rateLimiter    *RateLimiter
	metrics        *MetricsCollector
	logger         Logger
	debug          *DebugConfig
	dedup          *singleflight.Group

	validationError error
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	c := &Client{
		config:         DefaultConfig(),
		circuitBreaker: NewCircuitBreaker(CircuitBreakerConfig{}),
		debug:          DefaultDebugConfig(),
	}

	for _, option := range options {
		option(c)
	}

	if c.httpClient == nil {
		c.httpClient = c.config.httpClient()
	}
	if c.retryPolicy == nil {
		c.retryPolicy = c.config.retryPolicy()
	}
	if c.rateLimiter == nil && c.config.RateLimitPerMinute > 0 {
		c.rateLimiter = NewRateLimiter(c.config.RateLimitPerMinute)
	}

	if err := c.ValidateConfiguration(); err != nil {
		c.validationError = err
	}

	return c
}

// NewFromEnv builds a client from STATESET_* environment variables (and a
// .env file when present), picking up STATESET_API_KEY for authentication.
// Extra options override the environment.
func NewFromEnv(options ...Option) (*Client, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	base := []Option{WithConfig(cfg)}
	if key := os.Getenv("STATESET_API_KEY"); key != "" {
		base = append(base, WithAPIKey(key))
	}
	c := New(append(base, options...)...)
	if !c.IsValid() {
		return nil, c.ValidationError()
	}
	return c, nil
}

// Authenticate returns a copy of the client that sends the given bearer
// token. The copy shares the original's breaker, limiter and transport.
func (c *Client) Authenticate(apiKey string) *Client {
	clone := *c
	clone.apiKey = apiKey
	return &clone
}

// IsAuthenticated reports whether the client sends an Authorization header.
func (c *Client) IsAuthenticated() bool {
	return c.apiKey != ""
}

// Config returns the client's configuration.
func (c *Client) Config() *Config {
	return c.config
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// Get performs a GET and decodes the JSON response into result.
func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.call(ctx, http.MethodGet, path, nil, nil, result)
}

// GetWithQuery performs a GET with query parameters.
func (c *Client) GetWithQuery(ctx context.Context, path string, query url.Values, result any) error {
	return c.call(ctx, http.MethodGet, path, query, nil, result)
}

// Post performs a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	return c.call(ctx, http.MethodPost, path, nil, body, result)
}

// Put performs a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, result any) error {
	return c.call(ctx, http.MethodPut, path, nil, body, result)
}

// Patch performs a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, result any) error {
	return c.call(ctx, http.MethodPatch, path, nil, body, result)
}

// Delete performs a DELETE and decodes the JSON response into result.
func (c *Client) Delete(ctx context.Context, path string, result any) error {
	return c.call(ctx, http.MethodDelete, path, nil, nil, result)
}

// DeleteNoContent performs a DELETE and discards any response body.
func (c *Client) DeleteNoContent(ctx context.Context, path string) error {
	return c.call(ctx, http.MethodDelete, path, nil, nil, nil)
}

// call is the shared primitive: build the URL and body, run the executor,
// decode the result. A JSON decode failure on a success status is surfaced
// as a non-retryable Network error.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, result any) error {
	urlStr, uerr := c.buildURL(path, query)
	if uerr != nil {
		return uerr
	}

	var payload []byte
	if body != nil {
		data, merr := json.Marshal(body)
		if merr != nil {
			return InvalidRequest("failed to marshal request body: " + merr.Error())
		}
		payload = data
	}

	raw, err := c.invoke(ctx, method, urlStr, payload)
	if err != nil {
		return err
	}

	if result != nil && len(raw) > 0 {
		if derr := json.Unmarshal(raw, result); derr != nil {
			return Network("failed to parse JSON response: "+derr.Error(), false, false)
		}
	}
	return nil
}

// invoke routes GETs through the deduplication group when enabled, so
// concurrent identical reads share one upstream call. Waiters keep their own
// cancellation: a caller blocked on a shared in-flight request returns as
// soon as its context ends, while the leader's attempt runs on.
func (c *Client) invoke(ctx context.Context, method, urlStr string, body []byte) (json.RawMessage, error) {
	if c.dedup == nil || method != http.MethodGet {
		return c.execute(ctx, method, urlStr, body)
	}

	ch := c.dedup.DoChan(c.dedupKey(method, urlStr), func() (any, error) {
		return c.execute(ctx, method, urlStr, body)
	})

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, Timeout(c.config.Timeout, method+" "+endpointFromURL(urlStr))
		}
		return nil, Network("request cancelled: "+ctx.Err().Error(), false, false)
	case res := <-ch:
		if res.Shared && c.metrics != nil {
			c.metrics.RecordDeduplicationHit(method, endpointFromURL(urlStr))
		}
		if res.Err != nil {
			return nil, res.Err
		}
		raw, _ := res.Val.(json.RawMessage)
		return raw, nil
	}
}

// dedupKey scopes shared in-flight calls to one credential. Clones made by
// Authenticate share the parent's group, so the same GET under different
// bearer tokens must never be served by one upstream response.
func (c *Client) dedupKey(method, urlStr string) string {
	sum := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(sum[:8]) + " " + method + " " + urlStr
}

// execute orchestrates a single logical call: for each attempt it consults
// the rate limiter, then the circuit breaker, then sends, classifies the
// outcome and either returns, retries after a backoff, or gives up. An open
// breaker is surfaced as ServiceUnavailable, indistinguishable at this
// boundary from a genuine 503. A first-attempt failure is returned
// unwrapped; failures after retries are wrapped in RetryExhausted.
func (c *Client) execute(ctx context.Context, method, urlStr string, body []byte) (json.RawMessage, error) {
	endpoint := endpointFromURL(urlStr)
	operation := method + " " + endpoint
	start := time.Now()

	var requestID string
	if c.debug != nil && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	} else {
		requestID = defaultRequestID()
	}

	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Debug("starting request", "requestID", requestID, "method", method, "url", urlStr)
	}

	if c.metrics != nil {
		c.metrics.RecordRequestStart(method, endpoint)
		defer c.metrics.RecordRequestEnd(method, endpoint)
	}

	template, terr := c.newRequest(ctx, method, urlStr, body, requestID)
	if terr != nil {
		return nil, terr
	}

	maxAttempts := c.retryPolicy.MaxAttempts
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	var lastErr *Error
	attemptsUsed := 0

	for attempt := 0; attempt <= maxAttempts; attempt++ {
		attemptsUsed = attempt + 1

		var raw json.RawMessage
		var status int
		var attemptErr *Error
		cancelled := false

		// Limiter before breaker: admission to a half-open breaker consumes
		// the single trial slot, so nothing that can reject the attempt may
		// run after CanExecute.
		switch {
		case c.rateLimiter != nil && !c.rateLimiter.Allow():
			attemptErr = RateLimit(c.rateLimiter.RetryAfter())
			if c.debug != nil && c.debug.Enabled && c.debug.LogRateLimit && c.logger != nil {
				c.logger.Warn("rate limit exceeded", "requestID", requestID, "endpoint", endpoint)
			}
		case !c.circuitBreaker.CanExecute():
			attemptErr = ServiceUnavailable(c.circuitBreaker.RecoveryTimeout())
			if c.debug != nil && c.debug.Enabled && c.debug.LogCircuit && c.logger != nil {
				c.logger.Warn("circuit breaker open", "requestID", requestID, "endpoint", endpoint, "state", c.circuitBreaker.State().String())
			}
		default:
			raw, status, attemptErr, cancelled = c.doAttempt(ctx, template, operation)
		}

		if c.rateLimiter != nil && c.metrics != nil {
			c.metrics.RecordRateLimiterTokens("default", c.rateLimiter.Tokens())
		}

		c.observeAttempt(operation, attempt, time.Since(start), attemptErr, cancelled, requestID)

		if attemptErr == nil {
			if c.metrics != nil {
				c.metrics.RecordRequest(method, endpoint, status, time.Since(start))
			}
			return raw, nil
		}

		if c.metrics != nil {
			c.metrics.RecordError(attemptErr.Kind.String(), method, endpoint)
		}

		if cancelled {
			// Neither success nor failure: the attempt never completed, so
			// it must not skew breaker or limiter state, and there is no
			// point retrying against a dead context.
			return nil, attemptErr
		}

		lastErr = attemptErr

		if attempt == maxAttempts || !attemptErr.IsRetryable() {
			break
		}

		delay := c.retryPolicy.DelayForAttempt(attempt)
		if ra, ok := attemptErr.RetryAfter(); ok && ra > delay {
			delay = ra
		}

		if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
			c.logger.Info("scheduling retry", "requestID", requestID, "attempt", attempt+1, "maxAttempts", maxAttempts, "backoff", delay, "endpoint", endpoint)
		}
		if c.metrics != nil {
			c.metrics.RecordRetry(method, endpoint, attempt+1)
		}

		if serr := sleepContext(ctx, delay); serr != nil {
			return nil, lastErr
		}
	}

	if c.metrics != nil {
		status, _ := lastErr.StatusCode()
		c.metrics.RecordRequest(method, endpoint, status, time.Since(start))
	}

	if attemptsUsed == 1 {
		return nil, lastErr
	}
	return nil, RetryExhausted(attemptsUsed, operation, lastErr)
}

// doAttempt sends one attempt and classifies the outcome. The returned bool
// reports cancellation, which is excluded from breaker accounting. The
// request body is replayed from the template; a template that cannot
// replay its body fails with a non-retryable Network error rather than
// risking a partial retry.
func (c *Client) doAttempt(ctx context.Context, template *http.Request, operation string) (json.RawMessage, int, *Error, bool) {
	req, rerr := replayRequest(ctx, template)
	if rerr != nil {
		return nil, 0, rerr, false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return nil, 0, Network("request cancelled: "+err.Error(), false, false), true
		}
		cerr := classifyTransportError(err, c.config.Timeout, operation)
		c.circuitBreaker.RecordFailure()
		c.recordBreakerState()
		return nil, 0, cerr, false
	}
	defer resp.Body.Close()

	payload, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		if ctx.Err() == context.Canceled {
			return nil, resp.StatusCode, Network("request cancelled: "+readErr.Error(), false, false), true
		}
		c.circuitBreaker.RecordFailure()
		c.recordBreakerState()
		return nil, resp.StatusCode, Network("failed to read response body: "+readErr.Error(), false, true), false
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.circuitBreaker.RecordSuccess()
		c.recordBreakerState()
		return payload, resp.StatusCode, nil, false
	}

	cerr := classifyResponse(resp, payload)
	// The breaker tracks dependency health: server-side failures count
	// against it, caller errors (4xx) do not.
	if resp.StatusCode >= 500 {
		c.circuitBreaker.RecordFailure()
	} else {
		c.circuitBreaker.RecordSuccess()
	}
	c.recordBreakerState()
	return nil, resp.StatusCode, cerr, false
}

// replayRequest clones the template for one attempt, rewinding the body.
func replayRequest(ctx context.Context, template *http.Request) (*http.Request, *Error) {
	req := template.Clone(ctx)
	if template.Body == nil {
		return req, nil
	}
	if template.GetBody == nil {
		return nil, Network("request body is not replayable for retries", false, false)
	}
	body, err := template.GetBody()
	if err != nil {
		return nil, Network("failed to rewind request body: "+err.Error(), false, false)
	}
	req.Body = body
	return req, nil
}

// newRequest builds the request template with the standard headers.
func (c *Client) newRequest(ctx context.Context, method, urlStr string, body []byte, requestID string) (*http.Request, *Error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, reader)
	if err != nil {
		return nil, InvalidRequest("failed to build request: " + err.Error())
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("X-Client-Version", Version)
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	for k, v := range c.config.DefaultHeaders {
		req.Header.Set(k, v)
	}
	return req, nil
}

// observeAttempt is the per-attempt hook: every attempt reports operation,
// attempt index, elapsed time and outcome to the metrics and log sinks.
// The hook point is preserved even when both sinks are absent.
func (c *Client) observeAttempt(operation string, attempt int, elapsed time.Duration, err *Error, cancelled bool, requestID string) {
	outcome := "success"
	switch {
	case cancelled:
		outcome = "cancelled"
	case err != nil:
		outcome = err.Kind.String()
	}
	if c.metrics != nil {
		c.metrics.RecordAttempt(operation, outcome)
	}
	if c.debug != nil && c.debug.Enabled && c.logger != nil {
		c.logger.Debug("attempt finished", "requestID", requestID, "operation", operation, "attempt", attempt, "elapsed", elapsed, "outcome", outcome)
	}
}

func (c *Client) recordBreakerState() {
	if c.metrics != nil {
		c.metrics.RecordCircuitBreakerState("default", c.circuitBreaker.State())
	}
}

// buildURL resolves a path or absolute URL against the configured base.
// Pagination cursors arrive as absolute URLs or relative paths with their
// own query string and are consumed verbatim; an explicit query is merged in.
func (c *Client) buildURL(pathOrURL string, query url.Values) (string, *Error) {
	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", InvalidRequest("invalid base URL: " + err.Error())
	}
	ref, err := url.Parse(pathOrURL)
	if err != nil {
		return "", InvalidRequest("invalid request path " + pathOrURL + ": " + err.Error())
	}
	u := base.ResolveReference(ref)

	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// endpointFromURL reduces a URL to host+path for metric labels.
func endpointFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return "unknown"
	}

	var builder strings.Builder
	builder.WriteString(u.Host)
	if u.Path != "" && u.Path != "/" {
		builder.WriteString(u.Path)
	} else {
		builder.WriteByte('/')
	}
	return builder.String()
}

// sleepContext waits for d without holding a pooled connection, returning
// early if the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
