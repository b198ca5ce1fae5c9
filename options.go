package stateset

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// Option configures a Client during construction.
type Option func(*Client)

// WithConfig replaces the entire configuration. Apply it before options
// that adjust individual fields.
func WithConfig(config *Config) Option {
	return func(c *Client) {
		if config != nil {
			c.config = config
		}
	}
}

// WithBaseURL sets the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.config.BaseURL = baseURL
	}
}

// WithAPIKey sets the bearer token sent in the Authorization header.
func WithAPIKey(apiKey string) Option {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// WithHTTPClient supplies a custom *http.Client, bypassing the transport
// built from the configuration's timeouts and pool settings.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the overall per-attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.config.Timeout = timeout
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.config.UserAgent = userAgent
	}
}

// WithDefaultHeader adds a header sent on every request.
func WithDefaultHeader(key, value string) Option {
	return func(c *Client) {
		if c.config.DefaultHeaders == nil {
			c.config.DefaultHeaders = make(map[string]string)
		}
		c.config.DefaultHeaders[key] = value
	}
}

// WithRetryPolicy replaces the retry policy.
func WithRetryPolicy(policy *RetryPolicy) Option {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// WithMaxRetries sets the retry count, keeping the configured delays.
func WithMaxRetries(maxRetries int) Option {
	return func(c *Client) {
		c.config.RetryAttempts = maxRetries
		if c.retryPolicy != nil {
			c.retryPolicy.MaxAttempts = maxRetries
		}
	}
}

// WithCircuitBreaker configures the circuit breaker thresholds.
func WithCircuitBreaker(failureThreshold int, recoveryTimeout time.Duration) Option {
	return func(c *Client) {
		c.circuitBreaker = NewCircuitBreaker(CircuitBreakerConfig{
			FailureThreshold: failureThreshold,
			RecoveryTimeout:  recoveryTimeout,
		})
	}
}

// WithRateLimiter enables client-side rate limiting at the given budget
// per minute. A non-positive budget disables the limiter.
func WithRateLimiter(requestsPerMinute int) Option {
	return func(c *Client) {
		c.config.RateLimitPerMinute = requestsPerMinute
		if requestsPerMinute > 0 {
			c.rateLimiter = NewRateLimiter(requestsPerMinute)
		} else {
			c.rateLimiter = nil
		}
	}
}

// WithMetrics enables Prometheus metrics on the default registry.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector installs a pre-built collector, typically one bound
// to a custom registry.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithLogger installs a structured logger for debug output.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables debug logging with all categories on.
func WithDebug() Option {
	return func(c *Client) {
		c.debug = &DebugConfig{
			Enabled:      true,
			LogRequests:  true,
			LogRetries:   true,
			LogRateLimit: true,
			LogCircuit:   true,
		}
	}
}

// WithDebugConfig installs fine-grained debug settings.
func WithDebugConfig(debug *DebugConfig) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithRequestIDGenerator overrides how X-Request-ID values are produced.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// WithDeduplication shares a single upstream call among concurrent
// identical GETs.
func WithDeduplication() Option {
	return func(c *Client) {
		c.dedup = &singleflight.Group{}
	}
}

// ValidateConfiguration checks the assembled client for inconsistent
// settings. It aggregates every problem found rather than stopping at the
// first one.
func (c *Client) ValidateConfiguration() error {
	var problems []string

	if err := c.config.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	problems = append(problems, validateRetryPolicy(c.retryPolicy)...)
	problems = append(problems, validateCircuitBreaker(c.circuitBreaker)...)
	problems = append(problems, validateRateLimiter(c.rateLimiter)...)

	if len(problems) == 0 {
		return nil
	}
	return InvalidRequest("invalid client configuration: " + strings.Join(problems, "; "))
}

func validateRetryPolicy(policy *RetryPolicy) []string {
	if policy == nil {
		return nil
	}
	var problems []string
	if policy.MaxAttempts < 0 {
		problems = append(problems, fmt.Sprintf("MaxAttempts must be >= 0, got %d", policy.MaxAttempts))
	}
	if policy.MaxAttempts > 0 {
		if policy.InitialDelay <= 0 {
			problems = append(problems, fmt.Sprintf("InitialDelay must be positive, got %v", policy.InitialDelay))
		}
		if policy.MaxDelay < policy.InitialDelay {
			problems = append(problems, fmt.Sprintf("MaxDelay %v must be >= InitialDelay %v", policy.MaxDelay, policy.InitialDelay))
		}
		if policy.Multiplier <= 1.0 {
			problems = append(problems, fmt.Sprintf("Multiplier must be > 1.0, got %g", policy.Multiplier))
		}
	}
	return problems
}

func validateCircuitBreaker(breaker *CircuitBreaker) []string {
	if breaker == nil {
		return []string{"circuit breaker must be configured"}
	}
	var problems []string
	if breaker.config.FailureThreshold <= 0 {
		problems = append(problems, fmt.Sprintf("FailureThreshold must be positive, got %d", breaker.config.FailureThreshold))
	}
	if breaker.config.RecoveryTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("RecoveryTimeout must be positive, got %v", breaker.config.RecoveryTimeout))
	}
	return problems
}

func validateRateLimiter(limiter *RateLimiter) []string {
	if limiter == nil {
		return nil
	}
	if limiter.capacity <= 0 {
		return []string{fmt.Sprintf("rate limiter capacity must be positive, got %d", limiter.capacity)}
	}
	return nil
}
