package stateset

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// PoolSettings bounds the shared transport connection pool. Acquisition
// suspends the calling goroutine when the pool is saturated; idle
// connections are reclaimed after IdleTimeout.
type PoolSettings struct {
	MaxConnectionsPerHost int
	MaxTotalConnections   int
	IdleTimeout           time.Duration
}

// DefaultPoolSettings returns the pool bounds used when none are configured.
func DefaultPoolSettings() PoolSettings {
	return PoolSettings{
		MaxConnectionsPerHost: 10,
		MaxTotalConnections:   100,
		IdleTimeout:           30 * time.Second,
	}
}

// Config is the immutable configuration bag the client reads at
// construction time.
type Config struct {
	// BaseURL is the API root; request paths are resolved against it.
	BaseURL string
	// Timeout bounds each individual request attempt.
	Timeout time.Duration
	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration

	// RetryAttempts is the number of retries after the initial attempt.
	RetryAttempts int
	// RetryDelay is the initial backoff delay.
	RetryDelay time.Duration
	// MaxRetryDelay caps the backoff delay.
	MaxRetryDelay time.Duration
	// RetryMultiplier grows the delay per attempt; must be greater than 1.
	RetryMultiplier float64

	// RateLimitPerMinute enables the client-side limiter when positive.
	RateLimitPerMinute int

	// UserAgent is sent on every request.
	UserAgent string
	// DefaultHeaders are added to every request.
	DefaultHeaders map[string]string

	// Pool bounds the transport connection pool.
	Pool PoolSettings
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "https://api.stateset.io",
		Timeout:         30 * time.Second,
		ConnectTimeout:  10 * time.Second,
		RetryAttempts:   3,
		RetryDelay:      time.Second,
		MaxRetryDelay:   60 * time.Second,
		RetryMultiplier: 2.0,
		UserAgent:       "stateset-go/" + Version,
		DefaultHeaders:  map[string]string{},
		Pool:            DefaultPoolSettings(),
	}
}

// ConfigFromEnv builds a configuration from STATESET_* environment
// variables, loading a .env file first when one is present. Unset variables
// keep their defaults.
//
//	STATESET_BASE_URL, STATESET_API_KEY (read by NewFromEnv),
//	STATESET_TIMEOUT_SECONDS, STATESET_RETRY_ATTEMPTS,
//	STATESET_RETRY_DELAY_MS, STATESET_RATE_LIMIT_PER_MINUTE
func ConfigFromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if v := os.Getenv("STATESET_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("STATESET_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return nil, InvalidRequest(fmt.Sprintf("STATESET_TIMEOUT_SECONDS %q is not an integer", v))
		}
		cfg.Timeout = time.Duration(secs) * time.Second
	}
	if v := os.Getenv("STATESET_RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, InvalidRequest(fmt.Sprintf("STATESET_RETRY_ATTEMPTS %q is not an integer", v))
		}
		cfg.RetryAttempts = n
	}
	if v := os.Getenv("STATESET_RETRY_DELAY_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return nil, InvalidRequest(fmt.Sprintf("STATESET_RETRY_DELAY_MS %q is not an integer", v))
		}
		cfg.RetryDelay = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv("STATESET_RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, InvalidRequest(fmt.Sprintf("STATESET_RATE_LIMIT_PER_MINUTE %q is not an integer", v))
		}
		cfg.RateLimitPerMinute = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return InvalidRequest("base URL must start with http:// or https://")
	}
	if c.Timeout <= 0 {
		return InvalidRequest("timeout must be positive, e.g. 30s")
	}
	if c.ConnectTimeout > c.Timeout {
		return InvalidRequest("connect timeout cannot exceed the request timeout")
	}
	if c.RetryAttempts < 0 {
		return InvalidRequest("retry attempts must be non-negative")
	}
	if c.RetryMultiplier <= 1.0 {
		return InvalidRequest("retry multiplier must be greater than 1.0, e.g. 2.0")
	}
	if c.MaxRetryDelay < c.RetryDelay {
		return InvalidRequest("max retry delay must be at least the initial retry delay")
	}
	if c.RateLimitPerMinute < 0 {
		return InvalidRequest("rate limit per minute must be non-negative")
	}
	if c.Pool.MaxConnectionsPerHost <= 0 {
		return InvalidRequest("max connections per host must be positive, e.g. 10")
	}
	return nil
}

// retryPolicy derives the executor's schedule from the config.
func (c *Config) retryPolicy() *RetryPolicy {
	return NewRetryPolicy(c.RetryAttempts, c.RetryDelay, c.MaxRetryDelay, c.RetryMultiplier)
}

// httpClient builds the pooled transport. Backoff sleeps never hold a pooled
// connection: response bodies are fully drained and closed before the
// executor waits, returning the slot to the pool.
func (c *Config) httpClient() *http.Client {
	dialer := &net.Dialer{Timeout: c.ConnectTimeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConnsPerHost: c.Pool.MaxConnectionsPerHost,
		MaxConnsPerHost:     c.Pool.MaxConnectionsPerHost,
		MaxIdleConns:        c.Pool.MaxTotalConnections,
		IdleConnTimeout:     c.Pool.IdleTimeout,
	}
	return &http.Client{
		Timeout:   c.Timeout,
		Transport: transport,
	}
}
