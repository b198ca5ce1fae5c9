package stateset

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.BaseURL != "https://api.stateset.io" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.RetryAttempts != 3 || cfg.RetryDelay != time.Second || cfg.MaxRetryDelay != 60*time.Second {
		t.Errorf("retry schedule = %d/%v/%v", cfg.RetryAttempts, cfg.RetryDelay, cfg.MaxRetryDelay)
	}
	if !strings.HasPrefix(cfg.UserAgent, "stateset-go/") {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("STATESET_BASE_URL", "https://sandbox.stateset.io")
	t.Setenv("STATESET_TIMEOUT_SECONDS", "5")
	t.Setenv("STATESET_RETRY_ATTEMPTS", "1")
	t.Setenv("STATESET_RETRY_DELAY_MS", "250")
	t.Setenv("STATESET_RATE_LIMIT_PER_MINUTE", "30")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.BaseURL != "https://sandbox.stateset.io" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.RetryAttempts != 1 {
		t.Errorf("RetryAttempts = %d", cfg.RetryAttempts)
	}
	if cfg.RetryDelay != 250*time.Millisecond {
		t.Errorf("RetryDelay = %v", cfg.RetryDelay)
	}
	if cfg.RateLimitPerMinute != 30 {
		t.Errorf("RateLimitPerMinute = %d", cfg.RateLimitPerMinute)
	}
}

func TestConfigFromEnvRejectsGarbage(t *testing.T) {
	t.Setenv("STATESET_TIMEOUT_SECONDS", "soon")

	if _, err := ConfigFromEnv(); err == nil {
		t.Fatal("non-integer STATESET_TIMEOUT_SECONDS should be rejected")
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("STATESET_BASE_URL", "https://sandbox.stateset.io")
	t.Setenv("STATESET_API_KEY", "sk_env_1")

	client, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	if client.config.BaseURL != "https://sandbox.stateset.io" {
		t.Errorf("BaseURL = %q", client.config.BaseURL)
	}
	if !client.IsAuthenticated() {
		t.Error("STATESET_API_KEY should authenticate the client")
	}
}

func TestConfigValidate(t *testing.T) {
	mutate := func(f func(*Config)) *Config {
		cfg := DefaultConfig()
		f(cfg)
		return cfg
	}

	tests := []struct {
		name string
		cfg  *Config
	}{
		{"bad scheme", mutate(func(c *Config) { c.BaseURL = "ftp://api.stateset.io" })},
		{"unparseable url", mutate(func(c *Config) { c.BaseURL = "://" })},
		{"zero timeout", mutate(func(c *Config) { c.Timeout = 0 })},
		{"connect exceeds request timeout", mutate(func(c *Config) { c.ConnectTimeout = time.Minute })},
		{"negative retries", mutate(func(c *Config) { c.RetryAttempts = -1 })},
		{"multiplier too small", mutate(func(c *Config) { c.RetryMultiplier = 1.0 })},
		{"max delay below initial", mutate(func(c *Config) { c.MaxRetryDelay = 100 * time.Millisecond })},
		{"negative rate limit", mutate(func(c *Config) { c.RateLimitPerMinute = -5 })},
		{"zero pool size", mutate(func(c *Config) { c.Pool.MaxConnectionsPerHost = 0 })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestConfigRetryPolicyDerivation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetryAttempts = 5
	cfg.RetryDelay = 200 * time.Millisecond

	p := cfg.retryPolicy()
	if p.MaxAttempts != 5 || p.InitialDelay != 200*time.Millisecond {
		t.Errorf("policy = %+v", p)
	}
	if !p.Jitter {
		t.Error("derived policy should keep jitter on")
	}
}

func TestConfigHTTPClient(t *testing.T) {
	cfg := DefaultConfig()
	hc := cfg.httpClient()

	if hc.Timeout != cfg.Timeout {
		t.Errorf("client timeout = %v, want %v", hc.Timeout, cfg.Timeout)
	}
}
