package stateset

import (
	"time"

	"github.com/stateset/stateset-go/internal/backoff"
)

// RetryPolicy describes the delay schedule between attempts. It is immutable
// configuration: the executor consults it but never mutates it, so a single
// policy may be shared across clients.
type RetryPolicy struct {
	// MaxAttempts is the number of retries after the initial attempt, so a
	// request performs at most MaxAttempts+1 sends.
	MaxAttempts int
	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the pre-jitter delay.
	MaxDelay time.Duration
	// Multiplier grows the delay per attempt; must be greater than 1.
	Multiplier float64
	// Jitter scales each delay by a fresh uniform factor in [0.5, 1.5].
	Jitter bool
}

// NewRetryPolicy creates a retry policy with jitter enabled.
func NewRetryPolicy(maxAttempts int, initialDelay, maxDelay time.Duration, multiplier float64) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  maxAttempts,
		InitialDelay: initialDelay,
		MaxDelay:     maxDelay,
		Multiplier:   multiplier,
		Jitter:       true,
	}
}

// DefaultRetryPolicy returns the schedule used when none is configured:
// three retries starting at 1s, doubling up to 60s, with jitter.
func DefaultRetryPolicy() *RetryPolicy {
	return NewRetryPolicy(3, time.Second, 60*time.Second, 2.0)
}

// WithoutJitter returns a copy of the policy with jitter disabled.
func (p *RetryPolicy) WithoutJitter() *RetryPolicy {
	q := *p
	q.Jitter = false
	return &q
}

// DelayForAttempt returns the wait before resubmitting after the given
// attempt index. Attempt 0 waits InitialDelay; attempt n waits
// min(InitialDelay * Multiplier^n, MaxDelay), jittered when enabled.
func (p *RetryPolicy) DelayForAttempt(attempt int) time.Duration {
	calc := backoff.Exponential()
	if p.Jitter {
		calc = backoff.FullJitter()
	}
	return calc.Calculate(attempt, p.InitialDelay, p.MaxDelay, p.Multiplier)
}

// ShouldRetry reports whether another attempt is permitted after the given
// attempt index.
func (p *RetryPolicy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxAttempts
}
