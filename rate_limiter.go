package stateset

import (
	"sync"
	"sync/atomic"
	"time"
)

// rateLimiterWindow is the fixed accounting window.
const rateLimiterWindow = time.Minute

// RateLimiter is a client-side fixed-window token counter: the full capacity
// is restored exactly once per elapsed window, observed lazily at check time.
// Bursts of up to twice the capacity are possible across a window boundary;
// that is acceptable for self-throttling, and this limiter is not meant to
// be authoritative.
type RateLimiter struct {
	capacity    int64
	window      time.Duration
	tokens      atomic.Int64
	windowStart atomic.Int64 // unix nanos

	mu sync.Mutex // guards the window rollover
}

// NewRateLimiter creates a limiter allowing requestsPerMinute requests in
// each 60s window.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	return newRateLimiter(requestsPerMinute, rateLimiterWindow)
}

// newRateLimiter exists so tests can shrink the window instead of sleeping
// for a full minute.
func newRateLimiter(capacity int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{capacity: int64(capacity), window: window}
	rl.tokens.Store(int64(capacity))
	rl.windowStart.Store(time.Now().UnixNano())
	return rl
}

// Allow consumes one token if any remain in the current window, refilling
// first when the window has elapsed.
func (rl *RateLimiter) Allow() bool {
	now := time.Now().UnixNano()

	if now-rl.windowStart.Load() >= int64(rl.window) {
		rl.mu.Lock()
		if now-rl.windowStart.Load() >= int64(rl.window) {
			rl.windowStart.Store(now)
			rl.tokens.Store(rl.capacity)
		}
		rl.mu.Unlock()
	}

	for {
		current := rl.tokens.Load()
		if current <= 0 {
			return false
		}
		if rl.tokens.CompareAndSwap(current, current-1) {
			return true
		}
	}
}

// Tokens returns the tokens remaining in the current window.
func (rl *RateLimiter) Tokens() int {
	return int(rl.tokens.Load())
}

// RetryAfter returns the time until the current window resets, used as the
// retry hint on synthesized rate-limit errors.
func (rl *RateLimiter) RetryAfter() time.Duration {
	elapsed := time.Duration(time.Now().UnixNano() - rl.windowStart.Load())
	if elapsed >= rl.window {
		return 0
	}
	return rl.window - elapsed
}
