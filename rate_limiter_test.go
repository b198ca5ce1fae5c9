package stateset

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRateLimiterEnforcesCapacity(t *testing.T) {
	rl := NewRateLimiter(3)

	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("request %d rejected within capacity", i+1)
		}
	}
	if rl.Allow() {
		t.Error("request beyond capacity should be rejected")
	}
	if rl.Tokens() != 0 {
		t.Errorf("Tokens = %d, want 0", rl.Tokens())
	}
}

func TestRateLimiterRefillsAfterWindow(t *testing.T) {
	rl := newRateLimiter(2, 40*time.Millisecond)

	if !rl.Allow() || !rl.Allow() {
		t.Fatal("initial window should allow up to capacity")
	}
	if rl.Allow() {
		t.Fatal("exhausted window should reject")
	}

	time.Sleep(50 * time.Millisecond)

	if !rl.Allow() {
		t.Error("new window should restore the full budget")
	}
	if rl.Tokens() != 1 {
		t.Errorf("Tokens = %d after refill and one request, want 1", rl.Tokens())
	}
}

func TestRateLimiterRetryAfter(t *testing.T) {
	rl := newRateLimiter(1, 100*time.Millisecond)
	rl.Allow()

	d := rl.RetryAfter()
	if d <= 0 || d > 100*time.Millisecond {
		t.Errorf("RetryAfter = %v, want within the current window", d)
	}

	time.Sleep(110 * time.Millisecond)
	if got := rl.RetryAfter(); got != 0 {
		t.Errorf("RetryAfter = %v after the window elapsed, want 0", got)
	}
}

func TestRateLimiterConcurrentExactBudget(t *testing.T) {
	const capacity = 100
	rl := NewRateLimiter(capacity)

	var wg sync.WaitGroup
	var allowed atomic.Int64

	for i := 0; i < capacity*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow() {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != capacity {
		t.Errorf("allowed %d requests concurrently, want exactly %d", got, capacity)
	}
}
