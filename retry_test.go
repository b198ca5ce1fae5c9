package stateset

import (
	"testing"
	"time"
)

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	if p.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", p.MaxAttempts)
	}
	if p.InitialDelay != time.Second {
		t.Errorf("InitialDelay = %v, want 1s", p.InitialDelay)
	}
	if p.MaxDelay != 60*time.Second {
		t.Errorf("MaxDelay = %v, want 60s", p.MaxDelay)
	}
	if p.Multiplier != 2.0 {
		t.Errorf("Multiplier = %g, want 2.0", p.Multiplier)
	}
	if !p.Jitter {
		t.Error("jitter should be enabled by default")
	}
}

func TestDelayForAttemptWithoutJitter(t *testing.T) {
	p := NewRetryPolicy(5, 100*time.Millisecond, time.Second, 2.0).WithoutJitter()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{10, time.Second},
	}
	for _, tt := range tests {
		if got := p.DelayForAttempt(tt.attempt); got != tt.want {
			t.Errorf("DelayForAttempt(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDelayForAttemptJitterBounds(t *testing.T) {
	p := NewRetryPolicy(5, 100*time.Millisecond, 10*time.Second, 2.0)
	plain := p.WithoutJitter()

	for attempt := 0; attempt < 5; attempt++ {
		base := plain.DelayForAttempt(attempt)
		lo := time.Duration(float64(base) * 0.5)
		hi := time.Duration(float64(base) * 1.5)
		for i := 0; i < 100; i++ {
			got := p.DelayForAttempt(attempt)
			if got < lo || got > hi {
				t.Fatalf("attempt %d: delay %v outside [%v, %v]", attempt, got, lo, hi)
			}
		}
	}
}

func TestWithoutJitterReturnsCopy(t *testing.T) {
	p := DefaultRetryPolicy()
	q := p.WithoutJitter()
	if q == p {
		t.Fatal("WithoutJitter should return a copy")
	}
	if !p.Jitter {
		t.Error("original policy should keep jitter enabled")
	}
	if q.Jitter {
		t.Error("copy should have jitter disabled")
	}
}

func TestShouldRetry(t *testing.T) {
	p := NewRetryPolicy(2, time.Millisecond, time.Second, 2.0)
	if !p.ShouldRetry(0) || !p.ShouldRetry(1) {
		t.Error("attempts below MaxAttempts should allow a retry")
	}
	if p.ShouldRetry(2) {
		t.Error("attempt equal to MaxAttempts should not allow a retry")
	}

	zero := NewRetryPolicy(0, time.Millisecond, time.Second, 2.0)
	if zero.ShouldRetry(0) {
		t.Error("MaxAttempts of zero should never retry")
	}
}
