package backoff

import (
	"math/rand"
	"time"
)

// Strategy defines the interface for backoff calculation algorithms.
type Strategy interface {
	// Calculate returns the backoff duration for the given attempt number
	// and schedule parameters.
	Calculate(attempt int, initialDelay, maxDelay time.Duration, multiplier float64) time.Duration
}

// ExponentialStrategy implements plain exponential backoff: the delay for
// attempt n is initialDelay * multiplier^n, capped at maxDelay. The pre-jitter
// schedule is non-decreasing in the attempt index.
type ExponentialStrategy struct{}

// Calculate implements the Strategy interface.
func (s ExponentialStrategy) Calculate(attempt int, initialDelay, maxDelay time.Duration, multiplier float64) time.Duration {
	if attempt <= 0 {
		return initialDelay
	}

	// Prevent overflow by limiting attempt
	if attempt > 30 {
		attempt = 30
	}

	delay := time.Duration(float64(initialDelay) * Pow(multiplier, attempt))
	if delay < 0 || delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// FullJitterStrategy scales the exponential schedule by a fresh uniform
// random factor in [0.5, 1.5] per call. The factor is independent across
// calls (full jitter, not decorrelated), which spreads synchronized retry
// storms across clients.
type FullJitterStrategy struct {
	base ExponentialStrategy
}

// Calculate implements the Strategy interface.
func (s FullJitterStrategy) Calculate(attempt int, initialDelay, maxDelay time.Duration, multiplier float64) time.Duration {
	delay := s.base.Calculate(attempt, initialDelay, maxDelay, multiplier)
	factor := 0.5 + rand.Float64()
	return time.Duration(float64(delay) * factor)
}

// Pow calculates base^exponent using integer exponentiation.
func Pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
