package backoff

import (
	"time"
)

// Calculator provides backoff calculation using a configurable strategy.
// It centralizes the delay schedule shared by the client and RetryPolicy.
type Calculator struct {
	strategy Strategy
}

// NewCalculator creates a backoff calculator with the specified strategy.
func NewCalculator(strategy Strategy) *Calculator {
	return &Calculator{strategy: strategy}
}

// Calculate computes the backoff duration for the given attempt and
// parameters by delegating to the configured strategy.
func (c *Calculator) Calculate(attempt int, initialDelay, maxDelay time.Duration, multiplier float64) time.Duration {
	return c.strategy.Calculate(attempt, initialDelay, maxDelay, multiplier)
}

// Exponential returns a calculator using the plain exponential strategy.
func Exponential() *Calculator {
	return NewCalculator(ExponentialStrategy{})
}

// FullJitter returns a calculator that applies uniform [0.5, 1.5] jitter on
// top of the exponential schedule.
func FullJitter() *Calculator {
	return NewCalculator(FullJitterStrategy{})
}
