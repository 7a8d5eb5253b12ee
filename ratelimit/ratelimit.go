package ratelimit

import (
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// NewLimiter allows one request per interval. A zero interval disables pacing.
func NewLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}

	return rate.NewLimiter(rate.Every(interval), 1)
}

// SearchPause returns a duration in [base, 1.5*base] used between two
// consecutive searches.
func SearchPause(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}

	return base + rand.N(base/2+1) //nolint:gosec
}
