package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// newRateLimiter allows requestsPerMinute calls with a burst of one.
// A non-positive rate disables limiting.
func newRateLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

func waitForSlot(ctx context.Context, limiter *rate.Limiter) error {
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter canceled: %w", err)
	}
	return nil
}
