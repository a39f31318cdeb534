package utils

import (
	"context"
	"fmt"
	"time"

	"volunteer-service/internal/logging"
)

// Retry calls fn until it succeeds, maxAttempts is reached or ctx is done.
func Retry(ctx context.Context, logger *logging.Logger, what string, maxAttempts int, delay time.Duration, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := fn(ctx); err != nil {
			lastErr = err
			logger.Errorf("%s: attempt %d/%d failed: %v", what, attempt, maxAttempts, err)
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return fmt.Errorf("%s: %w", what, ctx.Err())
				case <-time.After(delay):
				}
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("%s failed after %d attempts: %w", what, maxAttempts, lastErr)
}
