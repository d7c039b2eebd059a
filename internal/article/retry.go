package article

import (
	"context"
	"math"
	"strings"
	"time"

	"podpress/internal/logging"
)

// IsOverloaded reports whether err signals a temporarily overloaded backend.
func IsOverloaded(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "overloaded")
}

// backoff returns the wait before the attempt following attempt (1-based).
func backoff(attempt int, jitter float64) time.Duration {
	base := math.Pow(2, float64(attempt-1))
	return time.Duration((base + jitter) * float64(time.Second))
}

func (g *Generator) completeWithRetry(ctx context.Context, prompt string) (string, error) {
	logger := logging.WithContext(ctx, g.logger)
	attempts := g.settings.MaxAttempts
	for attempt := 1; ; attempt++ {
		raw, err := g.backend.Complete(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		if !IsOverloaded(err) || attempt >= attempts {
			return "", err
		}
		delay := backoff(attempt, g.jitter())
		logging.WarnWithContext(logger, "backend overloaded, retrying", "backend_overloaded",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if err := g.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
}
