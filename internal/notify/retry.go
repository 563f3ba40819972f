package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/contented/internal/logfields"
)

// RetryPolicy defines retry behavior for failed publishes.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	IsRetryable func(error) bool
}

// DefaultRetryPolicy provides 3 attempts with exponential backoff starting
// at 200ms. Connection level NATS failures are retried.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     200 * time.Millisecond,
		IsRetryable: func(err error) bool {
			return errors.Is(err, nats.ErrTimeout) ||
				errors.Is(err, nats.ErrNoResponders) ||
				errors.Is(err, nats.ErrConnectionReconnecting) ||
				errors.Is(err, nats.ErrNoServers)
		},
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// are exhausted or ctx is done.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.IsRetryable == nil || !p.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		backoff := p.Backoff * time.Duration(1<<uint(attempt-1))
		slog.Info("Retrying after failure", logfields.Op(op), slog.Int("attempt", attempt), slog.Duration("backoff", backoff), logfields.Error(lastErr))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, lastErr)
}
