package orchestrator

import (
	"context"
	"errors"
	"time"

	"vidscout/internal/store"
)

const (
	persistAttempts = 3
	initialBackoff  = 100 * time.Millisecond
)

// retryPersist runs a store operation with bounded exponential backoff.
// Persistence failures are the ones that would otherwise silently lose
// state, so they get a few local attempts before the delivery is reported
// failed. Permanent errors are returned immediately.
func (o *Orchestrator) retryPersist(ctx context.Context, op func() error) error {
	backoff := initialBackoff
	var lastErr error

	for attempt := 1; attempt <= persistAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
		if attempt >= persistAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return lastErr
}

// isRetryable reports whether an error is worth another local attempt.
// Connectivity and timeout failures usually are; logical errors never are.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, store.ErrDuplicateKey) ||
		errors.Is(err, store.ErrInvalidTransition) {
		return false
	}
	return true
}
