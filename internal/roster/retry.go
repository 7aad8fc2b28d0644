package roster

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/johnboyce/golf-outing-manager/internal/logger"
	"github.com/johnboyce/golf-outing-manager/internal/models"
)

const (
	defaultRetryAttempts = 3
	defaultInitialDelay  = 200 * time.Millisecond
)

// RetryingSource retries each list call with exponential backoff.
type RetryingSource struct {
	inner        Source
	maxAttempts  int
	initialDelay time.Duration
}

// NewRetryingSource wraps inner. Values <= 0 fall back to defaults.
func NewRetryingSource(inner Source, maxAttempts int, initialDelay time.Duration) *RetryingSource {
	if maxAttempts <= 0 {
		maxAttempts = defaultRetryAttempts
	}
	if initialDelay <= 0 {
		initialDelay = defaultInitialDelay
	}
	return &RetryingSource{inner: inner, maxAttempts: maxAttempts, initialDelay: initialDelay}
}

func (r *RetryingSource) ListPlayers(ctx context.Context) ([]models.Player, error) {
	return retry(ctx, r, "players", r.inner.ListPlayers)
}

func (r *RetryingSource) ListCourses(ctx context.Context) ([]models.Course, error) {
	return retry(ctx, r, "courses", r.inner.ListCourses)
}

func (r *RetryingSource) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialDelay
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.maxAttempts-1)), ctx)
}

func retry[T any](ctx context.Context, r *RetryingSource, what string, call func(context.Context) ([]T, error)) ([]T, error) {
	attempt := 0
	op := func() ([]T, error) {
		attempt++
		return call(ctx)
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("roster fetch retry", "what", what, "attempt", attempt, "max_attempts", r.maxAttempts, "wait", wait, "error", err)
	}

	out, err := backoff.RetryNotifyWithData(op, r.policy(ctx), notify)
	if err != nil {
		logger.Warn("roster fetch failed", "what", what, "attempts", attempt, "error", err)
		return nil, err
	}
	return out, nil
}
