package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/matthieukhl/loyaltydesk/internal/apperr"
)

// Policy is a fixed retry budget with a constant delay between attempts.
type Policy struct {
	MaxRetries int
	Delay      time.Duration
	Logger     *slog.Logger
}

// DefaultPolicy allows two retries one second apart.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 2, Delay: time.Second}
}

// Permanent marks an error that must not be retried.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a non-retryable error, or the budget
// is exhausted. op runs at most MaxRetries+1 times and the last error is
// returned.
func Do[T any](ctx context.Context, p Policy, name string, op func(ctx context.Context) (T, error)) (T, error) {
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	attempt := 0
	operation := func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err != nil && !retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(maxRetries)),
		ctx,
	)

	notify := func(err error, wait time.Duration) {
		if p.Logger != nil {
			p.Logger.Warn("retrying after failure",
				slog.String("operation", name),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.String("error", err.Error()))
		}
	}

	return backoff.RetryNotifyWithData(operation, b, notify)
}

// Validation, domain and not-found failures will fail the same way again.
// Auth failures already spent the token provider's own budget.
func retryable(err error) bool {
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		// already marked; backoff unwraps it
		return true
	}
	switch {
	case apperr.Is(err, apperr.Validation), apperr.Is(err, apperr.Domain), apperr.Is(err, apperr.NotFound),
		apperr.Is(err, apperr.Auth):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
