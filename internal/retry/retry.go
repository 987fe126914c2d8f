package retry

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"
)

// Policy controls how an operation is retried. The zero value is usable; any
// unset field falls back to the package default.
type Policy struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultPolicy is the process-wide retry policy, overridable per call site.
var DefaultPolicy = Policy{
	MaxAttempts:       3,
	InitialDelay:      time.Second,
	MaxDelay:          30 * time.Second,
	BackoffMultiplier: 2.0,
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultPolicy.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultPolicy.MaxDelay
	}
	if p.BackoffMultiplier <= 0 {
		p.BackoffMultiplier = DefaultPolicy.BackoffMultiplier
	}
	return p
}

// PermanentError marks an error that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return "permanent: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so Do aborts immediately without consuming attempts.
func Permanent(err error) error {
	return &PermanentError{Err: err}
}

// nonRetryableMarkers are client-side failure indicators that will not heal
// by retrying.
var nonRetryableMarkers = []string{
	"unauthorized",
	"forbidden",
	"not found",
	"invalid",
	"bad request",
	"400",
	"401",
	"403",
	"404",
}

// IsNonRetryable reports whether err is classified as a client-side error
// that retrying cannot fix.
func IsNonRetryable(err error) bool {
	if err == nil {
		return false
	}
	var perm *PermanentError
	if errors.As(err, &perm) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range nonRetryableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Do runs op with exponential backoff until it succeeds, exhausts
// policy.MaxAttempts, or fails with a non-retryable error. The only side
// effect besides running op is a warning log per retry attempt.
func Do[T any](ctx context.Context, logger *slog.Logger, label string, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	policy = policy.withDefaults()

	var zero T
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			logger.Warn("Retrying operation",
				slog.String("operation", label),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", policy.MaxAttempts),
				slog.Any("error", lastErr),
			)
			if err := sleep(ctx, delayFor(policy, attempt)); err != nil {
				return zero, err
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if IsNonRetryable(err) {
			return zero, err
		}
		lastErr = err
	}

	return zero, lastErr
}

// delayFor computes the backoff before the given attempt (attempt >= 2):
// min(maxDelay, initialDelay * multiplier^(attempt-2)).
func delayFor(policy Policy, attempt int) time.Duration {
	backoff := float64(policy.InitialDelay) * math.Pow(policy.BackoffMultiplier, float64(attempt-2))
	if backoff > float64(policy.MaxDelay) {
		return policy.MaxDelay
	}
	return time.Duration(backoff)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
