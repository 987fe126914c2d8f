package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler captures log records so tests can count retry warnings.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) warnings() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	count := 0
	for _, r := range h.records {
		if r.Level == slog.LevelWarn {
			count++
		}
	}
	return count
}

func fastPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts:       maxAttempts,
		InitialDelay:      time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	calls := 0
	result, err := Do(context.Background(), logger, "op", fastPolicy(3), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	handler := &recordingHandler{}
	logger := slog.New(handler)

	maxAttempts := 4
	calls := 0
	result, err := Do(context.Background(), logger, "flaky", fastPolicy(maxAttempts), func(context.Context) (int, error) {
		calls++
		if calls < maxAttempts {
			return 0, errors.New("transient failure")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, maxAttempts, calls)
	assert.Equal(t, maxAttempts-1, handler.warnings(), "one warning per retry attempt")
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	calls := 0
	_, err := Do(context.Background(), logger, "doomed", fastPolicy(3), func(context.Context) (string, error) {
		calls++
		return "", fmt.Errorf("attempt %d exploded", calls)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "attempt 3", "last error is surfaced")
}

func TestDo_NonRetryableShortCircuits(t *testing.T) {
	handler := &recordingHandler{}
	logger := slog.New(handler)

	calls := 0
	_, err := Do(context.Background(), logger, "lookup", fastPolicy(10), func(context.Context) (string, error) {
		calls++
		return "", errors.New("ai service returned 404")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "no additional attempts after a 404")
	assert.Equal(t, 0, handler.warnings())
}

func TestDo_PermanentWrapperShortCircuits(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	calls := 0
	_, err := Do(context.Background(), logger, "op", fastPolicy(5), func(context.Context) (string, error) {
		calls++
		return "", Permanent(errors.New("schema mismatch"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var perm *PermanentError
	assert.True(t, errors.As(err, &perm))
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())

	policy := Policy{
		MaxAttempts:       3,
		InitialDelay:      time.Minute,
		MaxDelay:          time.Minute,
		BackoffMultiplier: 2.0,
	}

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, logger, "slow", policy, func(context.Context) (string, error) {
			calls++
			return "", errors.New("transient")
		})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
}

func TestIsNonRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "transient", err: errors.New("connection reset by peer"), want: false},
		{name: "unauthorized", err: errors.New("request Unauthorized"), want: true},
		{name: "forbidden", err: errors.New("403 Forbidden"), want: true},
		{name: "not found", err: errors.New("user not found"), want: true},
		{name: "invalid", err: errors.New("invalid payload shape"), want: true},
		{name: "status code", err: errors.New("unexpected status 404"), want: true},
		{name: "wrapped permanent", err: fmt.Errorf("call failed: %w", Permanent(errors.New("boom"))), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNonRetryable(tt.err))
		})
	}
}

func TestDelayFor(t *testing.T) {
	policy := Policy{
		MaxAttempts:       10,
		InitialDelay:      time.Second,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
	}

	assert.Equal(t, time.Second, delayFor(policy, 2))
	assert.Equal(t, 2*time.Second, delayFor(policy, 3))
	assert.Equal(t, 4*time.Second, delayFor(policy, 4))
	assert.Equal(t, 8*time.Second, delayFor(policy, 5))
	assert.Equal(t, 10*time.Second, delayFor(policy, 6), "capped at max delay")
	assert.Equal(t, 10*time.Second, delayFor(policy, 9))
}
