package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"content-hub/domain/model"
)

func instantExecutor(policy Policy) *Executor {
	e := NewExecutor(policy)
	e.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return e
}

func TestDo_RetryBound(t *testing.T) {
	e := instantExecutor(Policy{})
	calls := 0
	err := e.Do(context.Background(), func() error {
		calls++
		return &model.TransportError{StatusCode: 500, Message: "server error"}
	})

	assert.Equal(t, 3, calls, "a persistent 500 must be attempted exactly maxAttempts times")
	var exhausted *model.RetryExhaustedError
	assert.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	var te *model.TransportError
	assert.True(t, errors.As(err, &te), "last error must be preserved")
}

func TestDo_TerminalShortCircuit(t *testing.T) {
	e := instantExecutor(Policy{})
	calls := 0
	err := e.Do(context.Background(), func() error {
		calls++
		return &model.TransportError{StatusCode: 404, Message: "not found"}
	})

	assert.Equal(t, 1, calls, "a 404 must never trigger a second attempt")
	var te *model.TransportError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, 404, te.StatusCode)
}

func TestDo_SucceedsAfterRetryableFailures(t *testing.T) {
	e := instantExecutor(Policy{})
	calls := 0
	err := e.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &model.TransportError{StatusCode: 429, Message: "slow down"}
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_TimeoutIsRetryable(t *testing.T) {
	e := instantExecutor(Policy{MaxAttempts: 2})
	calls := 0
	err := e.Do(context.Background(), func() error {
		calls++
		return context.DeadlineExceeded
	})

	assert.Equal(t, 2, calls)
	assert.Error(t, err)
}

func TestDo_ValidationNeverRetried(t *testing.T) {
	e := instantExecutor(Policy{})
	calls := 0
	err := e.Do(context.Background(), func() error {
		calls++
		return model.NewValidationError("content_id", "required")
	})

	assert.Equal(t, 1, calls)
	var ve *model.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestDo_OnAttemptHook(t *testing.T) {
	var attempts []int
	e := instantExecutor(Policy{OnAttempt: func(n int) { attempts = append(attempts, n) }})
	_ = e.Do(context.Background(), func() error {
		return &model.TransportError{StatusCode: 503, Message: "unavailable"}
	})

	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestDelay_BackoffGrowthWithinJitterBounds(t *testing.T) {
	base := time.Second
	e := NewExecutor(Policy{BaseDelay: base})

	for n := 1; n <= 3; n++ {
		expected := base * time.Duration(1<<(n-1))
		lo := time.Duration(float64(expected) * 0.5)
		hi := time.Duration(float64(expected) * 1.5)
		for i := 0; i < 100; i++ {
			d := e.delay(n)
			assert.GreaterOrEqual(t, d, lo, "retry %d delay below jitter floor", n)
			assert.LessOrEqual(t, d, hi, "retry %d delay above jitter ceiling", n)
		}
	}
}

func TestExecute_ReturnsValue(t *testing.T) {
	e := instantExecutor(Policy{})
	calls := 0
	got, err := Execute(context.Background(), e, func() (string, error) {
		calls++
		if calls == 1 {
			return "", &model.TransportError{StatusCode: 502, Message: "bad gateway"}
		}
		return "ok", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	e := NewExecutor(Policy{BaseDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := e.Do(ctx, func() error {
		calls++
		return &model.TransportError{StatusCode: 500, Message: "boom"}
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}
