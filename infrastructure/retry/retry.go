package retry

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"content-hub/domain/model"
)

// Classifier decides whether an error is worth another attempt
type Classifier func(error) bool

// Policy parameterizes an Executor. MaxAttempts counts the initial call, so
// the default of 3 means one call plus two retries.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Classifier  Classifier
	// OnAttempt, when set, runs before every attempt with the 1-based
	// attempt number. Callers use it to charge quota or advance audit rows.
	OnAttempt func(attempt int)
}

// Executor runs operations under a bounded exponential-backoff retry policy.
// It owns no other state, so one executor is safely shared by platform
// fetches and notification deliveries alike.
type Executor struct {
	policy Policy

	mu  sync.Mutex
	rng *rand.Rand
	// sleep is swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor builds an Executor, filling unset policy fields with the
// defaults: 3 attempts, 1s base delay, model.IsRetryable classification.
func NewExecutor(policy Policy) *Executor {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Second
	}
	if policy.Classifier == nil {
		policy.Classifier = model.IsRetryable
	}
	return &Executor{
		policy: policy,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
	}
}

// Do runs op until it succeeds, returns a terminal error, or the attempt
// budget runs out. On exhaustion the returned error is a
// *model.RetryExhaustedError carrying the attempt count and last error.
func (e *Executor) Do(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := e.sleep(ctx, e.delay(attempt-1)); err != nil {
				return err
			}
		}
		if e.policy.OnAttempt != nil {
			e.policy.OnAttempt(attempt)
		}
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !e.policy.Classifier(lastErr) {
			return lastErr
		}
	}
	return &model.RetryExhaustedError{Attempts: e.policy.MaxAttempts, LastErr: lastErr}
}

// delay computes the backoff before the attempt following failed attempt n
// (1-indexed): base * 2^(n-1), jittered by ±50%.
func (e *Executor) delay(n int) time.Duration {
	d := e.policy.BaseDelay
	for i := 1; i < n; i++ {
		d *= 2
	}
	e.mu.Lock()
	factor := 0.5 + e.rng.Float64()
	e.mu.Unlock()
	return time.Duration(float64(d) * factor)
}

// Execute runs a value-returning operation through the executor
func Execute[T any](ctx context.Context, e *Executor, op func() (T, error)) (T, error) {
	var out T
	err := e.Do(ctx, func() error {
		v, err := op()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
