package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Policy is a bounded exponential backoff with symmetric jitter.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      float64
	MinDelay    time.Duration
}

var (
	// OrderUpdatePolicy covers order writes made while confirming a payment.
	OrderUpdatePolicy = Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2,
		Jitter:      0.25,
		MinDelay:    100 * time.Millisecond,
	}

	// LedgerPolicy covers the idempotency lookup, which must stay fast.
	LedgerPolicy = Policy{
		MaxAttempts: 2,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Multiplier:  2,
		Jitter:      0.25,
		MinDelay:    100 * time.Millisecond,
	}
)

// Delay returns the wait before retry number attempt (1-based) for a
// uniform random value r in [0, 1).
func (p Policy) Delay(attempt int, r float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if max := float64(p.MaxDelay); p.MaxDelay > 0 && d > max {
		d = max
	}
	d += d * p.Jitter * (r*2 - 1)
	if min := float64(p.MinDelay); d < min {
		d = min
	}
	return time.Duration(d)
}

type options struct {
	retryIf func(error) bool
	onRetry func(attempt int, delay time.Duration, err error)
	random  func() float64
	sleep   func(ctx context.Context, d time.Duration) error
}

type Option func(*options)

// WithRetryIf replaces the default IsTransient classifier.
func WithRetryIf(fn func(error) bool) Option {
	return func(o *options) { o.retryIf = fn }
}

// WithOnRetry is called before each sleep.
func WithOnRetry(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(o *options) { o.onRetry = fn }
}

// WithSleep swaps the wait function. Tests use it to avoid real delays.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) { o.sleep = fn }
}

func WithRandom(fn func() float64) Option {
	return func(o *options) { o.random = fn }
}

// Do calls fn until it succeeds, returns a non-retryable error, the context
// ends or the attempt cap is reached.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error, opts ...Option) error {
	o := options{retryIf: IsTransient, random: rand.Float64, sleep: sleepContext}
	for _, opt := range opts {
		opt(&o)
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !o.retryIf(err) {
			return fmt.Errorf("non-retryable error on attempt %d: %w", attempt, err)
		}
		if attempt == attempts {
			break
		}

		delay := p.Delay(attempt, o.random())
		if o.onRetry != nil {
			o.onRetry(attempt, delay, err)
		}
		if err := o.sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry interrupted after %d attempts: %w", attempt, lastErr)
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// WithBackoff executes fn with the fixed 1s/2s/4s schedule used by the
// outbound API clients.
func WithBackoff(fn func() error, maxRetries int) error {
	backoffs := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if i < len(backoffs) && i < maxRetries-1 {
			time.Sleep(backoffs[i])
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
