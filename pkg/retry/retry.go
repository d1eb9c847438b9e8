// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"k8s.io/utils/clock"
)

// JitterFraction is the symmetric jitter applied to every computed delay.
const JitterFraction = 0.25

// Options configures Do.
type Options struct {
	// MaxRetries is the total number of attempts, including the first one.
	MaxRetries int
	// InitialDelay is the unjittered delay after the first failed attempt.
	InitialDelay time.Duration
	// BackoffMultiplier scales the delay after each failed attempt.
	BackoffMultiplier float64
	// MaxDelay caps the unjittered delay.
	MaxDelay time.Duration
	// IsRetryable classifies failures. Defaults to DefaultIsRetryable.
	IsRetryable func(error) bool
	// OnRetry is called before sleeping, with the 1-based attempt that failed.
	OnRetry func(err error, attempt int, delay time.Duration)

	// Clock provides the inter-attempt timer. Defaults to the real clock.
	Clock clock.Clock
	// Rand returns a uniform value in [0, 1). Defaults to math/rand/v2.
	Rand func() float64
}

// DefaultOptions returns 3 attempts starting at 1s, doubling, capped at 30s.
func DefaultOptions() Options {
	return Options{
		MaxRetries:        3,
		InitialDelay:      time.Second,
		BackoffMultiplier: 2,
		MaxDelay:          30 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxRetries <= 0 {
		o.MaxRetries = d.MaxRetries
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = d.InitialDelay
	}
	if o.BackoffMultiplier <= 0 {
		o.BackoffMultiplier = d.BackoffMultiplier
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = d.MaxDelay
	}
	if o.IsRetryable == nil {
		o.IsRetryable = DefaultIsRetryable
	}
	if o.Clock == nil {
		o.Clock = clock.RealClock{}
	}
	if o.Rand == nil {
		o.Rand = rand.Float64
	}
	return o
}

// Backoff returns the unjittered delay after the given failed attempt:
// min(InitialDelay * BackoffMultiplier^(attempt-1), MaxDelay).
func Backoff(attempt int, o Options) time.Duration {
	o = o.withDefaults()
	if attempt < 1 {
		attempt = 1
	}
	d := float64(o.InitialDelay) * math.Pow(o.BackoffMultiplier, float64(attempt-1))
	if d >= float64(o.MaxDelay) || math.IsInf(d, 0) || math.IsNaN(d) {
		return o.MaxDelay
	}
	return time.Duration(d)
}

// Jitter spreads base uniformly over [base-25%, base+25%) using r in [0, 1).
func Jitter(base time.Duration, r float64) time.Duration {
	spread := float64(base) * JitterFraction * (2*r - 1)
	d := time.Duration(float64(base) + spread)
	if d < 0 {
		return 0
	}
	return d
}

// Do runs op until it succeeds, fails with an error IsRetryable rejects, or
// MaxRetries attempts have been made. The final error is returned as is.
// Attempts never overlap. Cancelling ctx during a delay returns ctx.Err().
func Do[T any](ctx context.Context, op func(context.Context) (T, error), opts Options) (T, error) {
	o := opts.withDefaults()
	var zero T

	for attempt := 1; ; attempt++ {
		res, err := op(ctx)
		if err == nil {
			return res, nil
		}
		if attempt >= o.MaxRetries || !o.IsRetryable(err) {
			return zero, err
		}

		delay := Jitter(Backoff(attempt, o), o.Rand())
		if o.OnRetry != nil {
			o.OnRetry(err, attempt, delay)
		}

		timer := o.Clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C():
		}
	}
}

// Wrap returns fn with Do applied to every call.
func Wrap[A, T any](fn func(context.Context, A) (T, error), opts Options) func(context.Context, A) (T, error) {
	return func(ctx context.Context, arg A) (T, error) {
		return Do(ctx, func(ctx context.Context) (T, error) {
			return fn(ctx, arg)
		}, opts)
	}
}

// WrapErr is Wrap for functions that only return an error.
func WrapErr[A any](fn func(context.Context, A) error, opts Options) func(context.Context, A) error {
	wrapped := Wrap(func(ctx context.Context, arg A) (struct{}, error) {
		return struct{}{}, fn(ctx, arg)
	}, opts)
	return func(ctx context.Context, arg A) error {
		_, err := wrapped(ctx, arg)
		return err
	}
}
