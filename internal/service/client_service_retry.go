// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lzhahn/CountMe-sub003/internal/adapter"
	"github.com/lzhahn/CountMe-sub003/internal/config"
	"github.com/lzhahn/CountMe-sub003/internal/store"
	"github.com/sethvargo/go-retry"
)

// RetryPolicy decides whether a failed remote call is retried and how long to
// wait before the next attempt.
type RetryPolicy struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// MaxAttempts counts every call, the first one included.
	MaxAttempts int
}

// NewRetryPolicy builds a policy from sync settings, falling back to the
// defaults for unset values.
func NewRetryPolicy(cfg config.ClientSync) RetryPolicy {
	p := RetryPolicy{
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
		MaxAttempts: cfg.RetryMaxAttempts,
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = config.DefaultRetryBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = config.DefaultRetryMaxDelay
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = config.DefaultRetryMaxAttempts
	}
	return p
}

// Delay returns the wait before retry n (1-indexed): BaseDelay doubled n-1
// times, never above MaxDelay.
func (p RetryPolicy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}

	d := p.BaseDelay
	for i := 1; i < n; i++ {
		if d >= p.MaxDelay/2 {
			return p.MaxDelay
		}
		d *= 2
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// IsRetryable reports whether err is a transient failure. Cancellation and
// anything unclassified are not retryable.
func (p RetryPolicy) IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled):
		return false
	case adapter.IsTransient(err):
		return true
	case errors.Is(err, store.ErrTemporarilyUnavailable):
		return true
	}
	return false
}

// Do calls fn until it succeeds, fails permanently or runs out of attempts.
// fn itself runs detached from ctx cancellation so a started call is never cut
// off; only the wait between attempts observes ctx, and stopping there wraps
// ErrOperationDeferred. Giving up wraps ErrPermanentFailure.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := 0
	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempts++
		err := fn(context.WithoutCancel(ctx))
		if p.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})

	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return fmt.Errorf("%w after %d attempt(s): %w", ErrOperationDeferred, attempts, err)
	case p.IsRetryable(err):
		return fmt.Errorf("%w: gave up after %d attempt(s): %w", ErrPermanentFailure, attempts, err)
	default:
		return fmt.Errorf("%w: %w", ErrPermanentFailure, err)
	}
}

func (p RetryPolicy) backoff() retry.Backoff {
	retries := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		retries++
		if retries >= p.MaxAttempts {
			return 0, true
		}
		return p.Delay(retries), false
	})
}
