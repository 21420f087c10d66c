// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ratelimit implements the per-route fixed-window request limiter.

For every (route, client) pair a window record {windowStart, count} is kept in
a [Store]. Each check increments the count, resetting the window first when
it has elapsed, and classifies the request as allowed while the count stays
within the route's budget.

Properties:

  - Fixed window: a burst straddling a boundary may admit up to 2x MaxRequests
    in a short span. This is accepted.
  - Non-blocking: the limiter only classifies; it never delays a request.
  - Explicit config: routes and budgets are handed to [New] once; routes
    without a [Rule] are unlimited.
*/
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Result is the outcome of one [Limiter.Check].
type Result struct {
	// Allowed reports whether the request may proceed.
	Allowed bool
	// Limited is false for routes without a rule; the other fields are then zero.
	Limited bool
	// Limit is the route's MaxRequests.
	Limit int
	// Remaining is max(0, Limit - count). Denied requests report 0.
	Remaining int
	// ResetAt is windowStart + Window.
	ResetAt time.Time
}

// RetryAfter returns how long a denied client should wait, rounded up to a second.
func (result Result) RetryAfter(now time.Time) time.Duration {
	wait := result.ResetAt.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	return (wait + time.Second - 1) / time.Second * time.Second
}

// Store holds window records. Implementations must make the
// reset-then-increment step atomic per key.
type Store interface {
	// Increment returns the post-increment count and the start of the window it
	// belongs to, opening a fresh window when none exists or the previous one has
	// elapsed at now.
	Increment(ctx context.Context, key string, now time.Time, window time.Duration) (count int, windowStart time.Time, err error)
}

// Option customizes a [Limiter].
type Option func(*Limiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(limiter *Limiter) { limiter.now = now }
}

// Limiter classifies requests against per-route [Rules].
// It is safe for concurrent use.
type Limiter struct {
	rules Rules
	store Store
	now   func() time.Time
}

// New builds a limiter. The rules map is copied.
func New(rules Rules, store Store, options ...Option) *Limiter {
	copied := make(Rules, len(rules))
	for route, rule := range rules {
		copied[route] = rule
	}

	limiter := &Limiter{rules: copied, store: store, now: time.Now}
	for _, option := range options {
		option(limiter)
	}
	return limiter
}

// Now exposes the limiter's clock so callers compute Retry-After consistently.
func (limiter *Limiter) Now() time.Time {
	return limiter.now()
}

// Check counts one request from clientKey against route.
//
// The returned error reports a store failure; the caller decides whether to
// fail open. Unlimited routes never touch the store.
func (limiter *Limiter) Check(ctx context.Context, clientKey, route string) (Result, error) {
	rule, ok := limiter.rules[route]
	if !ok {
		return Result{Allowed: true}, nil
	}

	count, windowStart, err := limiter.store.Increment(ctx, Key(route, clientKey), limiter.now(), rule.Window)
	if err != nil {
		decisions.WithLabelValues(route, DecisionError).Inc()
		return Result{Allowed: true}, fmt.Errorf("ratelimit: check %s: %w", route, err)
	}

	result := Result{
		Allowed:   count <= rule.MaxRequests,
		Limited:   true,
		Limit:     rule.MaxRequests,
		Remaining: max(0, rule.MaxRequests-count),
		ResetAt:   windowStart.Add(rule.Window),
	}

	if result.Allowed {
		decisions.WithLabelValues(route, DecisionAllowed).Inc()
	} else {
		decisions.WithLabelValues(route, DecisionDenied).Inc()
	}
	return result, nil
}

// Key builds the store key for a (route, client) pair.
func Key(route, clientKey string) string {
	return route + "|" + clientKey
}
