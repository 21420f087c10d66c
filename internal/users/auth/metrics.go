// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for dispatch metrics.
const (
	OutcomeSuccess      = "success"
	OutcomeClientError  = "client_error"
	OutcomeUnauthorized = "unauthorized"
	OutcomeRateLimited  = "rate_limited"
	OutcomeNotFound     = "not_found"
	OutcomeServerError  = "server_error"
)

// DispatchTotal counts dispatched actions by state and outcome.
var DispatchTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gatekeeper_auth_dispatch_total",
		Help: "Total auth actions dispatched",
	},
	[]string{"state", "outcome"},
)

// DispatchDuration observes time spent per dispatched action.
var DispatchDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "gatekeeper_auth_dispatch_duration_seconds",
		Help:    "Auth action duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"state"},
)

// SessionsPurged counts sessions deleted by the janitor.
var SessionsPurged = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "gatekeeper_auth_sessions_purged_total",
		Help: "Expired sessions deleted by the janitor",
	},
)

// RegisterMetrics registers auth metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(DispatchTotal)
	reg.MustRegister(DispatchDuration)
	reg.MustRegister(SessionsPurged)
}

func recordDispatch(state State, status int, elapsed time.Duration) {
	DispatchTotal.WithLabelValues(state.String(), outcomeFor(status)).Inc()
	DispatchDuration.WithLabelValues(state.String()).Observe(elapsed.Seconds())
}

func outcomeFor(status int) string {
	switch {
	case status < 300:
		return OutcomeSuccess
	case status == 401:
		return OutcomeUnauthorized
	case status == 404:
		return OutcomeNotFound
	case status == 429:
		return OutcomeRateLimited
	case status >= 500:
		return OutcomeServerError
	default:
		return OutcomeClientError
	}
}
