// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ratelimit

import "github.com/prometheus/client_golang/prometheus"

// Decision labels for the decisions counter.
const (
	DecisionAllowed = "allowed"
	DecisionDenied  = "denied"
	DecisionError   = "error"
)

var decisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gatekeeper_ratelimit_decisions_total",
		Help: "Rate limit decisions by route and outcome",
	},
	[]string{"route", "decision"},
)

var trackedWindows = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "gatekeeper_ratelimit_windows",
		Help: "Window records held by the in-memory store after the last sweep",
	},
)

// RegisterMetrics registers rate limiter metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(decisions)
	reg.MustRegister(trackedWindows)
}
