// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

// Package metrics exposes Prometheus collectors for Shelfwise.
//
// Instrumented areas:
//   - Model builds (duration, outcomes, readiness) per component
//   - Query traffic against the intelligence components
//   - Embedding provider calls
//   - HTTP API latency and throughput
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Model lifecycle metrics. The component label is one of
	// "recommender", "search", "predictor".
	ModelBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_build_duration_seconds",
			Help:    "Duration of model builds in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"component"},
	)

	ModelBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_builds_total",
			Help: "Total number of model build attempts",
		},
		[]string{"component", "outcome"}, // "success", "insufficient_data", "error"
	)

	ModelReady = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "model_ready",
			Help: "Per-component readiness flag (1 = ready)",
		},
		[]string{"component"},
	)

	ModelArtifactLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_artifact_loads_total",
			Help: "Total number of artifact load attempts",
		},
		[]string{"component", "outcome"}, // "success", "absent", "corrupt"
	)

	// Query metrics.
	IntelligenceQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelligence_queries_total",
			Help: "Total number of intelligence queries",
		},
		[]string{"operation", "outcome"}, // outcome: "ok", "not_ready", "empty", "error"
	)

	// Embedding provider metrics.
	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_requests_total",
			Help: "Total number of embedding provider calls",
		},
		[]string{"provider", "outcome"}, // "ok", "error", "breaker_open"
	)

	EmbeddingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "embedding_request_duration_seconds",
			Help:    "Embedding provider call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HTTP API metrics.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// ObserveBuild records a completed build attempt for a component.
func ObserveBuild(component, outcome string, start time.Time) {
	ModelBuilds.WithLabelValues(component, outcome).Inc()
	if outcome == "success" {
		ModelBuildDuration.WithLabelValues(component).Observe(time.Since(start).Seconds())
	}
}

// SetReady updates the readiness gauge for a component.
func SetReady(component string, ready bool) {
	v := 0.0
	if ready {
		v = 1.0
	}
	ModelReady.WithLabelValues(component).Set(v)
}
