// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shelfwise/shelfwise/internal/config"
	"github.com/shelfwise/shelfwise/internal/metrics"
)

// NewRouter assembles the HTTP routes and middleware stack.
func NewRouter(h *Handlers, cfg *config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(promMiddleware)

	// Unlimited: probes and scrapers.
	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))

		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/book/{bookID}", h.BookRecommendations)
			r.Get("/user/{userID}", h.UserRecommendations)
		})

		r.Route("/search", func(r chi.Router) {
			r.Get("/semantic", h.SemanticSearch)
			r.Get("/similar/{bookID}", h.SimilarBooks)
		})

		r.Route("/forecasts", func(r chi.Router) {
			r.Get("/book/{bookID}", h.BookForecast)
			r.Get("/top", h.TopForecasts)
		})

		r.Get("/intelligence/status", h.IntelligenceStatus)

		// Rebuilds are expensive; keep the admin group on a tighter budget.
		r.Route("/admin", func(r chi.Router) {
			r.Use(httprate.LimitByIP(10, time.Minute))
			r.Post("/rebuild", h.Rebuild)
		})
	})

	return r
}

// promMiddleware records request counts and latency per route pattern.
// Patterns like /api/v1/search/similar/{bookID} keep cardinality bounded.
func promMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.APIRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(ww.Status())).Inc()
		metrics.APIRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}
