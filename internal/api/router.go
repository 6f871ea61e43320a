// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

// Package api provides HTTP routing for the recommendation service using
// the Chi router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rentrank/rentrank/internal/config"
	"github.com/rentrank/rentrank/internal/middleware"
	"github.com/rentrank/rentrank/internal/recommend"
	"github.com/rentrank/rentrank/internal/store"
)

// NewRouter assembles the full route tree with its middleware stack.
func NewRouter(cfg *config.ServerConfig, engine *recommend.Engine, st *store.Store) http.Handler {
	handler := NewHandler(engine, st)

	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.Limit(
			cfg.RateLimitReqs,
			cfg.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		))
		r.Use(middleware.PrometheusMetrics)

		r.Get("/health", handler.Health)
		r.Get("/health/live", handler.HealthLive)
		r.Get("/health/ready", handler.HealthReady)
		r.Get("/recommendations", handler.Recommendations)
		r.Get("/catalog/options", handler.Options)
		r.Post("/reload", handler.Reload)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
