// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MimiFromParis/agoa-sentinel/internal/middleware"
)

// NewRouter builds the operational HTTP surface.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(15 * time.Second))
	r.Use(middleware.PrometheusMetrics)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", handler.Health)
		r.Get("/live", handler.HealthLive)
		r.Get("/ready", handler.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
