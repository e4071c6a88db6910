// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the chi router: hardened middleware around the
// versioned API, plus the Prometheus scrape endpoint.
func NewRouter(h *Handlers, mw MiddlewareConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID())
	r.Use(SecurityHeaders())
	r.Use(mw.CORS())
	r.Use(PrometheusMetrics())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.RateLimit())

		r.Post("/recommend", h.Recommend)
		r.Post("/validate", h.Validate)
		r.Post("/reload", h.Reload)
		r.Get("/snapshot", h.Snapshot)
		r.Get("/healthz", h.Health)

		r.Route("/users/{userID}/tags", func(r chi.Router) {
			r.Put("/", h.PutUserTags)
			r.Get("/", h.GetUserTags)
			r.Delete("/", h.DeleteUserTags)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("Endpoint not found")
	})

	return r
}
