// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	maxBodyBytes  int64
}

// NewRouter creates a Router. maxBodyBytes <= 0 leaves bodies uncapped.
func NewRouter(handler *Handler, mw *ChiMiddleware, maxBodyBytes int64) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		chiMiddleware: mw,
		maxBodyBytes:  maxBodyBytes,
	}
}

// SetupChi builds the chi router.
//
// Global middleware (all routes):
//   - RequestIDWithLogging: request ID as logging correlation ID
//   - RealIP: client IP from X-Forwarded-For / X-Real-IP
//   - Recoverer: converts panics into 500 responses
//   - CORS: go-chi/cors
//   - Compress: gzip for JSON responses when the client accepts it
//
// /api/v1 additionally gets per-IP rate limiting, Prometheus request metrics
// and a request body cap.
func (r *Router) SetupChi() http.Handler {
	router := chi.NewRouter()

	router.Use(RequestIDWithLogging())
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(r.chiMiddleware.CORS())
	router.Use(chimiddleware.Compress(5, "application/json"))

	router.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	h := r.handler

	router.Get("/healthz", h.HealthLive)
	router.Get("/readyz", h.HealthReady)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(api chi.Router) {
		api.Use(r.chiMiddleware.RateLimit())
		api.Use(PrometheusMetrics)
		if r.maxBodyBytes > 0 {
			api.Use(MaxBodyBytes(r.maxBodyBytes))
		}

		api.Route("/jobs", func(jobs chi.Router) {
			jobs.Post("/", h.CreateJob)
			jobs.Get("/", h.ListJobs)
			jobs.Get("/stats", h.JobStats)
			jobs.Get("/{id}", h.GetJob)
			jobs.Delete("/{id}", h.CancelJob)
		})

		api.Post("/search", h.Search)
		api.Post("/search/personalized", h.SearchPersonalized)
		api.Post("/recommendations", h.Recommend)
		api.Post("/interactions", h.RecordInteraction)
		api.Get("/users/{userID}/preference", h.GetPreference)

		api.Get("/thresholds", h.GetThreshold)
		api.Post("/thresholds/tune", h.TuneThresholds)

		api.Get("/store/stats", h.StoreStats)
		api.Get("/cache/stats", h.CacheStats)
		api.Delete("/cache", h.FlushCache)
	})

	return router
}
