// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/vectorcast/internal/models"
)

// HealthLive reports that the process is up. It never touches dependencies.
//
// Method: GET
// Path: /healthz
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":          true,
			"uptime_seconds": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// HealthReady reports whether the vector store answers queries.
//
// Method: GET
// Path: /readyz
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := HealthStatus{
		Status:        "ready",
		StoreHealthy:  true,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	if err := h.store.Ping(ctx); err != nil {
		h.log(r).Warn().Err(err).Msg("readiness check failed")
		status.Status = "not_ready"
		status.StoreHealthy = false
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Data:     status,
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error: &models.APIError{
				Code:      ErrCodeNotReady,
				Message:   "vector store unavailable",
				Retryable: true,
			},
		})
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     status,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}
