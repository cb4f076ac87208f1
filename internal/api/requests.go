// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package api

import (
	"github.com/goccy/go-json"

	"github.com/tomtom215/vectorcast/internal/search"
)

// CreateJobRequest submits a job to the queue.
type CreateJobRequest struct {
	Type     string          `json:"type" validate:"required,oneof=embedding_batch incremental_update maintenance"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Priority int             `json:"priority" validate:"gte=-100,lte=100"`
	// MaxRetries nil uses the queue default.
	MaxRetries *int `json:"max_retries,omitempty" validate:"omitempty,gte=0,lte=20"`
}

// CreateJobResponse is returned after a successful enqueue.
type CreateJobResponse struct {
	JobID string `json:"job_id"`
}

// CancelJobResponse reports whether a cancel took effect.
type CancelJobResponse struct {
	JobID     string `json:"job_id"`
	Cancelled bool   `json:"cancelled"`
}

// SearchRequest is a content search.
type SearchRequest struct {
	Query string `json:"query" validate:"required,notblank,max=10000"`
	search.SearchOptions
}

// PersonalizedSearchRequest is a content search blended with a user's
// preference vector.
type PersonalizedSearchRequest struct {
	UserID string `json:"user_id" validate:"required,max=256"`
	SearchRequest
}

// TuneRequest carries labeled similarity feedback.
type TuneRequest struct {
	Feedback []search.Feedback `json:"feedback" validate:"required,min=1,max=100000,dive"`
	// Apply sets the tuned threshold as the engine default.
	Apply bool `json:"apply"`
}

// TuneResponse is the tuning outcome.
type TuneResponse struct {
	*search.ThresholdResult
	Applied bool `json:"applied"`
}

// HealthStatus is returned by the readiness endpoint.
type HealthStatus struct {
	Status        string  `json:"status"`
	StoreHealthy  bool    `json:"store_healthy"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}
