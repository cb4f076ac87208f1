// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/vectorcast/internal/jobqueue"
)

const (
	defaultJobListLimit = 50
	maxJobListLimit     = 1000
)

// CreateJob enqueues a job.
//
// Method: POST
// Path: /api/v1/jobs
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req CreateJobRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	maxRetries := -1
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}

	var payload interface{}
	if len(req.Payload) > 0 && string(req.Payload) != "null" {
		payload = req.Payload
	}

	id, err := h.jobs.Enqueue(r.Context(), jobqueue.JobType(req.Type), payload, req.Priority, maxRetries)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	h.log(r).Info().Str("job_id", id).Str("type", sanitizeLogValue(req.Type)).Msg("job submitted via API")
	respondSuccess(w, http.StatusAccepted, CreateJobResponse{JobID: id}, start)
}

// GetJob returns a job by ID.
//
// Method: GET
// Path: /api/v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	job, err := h.jobs.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, job, start)
}

// ListJobs lists jobs, newest first.
//
// Method: GET
// Path: /api/v1/jobs
//
// Query Parameters:
//   - status: optional job status filter (PENDING, RUNNING, ...)
//   - limit: maximum jobs returned (default 50, max 1000)
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	status := jobqueue.Status(r.URL.Query().Get("status"))
	if status != "" && !validStatus(status) {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "unknown status "+sanitizeLogValue(string(status)))
		return
	}

	limit := getIntParam(r, "limit", defaultJobListLimit)
	if limit < 1 || limit > maxJobListLimit {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "limit must be between 1 and 1000")
		return
	}

	jobs, err := h.jobs.ListJobs(r.Context(), status, limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []*jobqueue.Job{}
	}
	respondSuccess(w, http.StatusOK, jobs, start)
}

// CancelJob cancels a PENDING job. Jobs in other states are reported with
// cancelled=false and a 409.
//
// Method: DELETE
// Path: /api/v1/jobs/{id}
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")

	ok, err := h.jobs.Cancel(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if !ok {
		respondError(w, http.StatusConflict, ErrCodeInvalidState, "only pending jobs can be cancelled")
		return
	}
	respondSuccess(w, http.StatusOK, CancelJobResponse{JobID: id, Cancelled: true}, start)
}

// JobStats returns queue counters.
//
// Method: GET
// Path: /api/v1/jobs/stats
func (h *Handler) JobStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	stats, err := h.jobs.QueueStats(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, stats, start)
}

func validStatus(s jobqueue.Status) bool {
	switch s {
	case jobqueue.StatusPending, jobqueue.StatusRunning, jobqueue.StatusRetrying,
		jobqueue.StatusCompleted, jobqueue.StatusFailed, jobqueue.StatusCancelled:
		return true
	}
	return false
}
