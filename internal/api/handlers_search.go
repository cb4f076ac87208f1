// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/vectorcast/internal/models"
	"github.com/tomtom215/vectorcast/internal/search"
)

// Search runs a content similarity search.
//
// Method: POST
// Path: /api/v1/search
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req SearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	results, err := h.search.SearchByContent(ctx, req.Query, req.SearchOptions)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if results == nil {
		results = []models.SimilarityResult{}
	}
	respondSuccess(w, http.StatusOK, results, start)
}

// SearchPersonalized runs a content search blended with the user's
// preference vector.
//
// Method: POST
// Path: /api/v1/search/personalized
func (h *Handler) SearchPersonalized(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req PersonalizedSearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	results, err := h.search.SearchPersonalized(ctx, req.Query, req.UserID, req.SearchOptions)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if results == nil {
		results = []models.SimilarityResult{}
	}
	respondSuccess(w, http.StatusOK, results, start)
}

// Recommend generates scored, diversity-filtered recommendations.
//
// Method: POST
// Path: /api/v1/recommendations
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var opts search.RecommendOptions
	if !decodeJSON(w, r, &opts) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	recs, err := h.search.GenerateRecommendations(ctx, opts)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if recs == nil {
		recs = []models.ScoredRecommendation{}
	}
	respondSuccess(w, http.StatusOK, recs, start)
}

// RecordInteraction updates the user's preference vector from one event.
// A negative first interaction creates no preference and returns null data.
//
// Method: POST
// Path: /api/v1/interactions
func (h *Handler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var in models.Interaction
	if !decodeJSON(w, r, &in) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	pref, err := h.search.UpdateUserPreferences(ctx, in)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, pref, start)
}

// GetPreference returns a user's preference vector.
//
// Method: GET
// Path: /api/v1/users/{userID}/preference
func (h *Handler) GetPreference(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	pref, err := h.search.GetPreference(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, pref, start)
}

// TuneThresholds picks the similarity threshold with the best F1 over the
// supplied feedback and optionally makes it the engine default.
//
// Method: POST
// Path: /api/v1/thresholds/tune
func (h *Handler) TuneThresholds(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req TuneRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.search.TuneSimilarityThresholds(req.Feedback)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := TuneResponse{ThresholdResult: result}
	if req.Apply {
		if err := h.search.SetDefaultThreshold(result.Threshold); err != nil {
			respondDomainError(w, r, err)
			return
		}
		resp.Applied = true
		h.log(r).Info().Float64("threshold", result.Threshold).Float64("f1", result.F1).Msg("default similarity threshold updated")
	}
	respondSuccess(w, http.StatusOK, resp, start)
}

// GetThreshold returns the engine's current default similarity threshold.
//
// Method: GET
// Path: /api/v1/thresholds
func (h *Handler) GetThreshold(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]float64{"threshold": h.search.DefaultThreshold()}, time.Now())
}
