// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/vectorcast/internal/cache"
)

// StoreStats returns per-status embedding counts.
//
// Method: GET
// Path: /api/v1/store/stats
func (h *Handler) StoreStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	stats, err := h.store.Stats(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, stats, start)
}

// CacheStats returns per-namespace cache counters. A disabled cache reports
// empty stats.
//
// Method: GET
// Path: /api/v1/cache/stats
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.cache == nil {
		respondSuccess(w, http.StatusOK, cache.Stats{Namespaces: map[string]cache.NamespaceStats{}}, start)
		return
	}
	respondSuccess(w, http.StatusOK, h.cache.Stats(), start)
}

// FlushCache clears every cache namespace in both tiers.
//
// Method: DELETE
// Path: /api/v1/cache
func (h *Handler) FlushCache(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.cache != nil {
		h.cache.Flush(r.Context())
		h.log(r).Info().Msg("cache flushed via API")
	}
	respondSuccess(w, http.StatusOK, map[string]bool{"flushed": h.cache != nil}, start)
}
