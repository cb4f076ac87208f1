// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vectorcast/internal/cache"
	"github.com/tomtom215/vectorcast/internal/jobqueue"
	"github.com/tomtom215/vectorcast/internal/logging"
	"github.com/tomtom215/vectorcast/internal/models"
	"github.com/tomtom215/vectorcast/internal/search"
	"github.com/tomtom215/vectorcast/internal/vectorstore"
)

// requestTimeout bounds search and recommendation handlers.
const requestTimeout = 10 * time.Second

// JobService is the job queue surface used by the admin API.
type JobService interface {
	Enqueue(ctx context.Context, jobType jobqueue.JobType, payload interface{}, priority, maxRetries int) (string, error)
	GetJob(ctx context.Context, id string) (*jobqueue.Job, error)
	ListJobs(ctx context.Context, status jobqueue.Status, limit int) ([]*jobqueue.Job, error)
	Cancel(ctx context.Context, id string) (bool, error)
	QueueStats(ctx context.Context) (*jobqueue.Stats, error)
}

// SearchService is the search engine surface used by the admin API.
type SearchService interface {
	SearchByContent(ctx context.Context, text string, opts search.SearchOptions) ([]models.SimilarityResult, error)
	SearchPersonalized(ctx context.Context, text, userID string, opts search.SearchOptions) ([]models.SimilarityResult, error)
	GenerateRecommendations(ctx context.Context, opts search.RecommendOptions) ([]models.ScoredRecommendation, error)
	UpdateUserPreferences(ctx context.Context, in models.Interaction) (*models.UserPreference, error)
	GetPreference(ctx context.Context, userID string) (*models.UserPreference, error)
	TuneSimilarityThresholds(feedback []search.Feedback) (*search.ThresholdResult, error)
	DefaultThreshold() float64
	SetDefaultThreshold(t float64) error
}

// StoreStatus reports vector store health and processing counts.
type StoreStatus interface {
	Stats(ctx context.Context) (*vectorstore.Stats, error)
	Ping(ctx context.Context) error
}

// CacheAdmin exposes cache statistics and flushing.
type CacheAdmin interface {
	Stats() cache.Stats
	Flush(ctx context.Context)
}

// Handler serves the admin HTTP API.
type Handler struct {
	jobs      JobService
	search    SearchService
	store     StoreStatus
	cache     CacheAdmin
	logger    zerolog.Logger
	startTime time.Time
}

// NewHandler creates a Handler. cache may be nil when caching is disabled.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(jobs JobService, searcher SearchService, store StoreStatus, c CacheAdmin, logger zerolog.Logger) *Handler {
	return &Handler{
		jobs:      jobs,
		search:    searcher,
		store:     store,
		cache:     c,
		logger:    logger.With().Str("component", "api").Logger(),
		startTime: time.Now(),
	}
}

// log returns the handler logger tagged with the request's correlation ID.
func (h *Handler) log(r *http.Request) *zerolog.Logger {
	l := logging.With(r.Context(), h.logger)
	return &l
}
