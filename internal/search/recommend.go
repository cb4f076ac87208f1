// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package search

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/tomtom215/vectorcast/internal/metrics"
	"github.com/tomtom215/vectorcast/internal/models"
	"github.com/tomtom215/vectorcast/internal/vectorstore"
)

// RecommendOptions describe a recommendation request.
type RecommendOptions struct {
	UserID   string `json:"user_id" validate:"required,max=256"`
	Limit    int    `json:"limit" validate:"gte=0"`
	Category string `json:"category,omitempty" validate:"max=200"`
	Platform string `json:"platform,omitempty" validate:"omitempty,platform"`
	// DiversityFactor overrides the configured factor when set.
	DiversityFactor *float64 `json:"diversity_factor,omitempty" validate:"omitempty,gte=0,lte=1"`
	ExcludeIDs      []string `json:"exclude_ids,omitempty" validate:"max=1000"`
}

// GenerateRecommendations returns up to Limit items for the user, scored
// and diversity filtered. Users without a preference vector get the most
// popular recent items.
func (e *Engine) GenerateRecommendations(ctx context.Context, opts RecommendOptions) ([]models.ScoredRecommendation, error) {
	start := time.Now()
	defer func() { metrics.RecordSearch("recommend", time.Since(start)) }()

	if opts.UserID == "" {
		return nil, models.NewValidationError("user_id", "required")
	}
	limit := e.limit(opts.Limit)
	factor := e.cfg.DiversityFactor
	if opts.DiversityFactor != nil {
		factor = *opts.DiversityFactor
	}

	pref, err := e.preference(ctx, opts.UserID)
	if errors.Is(err, ErrNoPreference) {
		return e.popularFallback(ctx, opts, limit, factor)
	}
	if err != nil {
		return nil, err
	}

	candidates, err := e.store.FindSimilar(ctx, pref.Embedding, vectorstore.FindOptions{
		Limit:      limit * e.cfg.CandidateMultiplier,
		Threshold:  e.cfg.RecommendThreshold,
		Platform:   opts.Platform,
		Category:   opts.Category,
		ExcludeIDs: opts.ExcludeIDs,
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		e.logger.Debug().Str("user_id", opts.UserID).Msg("no similar candidates, using popular items")
		return e.popularFallback(ctx, opts, limit, factor)
	}

	scored := e.score(candidates, e.cfg.Weights.Normalize(), pref.Confidence)
	return e.diversify(scored, limit, factor), nil
}

// popularFallback recommends popular recent items scored on popularity and
// recency only.
func (e *Engine) popularFallback(ctx context.Context, opts RecommendOptions, limit int, factor float64) ([]models.ScoredRecommendation, error) {
	popts := vectorstore.PopularOptions{
		Limit:      limit * e.cfg.CandidateMultiplier,
		Platform:   opts.Platform,
		Category:   opts.Category,
		ExcludeIDs: opts.ExcludeIDs,
	}
	if e.cfg.PopularWindow > 0 {
		popts.Since = e.now().Add(-e.cfg.PopularWindow)
	}

	candidates, err := e.store.Popular(ctx, popts)
	if err != nil {
		return nil, err
	}

	weights := Weights{Popularity: e.cfg.Weights.Popularity, Recency: e.cfg.Weights.Recency}
	if weights.Popularity == 0 && weights.Recency == 0 {
		weights = Weights{Popularity: 1, Recency: 1}
	}
	scored := e.score(candidates, weights.Normalize(), 0)
	return e.diversify(scored, limit, factor), nil
}

// score computes the weighted score of each candidate. w must be normalized.
// Personalized affinity is the candidate's similarity to the preference
// vector scaled by the preference confidence.
func (e *Engine) score(candidates []models.SimilarityResult, w Weights, confidence float64) []models.ScoredRecommendation {
	var maxViews int64
	for i := range candidates {
		if m := candidates[i].Metadata; m != nil && m.ViewCount > maxViews {
			maxViews = m.ViewCount
		}
	}

	now := e.now()
	out := make([]models.ScoredRecommendation, len(candidates))
	for i, c := range candidates {
		b := models.ScoreBreakdown{
			ContentSimilarity: clamp01(c.Similarity),
			Personalized:      clamp01(c.Similarity) * confidence,
		}
		if m := c.Metadata; m != nil {
			b.Popularity = popularity(m.ViewCount, maxViews)
			b.Recency = e.recency(m.PublishedAt, now)
		}
		out[i] = models.ScoredRecommendation{
			SimilarityResult: c,
			Breakdown:        b,
			FinalScore: w.Similarity*b.ContentSimilarity +
				w.Popularity*b.Popularity +
				w.Recency*b.Recency +
				w.Personalized*b.Personalized,
		}
	}
	return out
}

// popularity is log-scaled views relative to the most viewed candidate.
func popularity(views, maxViews int64) float64 {
	if views <= 0 || maxViews <= 0 {
		return 0
	}
	return math.Log1p(float64(views)) / math.Log1p(float64(maxViews))
}

// recency halves every RecencyHalfLife. Unknown or future dates score 0 and
// 1 respectively.
func (e *Engine) recency(published, now time.Time) float64 {
	if published.IsZero() {
		return 0
	}
	age := now.Sub(published)
	if age <= 0 {
		return 1
	}
	return math.Pow(0.5, float64(age)/float64(e.cfg.RecencyHalfLife))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
