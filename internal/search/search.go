// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package search

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/vectorcast/internal/cache"
	"github.com/tomtom215/vectorcast/internal/embedding"
	"github.com/tomtom215/vectorcast/internal/metrics"
	"github.com/tomtom215/vectorcast/internal/models"
	"github.com/tomtom215/vectorcast/internal/vectorstore"
)

// keySampleSize is how many leading vector values go into a result cache key.
const keySampleSize = 10

// SearchOptions tune a content or personalized search.
type SearchOptions struct {
	// Limit defaults to Config.DefaultLimit and is capped at MaxLimit.
	Limit int `json:"limit" validate:"gte=0"`
	// Threshold is the minimum similarity; nil uses the engine default.
	Threshold  *float64 `json:"threshold,omitempty" validate:"omitempty,gte=-1,lte=1"`
	Platform   string   `json:"platform,omitempty" validate:"omitempty,platform"`
	Category   string   `json:"category,omitempty" validate:"max=200"`
	ExcludeIDs []string `json:"exclude_ids,omitempty" validate:"max=1000"`

	// Hybrid blends lexical relevance into the ranking.
	Hybrid bool `json:"hybrid"`
	// SemanticWeight is the hybrid blend; nil uses the configured default.
	SemanticWeight *float64 `json:"semantic_weight,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// resolved is SearchOptions with defaults applied; it is also the cache key
// payload, so equal requests share cache entries.
type resolved struct {
	Limit          int      `json:"limit"`
	Threshold      float64  `json:"threshold"`
	Platform       string   `json:"platform"`
	Category       string   `json:"category"`
	ExcludeIDs     []string `json:"exclude"`
	Hybrid         bool     `json:"hybrid"`
	SemanticWeight float64  `json:"semantic_weight"`
}

func (e *Engine) resolve(opts SearchOptions) resolved {
	r := resolved{
		Limit:      e.limit(opts.Limit),
		Threshold:  e.DefaultThreshold(),
		Platform:   opts.Platform,
		Category:   opts.Category,
		ExcludeIDs: opts.ExcludeIDs,
		Hybrid:     opts.Hybrid,
	}
	if opts.Threshold != nil {
		r.Threshold = *opts.Threshold
	}
	if r.Hybrid {
		r.SemanticWeight = e.cfg.SemanticWeight
		if opts.SemanticWeight != nil {
			r.SemanticWeight = *opts.SemanticWeight
		}
	}
	return r
}

// SearchByContent embeds text and returns the most similar items.
func (e *Engine) SearchByContent(ctx context.Context, text string, opts SearchOptions) ([]models.SimilarityResult, error) {
	start := time.Now()
	defer func() { metrics.RecordSearch("content", time.Since(start)) }()

	query, err := e.embedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	return e.searchVector(ctx, query, text, e.resolve(opts))
}

// SearchPersonalized blends the query with the user's preference vector.
// Users without a preference, and a zero personalization weight, get exactly
// SearchByContent.
func (e *Engine) SearchPersonalized(ctx context.Context, text, userID string, opts SearchOptions) ([]models.SimilarityResult, error) {
	w := e.cfg.PersonalizationWeight
	if w == 0 || userID == "" {
		return e.SearchByContent(ctx, text, opts)
	}

	pref, err := e.preference(ctx, userID)
	if errors.Is(err, ErrNoPreference) {
		e.logger.Debug().Str("user_id", userID).Msg("no preference, using content search")
		return e.SearchByContent(ctx, text, opts)
	}
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { metrics.RecordSearch("personalized", time.Since(start)) }()

	query, err := e.embedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	combined, err := embedding.WeightedCombine(query, pref.Embedding, w)
	if err != nil {
		return nil, err
	}

	results, err := e.searchVector(ctx, combined, text, e.resolve(opts))
	if err != nil {
		return nil, err
	}
	return e.boostRecent(results), nil
}

// embedQuery returns the embedding of text, from cache when possible.
func (e *Engine) embedQuery(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("query", "must not be empty")
	}

	key := cache.GenerateKey("query", text)
	if vec, ok := e.cache.GetEmbedding(ctx, key); ok {
		return vec, nil
	}

	res, err := e.provider.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(res.Embeddings) != 1 {
		return nil, &models.ProviderError{
			Code:    models.CodeMalformedResponse,
			Message: "expected one query embedding",
		}
	}
	vec := res.Embeddings[0]
	e.cache.SetEmbedding(ctx, key, vec)
	return vec, nil
}

// searchVector runs a vector (or hybrid) search through the result cache.
func (e *Engine) searchVector(ctx context.Context, query []float32, text string, opts resolved) ([]models.SimilarityResult, error) {
	sample := query
	if len(sample) > keySampleSize {
		sample = sample[:keySampleSize]
	}
	keyParts := []interface{}{"search", sample, opts}
	if opts.Hybrid {
		keyParts = append(keyParts, text)
	}
	key := cache.GenerateKey(keyParts...)

	if cached, ok := e.cache.GetSimilarity(ctx, key); ok {
		return cached, nil
	}

	var results []models.SimilarityResult
	var err error
	if opts.Hybrid {
		results, err = e.store.HybridSearch(ctx, query, text, vectorstore.HybridOptions{
			SemanticWeight: opts.SemanticWeight,
			Limit:          opts.Limit,
			Threshold:      opts.Threshold,
			Platform:       opts.Platform,
			Category:       opts.Category,
			ExcludeIDs:     opts.ExcludeIDs,
		})
	} else {
		results, err = e.store.FindSimilar(ctx, query, vectorstore.FindOptions{
			Limit:      opts.Limit,
			Threshold:  opts.Threshold,
			Platform:   opts.Platform,
			Category:   opts.Category,
			ExcludeIDs: opts.ExcludeIDs,
		})
	}
	if err != nil {
		return nil, err
	}

	e.cache.SetSimilarity(ctx, key, results)
	return results, nil
}

// boostRecent multiplies the similarity of recently published results by
// 1+RecencyBoost, capped at 1, and re-sorts. The input slice is not modified.
func (e *Engine) boostRecent(results []models.SimilarityResult) []models.SimilarityResult {
	out := make([]models.SimilarityResult, len(results))
	copy(out, results)
	if e.cfg.RecencyBoost == 0 || e.cfg.RecencyWindow == 0 {
		return out
	}

	cutoff := e.now().Add(-e.cfg.RecencyWindow)
	for i := range out {
		if m := out[i].Metadata; m != nil && !m.PublishedAt.IsZero() && m.PublishedAt.After(cutoff) {
			out[i].Similarity = math.Min(1, out[i].Similarity*(1+e.cfg.RecencyBoost))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	return out
}
