// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package search

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vectorcast/internal/embedding"
	"github.com/tomtom215/vectorcast/internal/models"
	"github.com/tomtom215/vectorcast/internal/vectorstore"
)

// ErrNoPreference is returned when a user has no learned preference vector.
var ErrNoPreference = errors.New("no preference for user")

// Store is the part of the vector store the engine reads and writes.
type Store interface {
	FindSimilar(ctx context.Context, query []float32, opts vectorstore.FindOptions) ([]models.SimilarityResult, error)
	HybridSearch(ctx context.Context, query []float32, text string, opts vectorstore.HybridOptions) ([]models.SimilarityResult, error)
	Popular(ctx context.Context, opts vectorstore.PopularOptions) ([]models.SimilarityResult, error)
	Get(ctx context.Context, externalID, platform string) (*vectorstore.Record, error)
	GetPreference(ctx context.Context, userID string) (*models.UserPreference, error)
	SavePreference(ctx context.Context, pref *models.UserPreference) error
}

// Cache is the part of the embedding cache the engine uses.
type Cache interface {
	GetEmbedding(ctx context.Context, key string) ([]float32, bool)
	SetEmbedding(ctx context.Context, key string, vec []float32)
	GetSimilarity(ctx context.Context, key string) ([]models.SimilarityResult, bool)
	SetSimilarity(ctx context.Context, key string, results []models.SimilarityResult)
}

// noCache is used when the engine is built without a cache.
type noCache struct{}

func (noCache) GetEmbedding(context.Context, string) ([]float32, bool) { return nil, false }
func (noCache) SetEmbedding(context.Context, string, []float32)       {}
func (noCache) GetSimilarity(context.Context, string) ([]models.SimilarityResult, bool) {
	return nil, false
}
func (noCache) SetSimilarity(context.Context, string, []models.SimilarityResult) {}

// Engine serves searches and recommendations. It is safe for concurrent use.
type Engine struct {
	cfg      Config
	provider embedding.Provider
	store    Store
	cache    Cache
	logger   zerolog.Logger
	now      func() time.Time

	prefs *lru.Cache[string, *models.UserPreference]

	// prefMu serializes preference read-modify-write per engine.
	prefMu sync.Mutex

	thresholdMu sync.RWMutex
	threshold   float64

	// Random source for the diversity filter (protected by rngMu).
	rng   *rand.Rand
	rngMu sync.Mutex
}

// New creates an Engine. cache may be nil.
func New(cfg Config, provider embedding.Provider, store Store, cache Cache, logger zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search config: %w", err)
	}
	if provider == nil || store == nil {
		return nil, errors.New("search engine requires a provider and a store")
	}
	if cache == nil {
		cache = noCache{}
	}

	prefs, err := lru.New[string, *models.UserPreference](cfg.PreferenceCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create preference cache: %w", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = 42
	}

	return &Engine{
		cfg:       cfg,
		provider:  provider,
		store:     store,
		cache:     cache,
		logger:    logger.With().Str("component", "search").Logger(),
		now:       time.Now,
		prefs:     prefs,
		threshold: cfg.DefaultThreshold,
		rng:       rand.New(rand.NewSource(seed)), //nolint:gosec // math/rand is fine for diversity sampling
	}, nil
}

// DefaultThreshold returns the similarity threshold applied when a request
// does not set one.
func (e *Engine) DefaultThreshold() float64 {
	e.thresholdMu.RLock()
	defer e.thresholdMu.RUnlock()
	return e.threshold
}

// SetDefaultThreshold replaces the default similarity threshold.
func (e *Engine) SetDefaultThreshold(t float64) error {
	if t < -1 || t > 1 {
		return models.NewValidationError("threshold", "%g outside [-1, 1]", t)
	}
	e.thresholdMu.Lock()
	e.threshold = t
	e.thresholdMu.Unlock()
	e.logger.Info().Float64("threshold", t).Msg("default similarity threshold updated")
	return nil
}

func (e *Engine) chance() float64 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Float64()
}

// limit applies the default and the cap to a requested limit.
func (e *Engine) limit(requested int) int {
	switch {
	case requested <= 0:
		return e.cfg.DefaultLimit
	case requested > e.cfg.MaxLimit:
		return e.cfg.MaxLimit
	default:
		return requested
	}
}

// preference returns the user's preference vector, or ErrNoPreference.
func (e *Engine) preference(ctx context.Context, userID string) (*models.UserPreference, error) {
	if pref, ok := e.prefs.Get(userID); ok {
		return pref, nil
	}
	pref, err := e.store.GetPreference(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w %s", ErrNoPreference, userID)
	}
	if err != nil {
		return nil, err
	}
	e.prefs.Add(userID, pref)
	return pref, nil
}

// GetPreference returns a copy of the user's preference vector.
func (e *Engine) GetPreference(ctx context.Context, userID string) (*models.UserPreference, error) {
	pref, err := e.preference(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := *pref
	out.Embedding = append([]float32(nil), pref.Embedding...)
	return &out, nil
}
