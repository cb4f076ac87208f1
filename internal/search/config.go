// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package search

import (
	"errors"
	"fmt"
	"time"
)

// Weights is the relative contribution of each recommendation signal.
// Weights are normalized at scoring time, so they don't need to sum to 1.0.
type Weights struct {
	Similarity   float64 `koanf:"similarity" json:"similarity"`
	Popularity   float64 `koanf:"popularity" json:"popularity"`
	Recency      float64 `koanf:"recency" json:"recency"`
	Personalized float64 `koanf:"personalized" json:"personalized"`
}

// Normalize returns a copy whose weights sum to 1.0. All-zero weights become
// equal weights.
func (w Weights) Normalize() Weights {
	sum := w.Similarity + w.Popularity + w.Recency + w.Personalized
	if sum == 0 {
		return Weights{Similarity: 0.25, Popularity: 0.25, Recency: 0.25, Personalized: 0.25}
	}
	return Weights{
		Similarity:   w.Similarity / sum,
		Popularity:   w.Popularity / sum,
		Recency:      w.Recency / sum,
		Personalized: w.Personalized / sum,
	}
}

// Config holds search engine settings.
type Config struct {
	// DefaultLimit applies when a request leaves Limit at zero.
	// Default: 10.
	DefaultLimit int `koanf:"default_limit"`

	// MaxLimit caps any requested Limit.
	// Default: 100.
	MaxLimit int `koanf:"max_limit"`

	// DefaultThreshold is the minimum similarity when a request leaves
	// Threshold at zero. TuneSimilarityThresholds can replace it at runtime.
	// Default: 0.5.
	DefaultThreshold float64 `koanf:"default_threshold"`

	// SemanticWeight is the default hybrid search blend.
	// Default: 0.7.
	SemanticWeight float64 `koanf:"semantic_weight"`

	// PersonalizationWeight is w in normalize((1-w)*query + w*preference).
	// Zero makes personalized search identical to content search.
	// Default: 0.3.
	PersonalizationWeight float64 `koanf:"personalization_weight"`

	// RecencyWindow and RecencyBoost: personalized results published within
	// the window have their similarity multiplied by 1+RecencyBoost, capped at 1.
	// Default: 7 days, 0.1.
	RecencyWindow time.Duration `koanf:"recency_window"`
	RecencyBoost  float64       `koanf:"recency_boost"`

	// Weights for recommendation scoring.
	// Default: similarity 0.4, popularity 0.2, recency 0.2, personalized 0.2.
	Weights Weights `koanf:"weights"`

	// CandidateMultiplier sizes the candidate pool as Limit*CandidateMultiplier.
	// Default: 3.
	CandidateMultiplier int `koanf:"candidate_multiplier"`

	// RecommendThreshold is the minimum preference similarity of a candidate.
	// Default: 0.
	RecommendThreshold float64 `koanf:"recommend_threshold"`

	// RecencyHalfLife controls the recency signal: an item this old scores 0.5.
	// Default: 30 days.
	RecencyHalfLife time.Duration `koanf:"recency_half_life"`

	// PopularWindow bounds the fallback to items published this recently.
	// Zero disables the bound.
	// Default: 30 days.
	PopularWindow time.Duration `koanf:"popular_window"`

	// DiversityFactor is the default probability of rejecting a candidate
	// whose category was already kept.
	// Default: 0.3.
	DiversityFactor float64 `koanf:"diversity_factor"`

	// DiversityBonus is added to the score of candidates that introduce an
	// unseen category or tag.
	// Default: 0.05.
	DiversityBonus float64 `koanf:"diversity_bonus"`

	// MinDiverseCount admits seen-category candidates unconditionally while
	// fewer than this many items are kept.
	// Default: 3.
	MinDiverseCount int `koanf:"min_diverse_count"`

	// LearningRate scales how far one interaction moves the preference.
	// Default: 0.1.
	LearningRate float64 `koanf:"learning_rate"`

	// ConfidenceStep is the confidence gained per unit of |weight|.
	// Default: 0.05.
	ConfidenceStep float64 `koanf:"confidence_step"`

	// PreferenceCacheSize is the number of preference vectors kept in memory.
	// Default: 10000.
	PreferenceCacheSize int `koanf:"preference_cache_size"`

	// Seed is the random seed for the diversity filter. If zero, a fixed
	// default seed is used.
	Seed int64 `koanf:"seed"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:          10,
		MaxLimit:              100,
		DefaultThreshold:      0.5,
		SemanticWeight:        0.7,
		PersonalizationWeight: 0.3,
		RecencyWindow:         7 * 24 * time.Hour,
		RecencyBoost:          0.1,
		Weights: Weights{
			Similarity:   0.4,
			Popularity:   0.2,
			Recency:      0.2,
			Personalized: 0.2,
		},
		CandidateMultiplier: 3,
		RecencyHalfLife:     30 * 24 * time.Hour,
		PopularWindow:       30 * 24 * time.Hour,
		DiversityFactor:     0.3,
		DiversityBonus:      0.05,
		MinDiverseCount:     3,
		LearningRate:        0.1,
		ConfidenceStep:      0.05,
		PreferenceCacheSize: 10000,
	}
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

// Validate checks the search configuration.
func (c *Config) Validate() error {
	if c.DefaultLimit < 1 || c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("search limits invalid: default=%d max=%d", c.DefaultLimit, c.MaxLimit)
	}
	if c.DefaultThreshold < -1 || c.DefaultThreshold > 1 || c.RecommendThreshold < -1 || c.RecommendThreshold > 1 {
		return errors.New("search thresholds must be within [-1, 1]")
	}
	if !inUnit(c.SemanticWeight) || !inUnit(c.PersonalizationWeight) || !inUnit(c.DiversityFactor) {
		return errors.New("search semantic_weight, personalization_weight and diversity_factor must be within [0, 1]")
	}
	if c.RecencyWindow < 0 || c.RecencyBoost < 0 || c.PopularWindow < 0 {
		return errors.New("search recency settings must not be negative")
	}
	if c.RecencyHalfLife <= 0 {
		return errors.New("search recency_half_life must be positive")
	}
	w := c.Weights
	if w.Similarity < 0 || w.Popularity < 0 || w.Recency < 0 || w.Personalized < 0 {
		return errors.New("search weights must not be negative")
	}
	if c.CandidateMultiplier < 1 {
		return errors.New("search candidate_multiplier must be at least 1")
	}
	if c.DiversityBonus < 0 || c.MinDiverseCount < 0 {
		return errors.New("search diversity_bonus and min_diverse_count must not be negative")
	}
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return errors.New("search learning_rate must be within (0, 1]")
	}
	if c.ConfidenceStep <= 0 || c.ConfidenceStep > 1 {
		return errors.New("search confidence_step must be within (0, 1]")
	}
	if c.PreferenceCacheSize < 1 {
		return errors.New("search preference_cache_size must be at least 1")
	}
	return nil
}
