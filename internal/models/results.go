// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package models

import (
	"time"
)

// ItemMetadata is the scalar metadata returned alongside search hits.
type ItemMetadata struct {
	Title        string    `json:"title"`
	Category     string    `json:"category,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	PublishedAt  time.Time `json:"published_at,omitempty"`
	ViewCount    int64     `json:"view_count"`
	QualityScore float64   `json:"quality_score"`
}

// SimilarityResult is a read-only projection produced per query.
type SimilarityResult struct {
	ExternalID string        `json:"external_id"`
	Platform   string        `json:"platform"`
	Similarity float64       `json:"similarity"`
	Metadata   *ItemMetadata `json:"metadata,omitempty"`

	// Populated by hybrid search only.
	SemanticScore float64 `json:"semantic_score,omitempty"`
	LexicalScore  float64 `json:"lexical_score,omitempty"`
}

// Key returns the composite identity of the hit.
func (r *SimilarityResult) Key() string {
	return ItemKey(r.Platform, r.ExternalID)
}

// ScoreBreakdown explains how a recommendation's final score was assembled.
type ScoreBreakdown struct {
	ContentSimilarity float64 `json:"content_similarity"`
	Popularity        float64 `json:"popularity"`
	Recency           float64 `json:"recency"`
	Personalized      float64 `json:"personalized"`
	DiversityBonus    float64 `json:"diversity_bonus"`
}

// ScoredRecommendation is a recommendation candidate after scoring and
// diversity filtering.
type ScoredRecommendation struct {
	SimilarityResult
	Breakdown  ScoreBreakdown `json:"breakdown"`
	FinalScore float64        `json:"final_score"`
}

// UserPreference is the learned taste vector of a single user.
type UserPreference struct {
	UserID           string    `json:"user_id"`
	Embedding        []float32 `json:"embedding"`
	Confidence       float64   `json:"confidence"`
	InteractionCount int       `json:"interaction_count"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// InteractionAction is the kind of feedback a user gave on an item.
type InteractionAction string

const (
	ActionLike    InteractionAction = "like"
	ActionShare   InteractionAction = "share"
	ActionWatch   InteractionAction = "watch"
	ActionSkip    InteractionAction = "skip"
	ActionDislike InteractionAction = "dislike"
)

// Interaction is a single user event used to update preferences.
type Interaction struct {
	UserID        string            `json:"user_id" validate:"required,max=256"`
	ExternalID    string            `json:"external_id" validate:"required,max=256"`
	Platform      string            `json:"platform" validate:"required,platform"`
	Action        InteractionAction `json:"action" validate:"required,oneof=like share watch skip dislike"`
	WatchFraction float64           `json:"watch_fraction" validate:"gte=0,lte=1"`
	OccurredAt    time.Time         `json:"occurred_at,omitempty"`
}
