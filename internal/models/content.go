// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package models

import (
	"strings"
	"time"
)

// ContentMetadata is the raw catalog entry an embedding is generated from.
// It is treated as immutable once handed to the processor.
type ContentMetadata struct {
	ExternalID  string        `json:"external_id" validate:"required,max=256"`
	Platform    string        `json:"platform" validate:"required,platform"`
	Title       string        `json:"title" validate:"required,notblank,max=1000"`
	Description string        `json:"description,omitempty" validate:"max=50000"`
	Tags        []string      `json:"tags,omitempty" validate:"max=200,dive,max=200"`
	Category    string        `json:"category,omitempty" validate:"max=200"`
	Duration    time.Duration `json:"duration,omitempty" validate:"min=0"`
	PublishedAt time.Time     `json:"published_at,omitempty"`
	ViewCount   int64         `json:"view_count,omitempty" validate:"min=0"`
}

// Key returns the composite identity used for upserts and cache keys.
func (m *ContentMetadata) Key() string {
	return ItemKey(m.Platform, m.ExternalID)
}

// ItemKey builds the "platform:external_id" identity of a catalog item.
func ItemKey(platform, externalID string) string {
	return platform + ":" + externalID
}

// HasDescription reports whether the description contains non-whitespace text.
func (m *ContentMetadata) HasDescription() bool {
	return strings.TrimSpace(m.Description) != ""
}

// ProcessingStatus tracks where a stored item is in the embedding lifecycle.
type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "PENDING"
	StatusCompleted ProcessingStatus = "COMPLETED"
	StatusFailed    ProcessingStatus = "FAILED"
	StatusStale     ProcessingStatus = "STALE"
)

// Valid reports whether s is a known status.
func (s ProcessingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusStale:
		return true
	}
	return false
}

// TokenUsage records provider tokens consumed per embedded field.
type TokenUsage struct {
	Title       int `json:"title"`
	Description int `json:"description"`
	Combined    int `json:"combined"`
}

// Total returns the sum across all fields.
func (t TokenUsage) Total() int {
	return t.Title + t.Description + t.Combined
}

// ProcessedEmbedding is the output of the processor for one item.
// It is never mutated after creation; reprocessing produces a new value that
// replaces the stored row by upsert on (ExternalID, Platform).
type ProcessedEmbedding struct {
	Metadata             ContentMetadata `json:"metadata"`
	TitleEmbedding       []float32       `json:"title_embedding"`
	DescriptionEmbedding []float32       `json:"description_embedding,omitempty"`
	CombinedEmbedding    []float32       `json:"combined_embedding"`
	QualityScore         float64         `json:"quality_score"`
	TokenUsage           TokenUsage      `json:"token_usage"`
	ProcessingTime       time.Duration   `json:"processing_time"`
	CreatedAt            time.Time       `json:"created_at"`
}
