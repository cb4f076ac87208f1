// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package processor

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/tomtom215/vectorcast/internal/embedding"
	"github.com/tomtom215/vectorcast/internal/models"
)

// Component weights of the quality score. They sum to 1.
const (
	qualityTitle          = 0.20
	qualityTitleLength    = 0.10
	qualityDescription    = 0.15
	qualityDescriptionLen = 0.15
	qualityPerTag         = 0.05
	qualityTagsMax        = 0.20
	qualityCategory       = 0.10
	qualityMagnitude      = 0.10
	titleLengthSaturation = 60
	descriptionSaturation = 500
)

// QualityScore rates how much signal an item's metadata carries, in [0, 1].
// combined may be nil, in which case the magnitude component is skipped.
func QualityScore(meta models.ContentMetadata, combined []float32, bounds embedding.Bounds) float64 {
	var score float64

	if title := CleanText(meta.Title); title != "" {
		score += qualityTitle
		score += qualityTitleLength * saturate(utf8.RuneCountInString(title), titleLengthSaturation)
	}

	if desc := CleanText(meta.Description); desc != "" {
		score += qualityDescription
		score += qualityDescriptionLen * saturate(utf8.RuneCountInString(desc), descriptionSaturation)
	}

	tags := 0
	for _, tag := range meta.Tags {
		if strings.TrimSpace(tag) != "" {
			tags++
		}
	}
	score += math.Min(float64(tags)*qualityPerTag, qualityTagsMax)

	if strings.TrimSpace(meta.Category) != "" {
		score += qualityCategory
	}

	if combined != nil {
		mag := embedding.Magnitude(combined)
		if mag >= bounds.MinMagnitude && mag <= bounds.MaxMagnitude {
			score += qualityMagnitude
		}
	}

	return math.Min(score, 1)
}

func saturate(n, limit int) float64 {
	if n >= limit {
		return 1
	}
	return float64(n) / float64(limit)
}
