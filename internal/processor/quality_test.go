// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package processor

import (
	"math"
	"strings"
	"testing"

	"github.com/tomtom215/vectorcast/internal/models"
)

func TestQualityScore_Ordering(t *testing.T) {
	t.Parallel()

	unit := []float32{1, 0, 0}
	bare := models.ContentMetadata{Title: "Clip"}
	rich := models.ContentMetadata{
		Title:       "A complete walkthrough of the Go runtime scheduler and its goroutine internals",
		Description: strings.Repeat("Detailed explanation of goroutine scheduling. ", 20),
		Tags:        []string{"go", "runtime", "scheduler", "performance"},
		Category:    "education",
	}

	bareScore := QualityScore(bare, unit, testBounds)
	richScore := QualityScore(rich, unit, testBounds)

	if bareScore >= richScore {
		t.Errorf("bare %.3f should score below rich %.3f", bareScore, richScore)
	}
	if math.Abs(richScore-1) > 1e-9 {
		t.Errorf("fully populated metadata = %.3f, want 1.0", richScore)
	}
}

func TestQualityScore_Components(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		meta     models.ContentMetadata
		combined []float32
		want     float64
	}{
		{"nothing", models.ContentMetadata{}, nil, 0},
		{"category only", models.ContentMetadata{Category: "music"}, nil, 0.10},
		{"tags capped", models.ContentMetadata{Tags: []string{"a", "b", "c", "d", "e", "f"}}, nil, 0.20},
		{"blank tags ignored", models.ContentMetadata{Tags: []string{" ", ""}}, nil, 0},
		{"magnitude in band", models.ContentMetadata{}, []float32{1, 0, 0}, 0.10},
		{"magnitude out of band", models.ContentMetadata{}, []float32{3, 0, 0}, 0},
		{"long title", models.ContentMetadata{Title: strings.Repeat("t", 60)}, nil, 0.30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := QualityScore(tt.meta, tt.combined, testBounds); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("QualityScore() = %.3f, want %.3f", got, tt.want)
			}
		})
	}
}
