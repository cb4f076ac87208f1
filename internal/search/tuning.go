// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package search

import (
	"sort"

	"github.com/tomtom215/vectorcast/internal/models"
)

// Feedback is one labeled search hit.
type Feedback struct {
	Similarity float64 `json:"similarity" validate:"gte=-1,lte=1"`
	Relevant   bool    `json:"relevant"`
}

// ThresholdResult is the best threshold found and its metrics.
type ThresholdResult struct {
	Threshold float64 `json:"threshold"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Evaluated int     `json:"evaluated"`
}

// TuneSimilarityThresholds evaluates every distinct similarity value in
// feedback as a threshold (hit when similarity >= threshold) and returns the
// one with the highest F1. Ties go to the higher threshold.
func (e *Engine) TuneSimilarityThresholds(feedback []Feedback) (*ThresholdResult, error) {
	return TuneThreshold(feedback)
}

// TuneThreshold is the engine-independent form of TuneSimilarityThresholds.
func TuneThreshold(feedback []Feedback) (*ThresholdResult, error) {
	if len(feedback) == 0 {
		return nil, models.NewValidationError("feedback", "at least one sample is required")
	}

	seen := make(map[float64]bool, len(feedback))
	var candidates []float64
	relevant := 0
	for _, f := range feedback {
		if f.Relevant {
			relevant++
		}
		if !seen[f.Similarity] {
			seen[f.Similarity] = true
			candidates = append(candidates, f.Similarity)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(candidates)))

	best := &ThresholdResult{Threshold: candidates[0], F1: -1, Evaluated: len(candidates)}
	for _, t := range candidates {
		var tp, fp int
		for _, f := range feedback {
			if f.Similarity >= t {
				if f.Relevant {
					tp++
				} else {
					fp++
				}
			}
		}

		precision := ratio(tp, tp+fp)
		recall := ratio(tp, relevant)
		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}

		// Strict comparison keeps the higher threshold on ties since
		// candidates are visited in descending order.
		if f1 > best.F1 {
			best.Threshold = t
			best.Precision = precision
			best.Recall = recall
			best.F1 = f1
		}
	}
	return best, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
