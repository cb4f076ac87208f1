// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package embedding

import (
	"math"

	"github.com/tomtom215/vectorcast/internal/models"
)

// Bounds constrains the vectors accepted by the system.
type Bounds struct {
	Dimensions   int
	MinMagnitude float64
	MaxMagnitude float64
}

// Validate rejects vectors of the wrong length, with NaN or Inf components,
// or whose magnitude falls outside [MinMagnitude, MaxMagnitude].
func Validate(v []float32, b Bounds) error {
	if len(v) != b.Dimensions {
		return models.NewValidationError("embedding", "dimension %d, expected %d", len(v), b.Dimensions)
	}
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return models.NewValidationError("embedding", "non-finite value at index %d", i)
		}
	}
	mag := Magnitude(v)
	if mag < b.MinMagnitude || mag > b.MaxMagnitude {
		return models.NewValidationError("embedding", "magnitude %.4f outside [%g, %g]", mag, b.MinMagnitude, b.MaxMagnitude)
	}
	return nil
}

// Magnitude returns the Euclidean norm of v.
func Magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v. A zero vector is returned as a
// zero copy.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	mag := Magnitude(v)
	if mag == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / mag)
	}
	return out
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Mismatched lengths and zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// WeightedCombine returns normalize((1-w)*a + w*b).
func WeightedCombine(a, b []float32, w float64) ([]float32, error) {
	if len(a) != len(b) {
		return nil, models.NewValidationError("embedding", "cannot combine vectors of length %d and %d", len(a), len(b))
	}
	if w < 0 || w > 1 {
		return nil, models.NewValidationError("weight", "%g outside [0, 1]", w)
	}
	out := make([]float32, len(a))
	for i := range a {
		out[i] = float32((1-w)*float64(a[i]) + w*float64(b[i]))
	}
	return Normalize(out), nil
}

// EstimateTokens approximates provider token usage as ceil(len(text)/4).
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
