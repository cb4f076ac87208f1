// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package processor

import (
	"fmt"
	"math"
)

// Config controls composite text construction and batch fan-out.
type Config struct {
	// CompositeBudget is the target length, in characters, of the combined text.
	CompositeBudget int `koanf:"composite_budget"`

	TitleWeight       float64 `koanf:"title_weight"`
	DescriptionWeight float64 `koanf:"description_weight"`
	TagsWeight        float64 `koanf:"tags_weight"`

	// Concurrency bounds in-flight Process calls within ProcessBatch.
	Concurrency int `koanf:"concurrency"`

	// ItemsPerSecond paces item starts; zero disables pacing.
	ItemsPerSecond float64 `koanf:"items_per_second"`
}

// DefaultConfig returns the 40/35/25 weighting over a 2000 character budget.
func DefaultConfig() Config {
	return Config{
		CompositeBudget:   2000,
		TitleWeight:       0.40,
		DescriptionWeight: 0.35,
		TagsWeight:        0.25,
		Concurrency:       4,
		ItemsPerSecond:    20,
	}
}

// Validate checks the processor configuration.
func (c *Config) Validate() error {
	if c.CompositeBudget < 100 {
		return fmt.Errorf("processor composite_budget must be at least 100, got %d", c.CompositeBudget)
	}
	if c.TitleWeight < 0 || c.DescriptionWeight < 0 || c.TagsWeight < 0 {
		return fmt.Errorf("processor weights cannot be negative")
	}
	if sum := c.TitleWeight + c.DescriptionWeight + c.TagsWeight; math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("processor weights must sum to 1, got %.4f", sum)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("processor concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.ItemsPerSecond < 0 {
		return fmt.Errorf("processor items_per_second cannot be negative")
	}
	return nil
}
