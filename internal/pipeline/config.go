// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// Config holds pipeline settings.
type Config struct {
	BatchSize  int `koanf:"batch_size"`
	MaxRetries int `koanf:"max_retries"`

	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`
	RetryMaxDelay  time.Duration `koanf:"retry_max_delay"`

	// InterBatchDelay is the minimum spacing between batch starts.
	InterBatchDelay time.Duration `koanf:"inter_batch_delay"`

	// StalenessThreshold is the embedding age after which an item is
	// reprocessed by incremental updates.
	StalenessThreshold time.Duration `koanf:"staleness_threshold"`
	// BacklogLimit caps the items taken per incremental update.
	BacklogLimit int `koanf:"backlog_limit"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:          50,
		MaxRetries:         3,
		RetryBaseDelay:     time.Second,
		RetryMaxDelay:      30 * time.Second,
		InterBatchDelay:    500 * time.Millisecond,
		StalenessThreshold: 7 * 24 * time.Hour,
		BacklogLimit:       1000,
	}
}

// Validate checks the pipeline configuration.
func (c *Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("pipeline batch_size must be at least 1, got %d", c.BatchSize)
	}
	if c.MaxRetries < 0 {
		return errors.New("pipeline max_retries must not be negative")
	}
	if c.RetryBaseDelay <= 0 || c.RetryMaxDelay < c.RetryBaseDelay {
		return fmt.Errorf("pipeline retry delays invalid: base=%v max=%v", c.RetryBaseDelay, c.RetryMaxDelay)
	}
	if c.InterBatchDelay < 0 {
		return errors.New("pipeline inter_batch_delay must not be negative")
	}
	if c.StalenessThreshold <= 0 {
		return errors.New("pipeline staleness_threshold must be positive")
	}
	if c.BacklogLimit < 1 {
		return errors.New("pipeline backlog_limit must be at least 1")
	}
	return nil
}

// Options tune a single Run.
type Options struct {
	BatchSize int `json:"batch_size,omitempty" validate:"gte=0,lte=1000"`
	// MaxRetries is the retry budget per failed item. Negative uses the
	// configured default.
	MaxRetries   int  `json:"max_retries" validate:"gte=-1,lte=20"`
	SkipExisting bool `json:"skip_existing"`
	DryRun       bool `json:"dry_run"`
}

// DefaultOptions returns Options that defer to the pipeline configuration.
func DefaultOptions() Options {
	return Options{MaxRetries: -1}
}
