// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package embedding

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds provider connection, retry and rate limit settings.
type Config struct {
	BaseURL      string        `koanf:"base_url"`
	APIKey       string        `koanf:"api_key"`
	Model        string        `koanf:"model"`
	Dimensions   int           `koanf:"dimensions"`
	MaxBatchSize int           `koanf:"max_batch_size"`
	Timeout      time.Duration `koanf:"timeout"`

	MaxRetries     int           `koanf:"max_retries"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`
	RetryMaxDelay  time.Duration `koanf:"retry_max_delay"`

	RequestsPerMinute int           `koanf:"requests_per_minute"`
	TokensPerMinute   int           `koanf:"tokens_per_minute"`
	RateWindow        time.Duration `koanf:"rate_window"`
	MaxWait           time.Duration `koanf:"max_wait"`

	MinMagnitude float64 `koanf:"min_magnitude"`
	MaxMagnitude float64 `koanf:"max_magnitude"`

	BreakerMinRequests   uint32        `koanf:"breaker_min_requests"`
	BreakerFailureRatio  float64       `koanf:"breaker_failure_ratio"`
	BreakerOpenTimeout   time.Duration `koanf:"breaker_open_timeout"`
	BreakerHalfOpenLimit uint32        `koanf:"breaker_half_open_limit"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:              "http://localhost:8081/v1",
		Model:                "text-embedding-3-small",
		Dimensions:           1536,
		MaxBatchSize:         100,
		Timeout:              30 * time.Second,
		MaxRetries:           5,
		RetryBaseDelay:       time.Second,
		RetryMaxDelay:        30 * time.Second,
		RequestsPerMinute:    3000,
		TokensPerMinute:      1_000_000,
		RateWindow:           time.Minute,
		MaxWait:              2 * time.Minute,
		MinMagnitude:         0.5,
		MaxMagnitude:         1.5,
		BreakerMinRequests:   10,
		BreakerFailureRatio:  0.6,
		BreakerOpenTimeout:   2 * time.Minute,
		BreakerHalfOpenLimit: 3,
	}
}

// Bounds returns the vector validation bounds implied by the config.
func (c *Config) Bounds() Bounds {
	return Bounds{
		Dimensions:   c.Dimensions,
		MinMagnitude: c.MinMagnitude,
		MaxMagnitude: c.MaxMagnitude,
	}
}

// Validate checks the provider configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("provider base_url is required")
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("provider dimensions must be positive, got %d", c.Dimensions)
	}
	if c.MaxBatchSize <= 0 {
		return fmt.Errorf("provider max_batch_size must be positive, got %d", c.MaxBatchSize)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("provider max_retries cannot be negative, got %d", c.MaxRetries)
	}
	if c.RetryBaseDelay <= 0 || c.RetryMaxDelay < c.RetryBaseDelay {
		return fmt.Errorf("provider retry delays invalid: base=%s max=%s", c.RetryBaseDelay, c.RetryMaxDelay)
	}
	if c.RequestsPerMinute <= 0 || c.TokensPerMinute <= 0 {
		return errors.New("provider requests_per_minute and tokens_per_minute must be positive")
	}
	if c.RateWindow <= 0 {
		return errors.New("provider rate_window must be positive")
	}
	if c.MinMagnitude < 0 || c.MaxMagnitude < c.MinMagnitude {
		return fmt.Errorf("provider magnitude band invalid: [%g, %g]", c.MinMagnitude, c.MaxMagnitude)
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		return fmt.Errorf("provider breaker_failure_ratio must be in (0, 1], got %g", c.BreakerFailureRatio)
	}
	return nil
}
