// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/vectorcast/internal/cache"
)

// Validate validates all configuration sections.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSupervisor(); err != nil {
		return err
	}

	if err := c.validateProvider(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	if err := c.validateCache(); err != nil {
		return err
	}

	return c.validateWorkers()
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, panic: got %q", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console: got %q", c.Logging.Format)
	}
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}

	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP_READ_TIMEOUT and HTTP_WRITE_TIMEOUT must be positive")
	}

	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("HTTP_MAX_BODY_BYTES must be positive")
	}

	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs < 1 || c.Server.RateLimitReqs > 100000 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be between 1 and 100000, got %d", c.Server.RateLimitReqs)
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}

	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			if c.IsProduction() {
				return fmt.Errorf("CORS_ORIGINS wildcard is not allowed in production")
			}
			continue
		}
		if err := validateHTTPURL(origin, "CORS_ORIGINS"); err != nil {
			return err
		}
	}

	switch c.Server.Environment {
	case "development", "staging", "production":
		return nil
	default:
		return fmt.Errorf("ENVIRONMENT must be development, staging or production: got %q", c.Server.Environment)
	}
}

// validateSupervisor validates supervisor tree configuration
func (c *Config) validateSupervisor() error {
	if c.Supervisor.FailureThreshold <= 0 {
		return fmt.Errorf("SUPERVISOR_FAILURE_THRESHOLD must be positive")
	}
	if c.Supervisor.FailureDecay <= 0 {
		return fmt.Errorf("SUPERVISOR_FAILURE_DECAY must be positive")
	}
	if c.Supervisor.FailureBackoff < 0 || c.Supervisor.ShutdownTimeout <= 0 {
		return fmt.Errorf("SUPERVISOR_FAILURE_BACKOFF must not be negative and SUPERVISOR_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

// validateProvider validates the embedding provider section
func (c *Config) validateProvider() error {
	if err := validateHTTPURL(c.Provider.BaseURL, "PROVIDER_URL"); err != nil {
		return err
	}
	if c.IsProduction() && c.Provider.APIKey == "" {
		return fmt.Errorf("PROVIDER_API_KEY is required in production")
	}
	if err := c.Provider.Validate(); err != nil {
		return err
	}
	return c.Processor.Validate()
}

// validateStore validates the vector store section
func (c *Config) validateStore() error {
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if c.Store.Dimensions != c.Provider.Dimensions {
		return fmt.Errorf("STORE_DIMENSIONS (%d) must match EMBEDDING_DIMENSIONS (%d)",
			c.Store.Dimensions, c.Provider.Dimensions)
	}
	return nil
}

// validateCache validates the cache section
func (c *Config) validateCache() error {
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if c.Cache.Backend == cache.BackendRedis {
		return validateHostPort(c.Cache.Redis.Addr, "REDIS_ADDR")
	}
	return nil
}

// validateWorkers validates the pipeline, job queue and search sections
func (c *Config) validateWorkers() error {
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	if err := c.JobQueue.Validate(); err != nil {
		return err
	}
	return c.Search.Validate()
}
