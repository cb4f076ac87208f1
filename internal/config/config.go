// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package config

import (
	"os"
	"time"

	"github.com/tomtom215/vectorcast/internal/cache"
	"github.com/tomtom215/vectorcast/internal/embedding"
	"github.com/tomtom215/vectorcast/internal/jobqueue"
	"github.com/tomtom215/vectorcast/internal/logging"
	"github.com/tomtom215/vectorcast/internal/pipeline"
	"github.com/tomtom215/vectorcast/internal/processor"
	"github.com/tomtom215/vectorcast/internal/search"
	"github.com/tomtom215/vectorcast/internal/vectorstore"
)

// Config is the complete process configuration. Component sections reuse the
// component packages' own Config types so defaults and validation live next
// to the code that consumes them.
type Config struct {
	Logging    LoggingConfig      `koanf:"logging"`
	Server     ServerConfig       `koanf:"server"`
	Supervisor SupervisorConfig   `koanf:"supervisor"`
	Provider   embedding.Config   `koanf:"provider"`
	Processor  processor.Config   `koanf:"processor"`
	Store      vectorstore.Config `koanf:"store"`
	Cache      cache.Config       `koanf:"cache"`
	Pipeline   pipeline.Config    `koanf:"pipeline"`
	JobQueue   jobqueue.Config    `koanf:"jobqueue"`
	Search     search.Config      `koanf:"search"`
}

// ServerConfig holds admin HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST, HTTP_PORT
//   - HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT, HTTP_SHUTDOWN_TIMEOUT
//   - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
//   - CORS_ORIGINS: comma-separated list
//   - ENVIRONMENT: development, staging, production
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// MaxBodyBytes caps request bodies. Batch job payloads are the largest.
	// Default: 32MB
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// RateLimitReqs requests are allowed per RateLimitWindow per client IP.
	// Default: 100 per minute
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// CORSOrigins lists allowed origins. Empty disables CORS headers.
	CORSOrigins []string `koanf:"cors_origins"`

	// Environment mode: development, staging, production.
	// Default: development
	Environment string `koanf:"environment"`
}

// LoggingConfig holds logging settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// ToLogging converts the section into the logging package's Config.
func (l LoggingConfig) ToLogging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = l.Level
	cfg.Format = l.Format
	cfg.Caller = l.Caller
	cfg.Output = os.Stderr
	return cfg
}

// SupervisorConfig holds suture tree settings.
//
// Environment Variables:
//   - SUPERVISOR_FAILURE_THRESHOLD, SUPERVISOR_FAILURE_DECAY
//   - SUPERVISOR_FAILURE_BACKOFF, SUPERVISOR_SHUTDOWN_TIMEOUT
type SupervisorConfig struct {
	// FailureThreshold is the number of failures before backing off.
	// Default: 5
	FailureThreshold float64 `koanf:"failure_threshold"`

	// FailureDecay is the failure counter half-life in seconds.
	// Default: 30
	FailureDecay float64 `koanf:"failure_decay"`

	// FailureBackoff is the pause after the threshold is crossed.
	// Default: 15s
	FailureBackoff time.Duration `koanf:"failure_backoff"`

	// ShutdownTimeout bounds how long each service may take to stop.
	// Default: 10s
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
