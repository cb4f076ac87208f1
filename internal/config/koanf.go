// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/vectorcast/internal/cache"
	"github.com/tomtom215/vectorcast/internal/embedding"
	"github.com/tomtom215/vectorcast/internal/jobqueue"
	"github.com/tomtom215/vectorcast/internal/pipeline"
	"github.com/tomtom215/vectorcast/internal/processor"
	"github.com/tomtom215/vectorcast/internal/search"
	"github.com/tomtom215/vectorcast/internal/vectorstore"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/vectorcast/config.yaml",
	"/etc/vectorcast/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the configuration used as the lowest koanf layer.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8090,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      2 * time.Minute,
			ShutdownTimeout:   10 * time.Second,
			MaxBodyBytes:      32 << 20,
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{},
			Environment:       "development",
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
		Provider:  embedding.DefaultConfig(),
		Processor: processor.DefaultConfig(),
		Store:     vectorstore.DefaultConfig(),
		Cache:     cache.DefaultConfig(),
		Pipeline:  pipeline.DefaultConfig(),
		JobQueue:  jobqueue.DefaultConfig(),
		Search:    search.DefaultConfig(),
	}
}

// LoadWithKoanf loads configuration from defaults, an optional YAML file and
// environment variables, in increasing order of priority, then validates it.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	// PROVIDER_API_KEY -> provider.api_key
	// DUCKDB_PATH -> store.path
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "" if none.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when set from env.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated string values into slices.
// Values already loaded as lists from YAML are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}

		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps flat environment variable names to koanf paths.
var envMappings = map[string]string{
	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"http_max_body_bytes":   "server.max_body_bytes",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",
	"cors_origins":          "server.cors_origins",
	"environment":           "server.environment",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",

	// Embedding provider
	"provider_url":                 "provider.base_url",
	"provider_api_key":             "provider.api_key",
	"provider_model":               "provider.model",
	"provider_timeout":             "provider.timeout",
	"provider_max_batch_size":      "provider.max_batch_size",
	"provider_max_retries":         "provider.max_retries",
	"provider_requests_per_minute": "provider.requests_per_minute",
	"provider_tokens_per_minute":   "provider.tokens_per_minute",
	"provider_max_wait":            "provider.max_wait",
	"embedding_dimensions":         "provider.dimensions",

	// Processor
	"processor_concurrency":      "processor.concurrency",
	"processor_items_per_second": "processor.items_per_second",
	"composite_text_budget":      "processor.composite_budget",

	// Vector store
	"duckdb_path":       "store.path",
	"store_dimensions":  "store.dimensions",
	"duckdb_threads":    "store.threads",
	"duckdb_max_memory": "store.max_memory",
	"enable_vss":        "store.enable_vss",
	"enable_fts":        "store.enable_fts",
	"hnsw_m":            "store.hnsw_m",
	"hnsw_ef_search":    "store.hnsw_ef_search",

	// Cache
	"cache_backend":        "cache.backend",
	"cache_sweep_interval": "cache.sweep_interval",
	"redis_addr":           "cache.redis.addr",
	"redis_password":       "cache.redis.password",
	"redis_db":             "cache.redis.db",
	"redis_key_prefix":     "cache.redis.key_prefix",
	"cache_badger_path":    "cache.badger.path",

	// Pipeline
	"pipeline_batch_size":          "pipeline.batch_size",
	"pipeline_max_retries":         "pipeline.max_retries",
	"pipeline_inter_batch_delay":   "pipeline.inter_batch_delay",
	"pipeline_staleness_threshold": "pipeline.staleness_threshold",
	"pipeline_backlog_limit":       "pipeline.backlog_limit",

	// Job queue
	"jobqueue_path":              "jobqueue.path",
	"jobqueue_poll_interval":     "jobqueue.poll_interval",
	"jobqueue_job_timeout":       "jobqueue.job_timeout",
	"jobqueue_max_retries":       "jobqueue.default_max_retries",
	"jobqueue_schedule_interval": "jobqueue.schedule_interval",
	"jobqueue_retention":         "jobqueue.retention",

	// Search
	"search_default_limit":          "search.default_limit",
	"search_max_limit":              "search.max_limit",
	"search_default_threshold":      "search.default_threshold",
	"search_personalization_weight": "search.personalization_weight",
	"search_diversity_factor":       "search.diversity_factor",
	"search_seed":                   "search.seed",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped variables return "" and are ignored.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
