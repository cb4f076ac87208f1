// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

/*
Package config loads and validates the Vectorcast process configuration.

Configuration is layered with koanf, lowest priority first:

 1. Struct defaults (defaultConfig, built from each component's DefaultConfig)
 2. YAML file from CONFIG_PATH, ./config.yaml or /etc/vectorcast/config.yaml
 3. Environment variables mapped through envMappings

Component sections reuse the component packages' Config types, so a YAML file
mirrors their koanf tags:

	provider:
	  base_url: https://api.example.com/v1
	  dimensions: 1536
	store:
	  path: /data/vectorcast.duckdb
	  dimensions: 1536
	cache:
	  backend: redis
	  redis:
	    addr: redis:6379

# Environment Variables

Common overrides:
  - PROVIDER_URL, PROVIDER_API_KEY, PROVIDER_MODEL, EMBEDDING_DIMENSIONS
  - DUCKDB_PATH, STORE_DIMENSIONS, ENABLE_VSS, ENABLE_FTS
  - CACHE_BACKEND (none, redis, badger), REDIS_ADDR, CACHE_BADGER_PATH
  - JOBQUEUE_PATH, JOBQUEUE_SCHEDULE_INTERVAL
  - HTTP_HOST, HTTP_PORT, CORS_ORIGINS (comma-separated)
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

Unmapped variables are ignored. Validate runs after every load and chains
one validator per section; the first failure is returned.
*/
package config
