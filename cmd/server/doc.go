// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

/*
Package main is the entry point for the Vectorcast server.

Vectorcast turns video metadata into embedding vectors through an external
OpenAI-compatible provider, stores them in DuckDB, and serves similarity
search, personalized search and recommendations over an admin HTTP API.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("vectorcast")
	├── DataSupervisor ("data-layer")
	│   ├── job-queue              (embedding_batch, incremental_update, maintenance)
	│   ├── maintenance-scheduler  (periodic maintenance jobs)
	│   └── cache-sweeper          (expired process-tier entries)
	└── APISupervisor ("api-layer")
	    └── admin-http             (chi router)

Component initialization order:

 1. Configuration: Koanf v2 (defaults, YAML file, environment)
 2. Logging: zerolog with JSON/console output modes
 3. Embedding provider client with rate limiter and circuit breaker
 4. Processor: composite text and batched embedding
 5. Vector store: DuckDB with optional VSS (HNSW) and FTS extensions
 6. Job store (BadgerDB) and embedding cache (process tier + Redis/Badger;
    an unreachable remote tier is skipped with a warning)
 7. Pipeline, job queue and search engine
 8. Supervisor tree and HTTP server

# Configuration

Highest priority wins:
  - Environment variables (PROVIDER_URL, PROVIDER_API_KEY, DUCKDB_PATH, ...)
  - Config file (CONFIG_PATH, ./config.yaml, /etc/vectorcast/config.yaml)
  - Built-in defaults

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains within
HTTP_SHUTDOWN_TIMEOUT, the job queue finishes its running job, and the
stores are checkpointed and closed.

# Example Usage

	export PROVIDER_URL=http://localhost:8081/v1
	export PROVIDER_MODEL=text-embedding-3-small
	export EMBEDDING_DIMENSIONS=1536
	export STORE_DIMENSIONS=1536
	export DUCKDB_PATH=/data/embeddings.duckdb
	./vectorcast

	curl -X POST localhost:8090/api/v1/jobs \
	  -d '{"type":"incremental_update"}'
*/
package main
