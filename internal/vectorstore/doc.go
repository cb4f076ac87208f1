// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

/*
Package vectorstore persists processed embeddings in DuckDB and serves
nearest-neighbor and hybrid lexical/semantic search over them.

# Storage

Each catalog item is one row of video_embeddings keyed by
item_key = "platform:external_id". Title, description and combined embeddings
are fixed-size FLOAT[dim] arrays. Tags and token usage are stored as JSON text.

# Extensions

Two optional DuckDB extensions are loaded at startup with the
INSTALL / LOAD / FORCE INSTALL fallback:

  - vss: HNSW indexes (metric cosine) on each vector column
  - fts: BM25 full-text index over title, description and tags

Neither is required. Without vss, queries run as exact
array_cosine_distance scans and return the same results. Without fts, the
lexical half of HybridSearch falls back to the fraction of query terms found
in the item text.

# Errors

Every database failure is returned as *models.StoreError, which the job queue
treats as retryable. Dimension mismatches are rejected before any SQL runs
with *models.ValidationError.
*/
package vectorstore
