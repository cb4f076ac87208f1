// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

/*
Package cache provides the two-tier embedding cache.

The process tier (LocalStore) keeps one map plus an access-ordered
doubly-linked list per namespace. When a namespace reaches its capacity the
least recently accessed 20% of its entries are evicted in one pass. Expired
entries are removed lazily on read and in bulk by Sweep.

The optional remote tier implements RemoteStore and is backed by Redis
(RedisStore) or an embedded BadgerDB (BadgerStore). Reads check the process
tier first and backfill it from the remote tier. Remote failures are logged
and counted, and are reported to callers as plain misses.

# Namespaces

	embeddings  query text hash -> []float32
	similarity  query fingerprint -> []models.SimilarityResult
	metadata    item key -> models.ItemMetadata

# Usage

	c, err := cache.New(cfg, remote, logger)
	key := cache.GenerateKey("query", text)
	if v, ok := c.GetEmbedding(ctx, key); ok {
	    return v, nil
	}
	c.SetEmbedding(ctx, key, vec)

Keys are built with GenerateKey, which hashes the JSON encoding of its parts.
*/
package cache
