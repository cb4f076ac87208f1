// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

// Package metrics declares the Prometheus collectors exported on /metrics.
//
// Collectors are registered with promauto on the default registry at package
// init. Record* helpers keep label handling in one place:
//
//	start := time.Now()
//	err := store.Upsert(ctx, emb)
//	metrics.RecordStoreQuery("upsert", time.Since(start), err)
package metrics
