// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

// Package pipeline drives batches of catalog items through the processor
// into the vector store.
//
// Run splits its input into fixed-size batches paced by a token-bucket
// limiter, persists each success with an upsert and retries failed items
// with exponential backoff. Items that still fail are marked FAILED in the
// store. RunIncrementalUpdate marks old embeddings stale and reprocesses the
// store's backlog.
package pipeline
