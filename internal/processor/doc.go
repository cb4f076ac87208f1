// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

// Package processor converts ContentMetadata into ProcessedEmbedding values.
//
// Each item produces up to three embeddings from a single provider request:
// the cleaned title, the cleaned description (skipped when empty) and a
// composite text in which title, description and tags+category take roughly
// 40%, 35% and 25% of a character budget. A quality score in [0, 1] rates
// how much signal the metadata carries.
package processor
