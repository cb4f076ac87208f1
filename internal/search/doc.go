// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

/*
Package search is the query-time layer over the vector store.

The Engine embeds query text through the provider, caches query embeddings
and result lists in the two-tier embedding cache, and serves:

  - SearchByContent: nearest-neighbor (or hybrid semantic + lexical) search
  - SearchPersonalized: the query vector blended with the user's preference
    vector as normalize((1-w)*query + w*preference), with a recency boost
  - GenerateRecommendations: candidates near the preference vector, scored
    as a weighted sum of similarity, popularity, recency and personalized
    affinity, then diversity filtered
  - UpdateUserPreferences: online update of the preference vector from a
    single interaction
  - TuneSimilarityThresholds: F1-optimal threshold from labeled feedback

Users without a preference vector get content-only search and popularity
based recommendations instead of an error.

# Scoring

Recommendation weights are normalized to sum to 1.0 at scoring time.
Popularity is log-scaled view count relative to the most viewed candidate.
Recency decays exponentially with a configurable half-life.

# Thread Safety

Engine is safe for concurrent use. The random source used by the diversity
filter is seeded for reproducibility and guarded by a mutex.
*/
package search
