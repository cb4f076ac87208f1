// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

/*
Package models defines the data structures shared across Vectorcast.

Key Components:

  - ContentMetadata: catalog entry an embedding is generated from
  - ProcessedEmbedding: title/description/combined vectors plus quality score
  - SimilarityResult / ScoredRecommendation: per-query read-only projections
  - UserPreference / Interaction: personalization state and its inputs
  - APIResponse: admin HTTP envelope

Error Taxonomy:

Every component reports failures through one of four typed errors:

  - ProviderError: embedding API failures (rate limited, timeout, malformed)
  - StoreError: vector store connection or query failures
  - CacheError: cache tier failures, always degraded to a miss
  - ValidationError: input that can never succeed (dimension, NaN, empty text)

IsRetryable and Code classify any wrapped error so callers can distinguish
retryable from terminal conditions:

	if models.IsRetryable(err) {
	    // reschedule
	}
	apiErr := &models.APIError{Code: string(models.Code(err)), Message: err.Error()}
*/
package models
