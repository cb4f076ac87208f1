// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

/*
Package embedding talks to the external text-embedding provider.

The Client batches texts into a single request, paces calls through a rolling
one-minute RateLimiter (requests and tokens), retries transient failures with
exponential backoff and wraps every round-trip in a circuit breaker.

Returned vectors are checked against the configured Bounds before they leave
the package: wrong dimension, non-finite values and magnitudes outside the
band are rejected with a models.ValidationError.

Wire format:

	POST {base_url}/embeddings
	{"model": "...", "dimensions": 1536, "inputs": ["a", "b"]}

	200 OK
	{"embeddings": [[...], [...]], "usage": {"totalTokens": 12}}

The package also exports the vector math used by the processor and the search
engine (CosineSimilarity, Magnitude, Normalize, WeightedCombine).
*/
package embedding
