// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

/*
Package api provides the admin HTTP API for the embedding subsystem.

The API is a thin layer over the job queue, the search engine, the vector
store and the cache. Handlers depend on small interfaces (JobService,
SearchService, StoreStatus, CacheAdmin) so they can be tested with fakes.

# Routes

	GET    /healthz                          liveness
	GET    /readyz                           readiness (vector store ping)
	GET    /metrics                          Prometheus metrics

	POST   /api/v1/jobs                      enqueue a job
	GET    /api/v1/jobs                      list jobs (?status=&limit=)
	GET    /api/v1/jobs/stats                queue counters
	GET    /api/v1/jobs/{id}                 job detail
	DELETE /api/v1/jobs/{id}                 cancel a pending job

	POST   /api/v1/search                    content search
	POST   /api/v1/search/personalized       search blended with user taste
	POST   /api/v1/recommendations           scored recommendations
	POST   /api/v1/interactions              record a user interaction
	GET    /api/v1/users/{userID}/preference preference vector
	GET    /api/v1/thresholds                current default threshold
	POST   /api/v1/thresholds/tune           F1 threshold tuning

	GET    /api/v1/store/stats               embedding counts per status
	GET    /api/v1/cache/stats               cache counters per namespace
	DELETE /api/v1/cache                     flush both cache tiers

# Responses

Every endpoint returns a models.APIResponse envelope. Errors carry the
ErrorCode of the underlying failure and a retryable flag:

	{
	  "status": "error",
	  "data": null,
	  "error": {"code": "CIRCUIT_OPEN", "message": "...", "retryable": true},
	  "metadata": {"timestamp": "2026-03-01T12:00:00Z"}
	}

Status codes follow the error taxonomy: VALIDATION_ERROR 400, NOT_FOUND 404,
RATE_LIMIT_EXCEEDED 429, CIRCUIT_OPEN and STORE_FAILURE 503, TIMEOUT 504,
SERVER_ERROR and MALFORMED_RESPONSE 502.

# Middleware

The router uses chi with go-chi/cors, go-chi/httprate for per-IP rate
limiting on /api/v1, and a metrics middleware that labels requests by chi
route pattern.
*/
package api
