// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

// Package testinfra provides container-backed infrastructure for integration
// tests.
//
// Everything here is behind the "integration" build tag and needs Docker:
//
//	go test -tags integration ./internal/cache/...
//
// # Redis Container
//
// RedisContainer runs a real Redis server for exercising the remote cache
// tier against the actual SCAN, TTL and prefix semantics that miniredis only
// approximates:
//
//	func TestRedisStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    redisC, err := testinfra.NewRedisContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, redisC)
//
//	    store, err := cache.NewRedisStore(ctx, cache.RedisConfig{Addr: redisC.Addr})
//	    // ...
//	}
//
// Tests are skipped gracefully when Docker is unavailable.
package testinfra
