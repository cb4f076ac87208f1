// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package services

import (
	"context"
	"time"
)

// Sweeper removes expired process-tier cache entries on an interval.
// *cache.EmbeddingCache satisfies it.
type Sweeper interface {
	RunSweeper(ctx context.Context, interval time.Duration) error
}

// CacheSweeperService runs the cache sweeper under supervision.
type CacheSweeperService struct {
	cache    Sweeper
	interval time.Duration
	name     string
}

// NewCacheSweeperService wraps c. A non-positive interval uses the cache's
// configured sweep interval.
func NewCacheSweeperService(c Sweeper, interval time.Duration) *CacheSweeperService {
	return &CacheSweeperService{
		cache:    c,
		interval: interval,
		name:     "cache-sweeper",
	}
}

// Serve implements suture.Service.
func (s *CacheSweeperService) Serve(ctx context.Context) error {
	return s.cache.RunSweeper(ctx, s.interval)
}

// String returns the service name for logging.
func (s *CacheSweeperService) String() string {
	return s.name
}
