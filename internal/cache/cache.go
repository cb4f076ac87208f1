// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vectorcast/internal/metrics"
	"github.com/tomtom215/vectorcast/internal/models"
)

// NamespaceStats is a snapshot of one namespace's counters.
type NamespaceStats struct {
	Entries    int   `json:"entries"`
	Hits       int64 `json:"hits"`
	RemoteHits int64 `json:"remote_hits"`
	Misses     int64 `json:"misses"`
	Evictions  int64 `json:"evictions"`
	Errors     int64 `json:"errors"`
}

// HitRate returns hits over lookups as a percentage.
func (s NamespaceStats) HitRate() float64 {
	total := s.Hits + s.RemoteHits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits+s.RemoteHits) / float64(total) * 100
}

// Stats is a snapshot of the whole cache.
type Stats struct {
	Remote     bool                      `json:"remote"`
	Namespaces map[string]NamespaceStats `json:"namespaces"`
}

type counters struct {
	hits, remoteHits, misses, evictions, errors atomic.Int64
}

type namespace struct {
	name  string
	ttl   time.Duration
	local *LocalStore
	stats *counters
}

// EmbeddingCache is the two-tier cache shared by the search engine.
type EmbeddingCache struct {
	namespaces map[string]*namespace
	remote     RemoteStore
	interval   time.Duration
	logger     zerolog.Logger
}

// New creates a cache. remote may be nil for a process-only cache.
func New(cfg Config, remote RemoteStore, logger zerolog.Logger) (*EmbeddingCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	c := &EmbeddingCache{
		namespaces: make(map[string]*namespace, 3),
		remote:     remote,
		interval:   cfg.SweepInterval,
		logger:     logger.With().Str("component", "cache").Logger(),
	}

	for name, nc := range cfg.namespaces() {
		ns := &namespace{
			name:  name,
			ttl:   nc.TTL,
			local: NewLocalStore(nc.MaxEntries, nc.TTL),
			stats: &counters{},
		}
		stats := ns.stats
		label := name
		ns.local.onEvict = func(reason string, n int) {
			stats.evictions.Add(int64(n))
			metrics.CacheEvictions.WithLabelValues(label, reason).Add(float64(n))
		}
		c.namespaces[name] = ns
	}
	return c, nil
}

// NewRemoteStore builds the remote tier selected by cfg.Backend. It returns
// nil for BackendNone.
func NewRemoteStore(ctx context.Context, cfg Config) (RemoteStore, error) {
	switch cfg.Backend {
	case BackendRedis:
		return NewRedisStore(ctx, cfg.Redis)
	case BackendBadger:
		return OpenBadgerStore(cfg.Badger)
	default:
		return nil, nil
	}
}

func (c *EmbeddingCache) ns(name string) *namespace {
	ns, ok := c.namespaces[name]
	if !ok {
		panic("cache: unknown namespace " + name)
	}
	return ns
}

func remoteKey(ns, key string) string {
	return ns + ":" + key
}

// recordError logs and counts a remote tier failure. The failure is never
// returned to callers.
func (c *EmbeddingCache) recordError(ns *namespace, op string, err error) {
	cerr := &models.CacheError{Op: op, Namespace: ns.name, Err: err}
	ns.stats.errors.Add(1)
	metrics.CacheErrors.WithLabelValues(ns.name, op).Inc()
	c.logger.Warn().Err(cerr).Msg("remote cache operation failed")
}

// get looks up key in the process tier, then the remote tier. decode turns a
// remote payload into the value kept in the process tier.
func (c *EmbeddingCache) get(ctx context.Context, name, key string, decode func([]byte) (interface{}, error)) (interface{}, bool) {
	ns := c.ns(name)

	if v, ok := ns.local.Get(key); ok {
		ns.stats.hits.Add(1)
		metrics.RecordCacheLookup(name, "local", true)
		return v, true
	}

	if c.remote != nil {
		data, ok, err := c.remote.Get(ctx, remoteKey(name, key))
		switch {
		case err != nil:
			c.recordError(ns, "get", err)
		case ok:
			v, err := decode(data)
			if err != nil {
				c.recordError(ns, "decode", err)
				break
			}
			ns.local.Set(key, v)
			ns.stats.remoteHits.Add(1)
			metrics.RecordCacheLookup(name, "remote", true)
			return v, true
		}
	}

	ns.stats.misses.Add(1)
	metrics.RecordCacheLookup(name, "", false)
	return nil, false
}

func (c *EmbeddingCache) set(ctx context.Context, name, key string, value interface{}) {
	ns := c.ns(name)
	ns.local.Set(key, value)

	if c.remote == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.recordError(ns, "encode", err)
		return
	}
	if err := c.remote.SetWithTTL(ctx, remoteKey(name, key), data, ns.ttl); err != nil {
		c.recordError(ns, "set", err)
	}
}

// GetEmbedding returns a cached query embedding. The returned slice is a
// copy.
func (c *EmbeddingCache) GetEmbedding(ctx context.Context, key string) ([]float32, bool) {
	v, ok := c.get(ctx, NamespaceEmbeddings, key, func(b []byte) (interface{}, error) {
		var vec []float32
		err := json.Unmarshal(b, &vec)
		return vec, err
	})
	if !ok {
		return nil, false
	}
	return append([]float32(nil), v.([]float32)...), true
}

// SetEmbedding caches a query embedding.
func (c *EmbeddingCache) SetEmbedding(ctx context.Context, key string, vec []float32) {
	c.set(ctx, NamespaceEmbeddings, key, append([]float32(nil), vec...))
}

// GetSimilarity returns cached search results. Callers must not modify the
// returned slice.
func (c *EmbeddingCache) GetSimilarity(ctx context.Context, key string) ([]models.SimilarityResult, bool) {
	v, ok := c.get(ctx, NamespaceSimilarity, key, func(b []byte) (interface{}, error) {
		var res []models.SimilarityResult
		err := json.Unmarshal(b, &res)
		return res, err
	})
	if !ok {
		return nil, false
	}
	return v.([]models.SimilarityResult), true
}

// SetSimilarity caches search results.
func (c *EmbeddingCache) SetSimilarity(ctx context.Context, key string, results []models.SimilarityResult) {
	c.set(ctx, NamespaceSimilarity, key, results)
}

// GetMetadata returns cached item metadata.
func (c *EmbeddingCache) GetMetadata(ctx context.Context, key string) (*models.ItemMetadata, bool) {
	v, ok := c.get(ctx, NamespaceMetadata, key, func(b []byte) (interface{}, error) {
		var m models.ItemMetadata
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, err
		}
		return &m, nil
	})
	if !ok {
		return nil, false
	}
	m := *v.(*models.ItemMetadata)
	return &m, true
}

// SetMetadata caches item metadata.
func (c *EmbeddingCache) SetMetadata(ctx context.Context, key string, meta *models.ItemMetadata) {
	if meta == nil {
		return
	}
	m := *meta
	c.set(ctx, NamespaceMetadata, key, &m)
}

// Invalidate removes one key from both tiers.
func (c *EmbeddingCache) Invalidate(ctx context.Context, name, key string) {
	ns := c.ns(name)
	ns.local.Delete(key)
	if c.remote != nil {
		if err := c.remote.Delete(ctx, remoteKey(name, key)); err != nil {
			c.recordError(ns, "delete", err)
		}
	}
}

// InvalidateNamespace empties one namespace in both tiers.
func (c *EmbeddingCache) InvalidateNamespace(ctx context.Context, name string) {
	ns := c.ns(name)
	ns.local.Clear()

	if c.remote == nil {
		return
	}
	keys, err := c.remote.KeysMatching(ctx, remoteKey(name, "*"))
	if err != nil {
		c.recordError(ns, "keys", err)
		return
	}
	if err := c.remote.Delete(ctx, keys...); err != nil {
		c.recordError(ns, "delete", err)
		return
	}
	c.logger.Debug().Str("namespace", name).Int("remote_keys", len(keys)).Msg("namespace invalidated")
}

// Flush empties every namespace in both tiers.
func (c *EmbeddingCache) Flush(ctx context.Context) {
	for _, ns := range c.namespaces {
		ns.local.Clear()
	}
	if c.remote != nil {
		if err := c.remote.Flush(ctx); err != nil {
			c.recordError(c.ns(NamespaceEmbeddings), "flush", err)
		}
	}
}

// Stats returns a snapshot of per-namespace counters and updates the entry
// gauges.
func (c *EmbeddingCache) Stats() Stats {
	st := Stats{
		Remote:     c.remote != nil,
		Namespaces: make(map[string]NamespaceStats, len(c.namespaces)),
	}
	for name, ns := range c.namespaces {
		entries := ns.local.Len()
		metrics.CacheEntries.WithLabelValues(name).Set(float64(entries))
		st.Namespaces[name] = NamespaceStats{
			Entries:    entries,
			Hits:       ns.stats.hits.Load(),
			RemoteHits: ns.stats.remoteHits.Load(),
			Misses:     ns.stats.misses.Load(),
			Evictions:  ns.stats.evictions.Load(),
			Errors:     ns.stats.errors.Load(),
		}
	}
	return st
}

// Sweep purges expired process-tier entries in every namespace. The remote
// tier expires entries on its own.
func (c *EmbeddingCache) Sweep() int {
	removed := 0
	for _, ns := range c.namespaces {
		removed += ns.local.Sweep()
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is cancelled. A
// non-positive interval uses the configured sweep interval.
func (c *EmbeddingCache) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = c.interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.logger.Debug().Int("removed", n).Msg("expired cache entries swept")
			}
			c.Stats()
		}
	}
}

// Close releases the remote tier.
func (c *EmbeddingCache) Close() error {
	if c.remote == nil {
		return nil
	}
	return c.remote.Close()
}
