// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vectorcast/internal/cache"
	"github.com/tomtom215/vectorcast/internal/config"
	"github.com/tomtom215/vectorcast/internal/embedding"
	"github.com/tomtom215/vectorcast/internal/jobqueue"
	"github.com/tomtom215/vectorcast/internal/pipeline"
	"github.com/tomtom215/vectorcast/internal/processor"
	"github.com/tomtom215/vectorcast/internal/search"
	"github.com/tomtom215/vectorcast/internal/vectorstore"
)

// components holds everything built from configuration. Close releases them
// in reverse construction order.
type components struct {
	store    *vectorstore.Store
	jobStore *jobqueue.Store
	cache    *cache.EmbeddingCache
	queue    *jobqueue.Queue
	engine   *search.Engine
}

// buildComponents constructs the data path: provider, processor, vector
// store, cache, pipeline, job queue and search engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func buildComponents(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (c *components, err error) {
	c = &components{}
	defer func() {
		if err != nil {
			if closeErr := c.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("Cleanup after failed startup")
			}
			c = nil
		}
	}()

	client, err := embedding.NewClient(cfg.Provider, logger)
	if err != nil {
		return c, fmt.Errorf("embedding provider: %w", err)
	}

	proc, err := processor.New(cfg.Processor, client, cfg.Provider.Bounds(), logger)
	if err != nil {
		return c, fmt.Errorf("processor: %w", err)
	}

	c.store, err = vectorstore.Open(ctx, cfg.Store, logger)
	if err != nil {
		return c, fmt.Errorf("vector store: %w", err)
	}
	logger.Info().
		Str("path", cfg.Store.Path).
		Bool("vss", c.store.VSSAvailable()).
		Bool("fts", c.store.FTSAvailable()).
		Int("dimensions", c.store.Dimensions()).
		Msg("Vector store opened")

	c.jobStore, err = jobqueue.OpenStore(cfg.JobQueue)
	if err != nil {
		return c, fmt.Errorf("job store: %w", err)
	}

	c.cache, err = openCache(ctx, cfg, c.jobStore, logger)
	if err != nil {
		return c, err
	}

	pipe, err := pipeline.New(cfg.Pipeline, proc, c.store, logger)
	if err != nil {
		return c, fmt.Errorf("pipeline: %w", err)
	}

	c.queue, err = jobqueue.New(cfg.JobQueue, c.jobStore, logger)
	if err != nil {
		return c, fmt.Errorf("job queue: %w", err)
	}
	c.queue.RegisterPipelineHandlers(pipe, c.store)

	c.engine, err = search.New(cfg.Search, client, c.store, c.cache, logger)
	if err != nil {
		return c, fmt.Errorf("search engine: %w", err)
	}

	return c, nil
}

// openCache builds the two-tier cache. The remote tier is optional: when it
// cannot be opened the cache runs on the process tier alone.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func openCache(ctx context.Context, cfg *config.Config, jobStore *jobqueue.Store, logger zerolog.Logger) (*cache.EmbeddingCache, error) {
	backend := cfg.Cache.Backend
	remote, err := openRemoteCache(ctx, cfg, jobStore)
	if err != nil {
		logger.Warn().Err(err).Str("backend", backend).
			Msg("Cache remote tier unavailable, continuing with process tier only")
		remote, backend = nil, cache.BackendNone
	}

	c, err := cache.New(cfg.Cache, remote, logger)
	if err != nil {
		if remote != nil {
			_ = remote.Close()
		}
		return nil, fmt.Errorf("cache: %w", err)
	}
	logger.Info().Str("backend", backend).Msg("Embedding cache ready")
	return c, nil
}

// openRemoteCache opens the configured remote tier. Badger cannot open one
// directory twice, so a badger cache pointed at the job queue's directory
// shares the job store's database under its own key prefix.
func openRemoteCache(ctx context.Context, cfg *config.Config, jobStore *jobqueue.Store) (cache.RemoteStore, error) {
	if cfg.Cache.Backend == cache.BackendBadger && jobStore != nil && !cfg.Cache.Badger.InMemory && !cfg.JobQueue.InMemory &&
		filepath.Clean(cfg.Cache.Badger.Path) == filepath.Clean(cfg.JobQueue.Path) {
		return cache.NewBadgerStore(jobStore.DB(), cfg.Cache.Badger.KeyPrefix), nil
	}
	remote, err := cache.NewRemoteStore(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	return remote, nil
}

// Close releases all components. Safe on a partially built value.
func (c *components) Close() error {
	var errs []error
	if c.queue != nil {
		c.queue.Stop()
	}
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if c.jobStore != nil {
		if err := c.jobStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close job store: %w", err))
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close vector store: %w", err))
		}
	}
	return errors.Join(errs...)
}
