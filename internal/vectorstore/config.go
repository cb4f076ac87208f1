// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package vectorstore

import (
	"errors"
	"fmt"
	"time"
)

// Config holds DuckDB connection and index settings.
type Config struct {
	Path      string `koanf:"path"`
	Threads   int    `koanf:"threads"`
	MaxMemory string `koanf:"max_memory"`

	// Dimensions must match the provider's embedding dimension.
	Dimensions int `koanf:"dimensions"`

	EnableVSS bool `koanf:"enable_vss"`
	EnableFTS bool `koanf:"enable_fts"`

	HNSWM              int `koanf:"hnsw_m"`
	HNSWEfConstruction int `koanf:"hnsw_ef_construction"`
	HNSWEfSearch       int `koanf:"hnsw_ef_search"`

	ExtensionTimeout time.Duration `koanf:"extension_timeout"`

	// HybridCandidates is the minimum semantic candidate pool re-ranked by
	// HybridSearch.
	HybridCandidates int `koanf:"hybrid_candidates"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Path:               "data/vectorcast.duckdb",
		MaxMemory:          "2GB",
		Dimensions:         1536,
		EnableVSS:          true,
		EnableFTS:          true,
		HNSWM:              16,
		HNSWEfConstruction: 128,
		HNSWEfSearch:       64,
		ExtensionTimeout:   30 * time.Second,
		HybridCandidates:   100,
	}
}

// Validate checks the vector store configuration.
func (c *Config) Validate() error {
	if c.Path == "" {
		return errors.New("vectorstore path is required")
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("vectorstore dimensions must be positive, got %d", c.Dimensions)
	}
	if c.EnableVSS && (c.HNSWM < 2 || c.HNSWEfConstruction < 1 || c.HNSWEfSearch < 1) {
		return fmt.Errorf("vectorstore HNSW parameters invalid: M=%d ef_construction=%d ef_search=%d",
			c.HNSWM, c.HNSWEfConstruction, c.HNSWEfSearch)
	}
	if c.ExtensionTimeout <= 0 {
		return errors.New("vectorstore extension_timeout must be positive")
	}
	if c.HybridCandidates < 1 {
		return errors.New("vectorstore hybrid_candidates must be at least 1")
	}
	return nil
}

// InMemory reports whether the store is backed by an in-memory database.
func (c *Config) InMemory() bool {
	return c.Path == ":memory:"
}
