// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package cache

import (
	"fmt"
	"time"
)

// Namespace names.
const (
	NamespaceEmbeddings = "embeddings"
	NamespaceSimilarity = "similarity"
	NamespaceMetadata   = "metadata"
)

// Remote backends.
const (
	BackendNone   = "none"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// NamespaceConfig bounds one namespace.
type NamespaceConfig struct {
	TTL        time.Duration `koanf:"ttl"`
	MaxEntries int           `koanf:"max_entries"`
}

// RedisConfig configures the Redis remote tier.
type RedisConfig struct {
	Addr        string        `koanf:"addr"`
	Password    string        `koanf:"password"`
	DB          int           `koanf:"db"`
	KeyPrefix   string        `koanf:"key_prefix"`
	DialTimeout time.Duration `koanf:"dial_timeout"`
	OpTimeout   time.Duration `koanf:"op_timeout"`
}

// BadgerConfig configures the embedded remote tier.
type BadgerConfig struct {
	Path      string `koanf:"path"`
	InMemory  bool   `koanf:"in_memory"`
	KeyPrefix string `koanf:"key_prefix"`
}

// Config holds cache settings.
type Config struct {
	Backend       string          `koanf:"backend"`
	SweepInterval time.Duration   `koanf:"sweep_interval"`
	Embeddings    NamespaceConfig `koanf:"embeddings"`
	Similarity    NamespaceConfig `koanf:"similarity"`
	Metadata      NamespaceConfig `koanf:"metadata"`
	Redis         RedisConfig     `koanf:"redis"`
	Badger        BadgerConfig    `koanf:"badger"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendNone,
		SweepInterval: 5 * time.Minute,
		Embeddings:    NamespaceConfig{TTL: 24 * time.Hour, MaxEntries: 10000},
		Similarity:    NamespaceConfig{TTL: time.Hour, MaxEntries: 5000},
		Metadata:      NamespaceConfig{TTL: 6 * time.Hour, MaxEntries: 20000},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			KeyPrefix:   "vectorcast:",
			DialTimeout: 5 * time.Second,
			OpTimeout:   500 * time.Millisecond,
		},
		Badger: BadgerConfig{
			Path:      "data/cache",
			KeyPrefix: "cache:",
		},
	}
}

func (c *Config) namespaces() map[string]NamespaceConfig {
	return map[string]NamespaceConfig{
		NamespaceEmbeddings: c.Embeddings,
		NamespaceSimilarity: c.Similarity,
		NamespaceMetadata:   c.Metadata,
	}
}

// Validate checks the cache configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendNone, "":
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("cache redis addr is required for backend %q", c.Backend)
		}
	case BackendBadger:
		if c.Badger.Path == "" && !c.Badger.InMemory {
			return fmt.Errorf("cache badger path is required for backend %q", c.Backend)
		}
	default:
		return fmt.Errorf("cache backend must be one of none, redis, badger: got %q", c.Backend)
	}
	for name, ns := range c.namespaces() {
		if ns.TTL <= 0 {
			return fmt.Errorf("cache %s ttl must be positive", name)
		}
		if ns.MaxEntries < 1 {
			return fmt.Errorf("cache %s max_entries must be at least 1", name)
		}
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("cache sweep_interval must be positive")
	}
	return nil
}
