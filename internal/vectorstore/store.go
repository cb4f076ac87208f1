// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vectorcast/internal/metrics"
	"github.com/tomtom215/vectorcast/internal/models"
)

// Store is the DuckDB-backed vector store.
type Store struct {
	db     *sqlx.DB
	cfg    Config
	logger zerolog.Logger

	vssAvailable bool
	ftsAvailable bool

	// ftsDirty is set by writes; the BM25 index is rebuilt lazily because
	// DuckDB's fts index is not maintained incrementally.
	ftsDirty atomic.Bool
	ftsMu    sync.Mutex
}

// Open connects to DuckDB, loads optional extensions and creates the schema.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vectorstore config: %w", err)
	}

	if !cfg.InMemory() {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	// Auto-install is disabled so extension loading happens only through
	// installExtensions with its hard timeouts.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, threads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, &models.StoreError{Op: "open", Err: err}
	}
	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	s := newStore(sqlx.NewDb(conn, "duckdb"), cfg, logger)
	if err := s.initialize(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func newStore(db *sqlx.DB, cfg Config, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		cfg:    cfg,
		logger: logger.With().Str("component", "vectorstore").Logger(),
	}
}

func (s *Store) initialize(ctx context.Context) error {
	s.installExtensions()

	if err := s.createSchema(ctx); err != nil {
		return err
	}
	if s.vssAvailable {
		if err := s.createHNSWIndexes(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("HNSW index creation failed, using exact scans")
			s.vssAvailable = false
		}
	}
	if s.ftsAvailable {
		s.ftsDirty.Store(true)
	}

	s.logger.Info().
		Str("path", s.cfg.Path).
		Int("dimensions", s.cfg.Dimensions).
		Bool("vss", s.vssAvailable).
		Bool("fts", s.ftsAvailable).
		Msg("vector store ready")
	return nil
}

// Dimensions returns the configured vector dimension.
func (s *Store) Dimensions() int {
	return s.cfg.Dimensions
}

// VSSAvailable reports whether HNSW indexes are in use.
func (s *Store) VSSAvailable() bool {
	return s.vssAvailable
}

// FTSAvailable reports whether BM25 scoring is in use.
func (s *Store) FTSAvailable() bool {
	return s.ftsAvailable
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &models.StoreError{Op: "ping", Err: err}
	}
	return nil
}

// Close checkpoints file-backed databases and closes the connection pool.
func (s *Store) Close() error {
	if !s.cfg.InMemory() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := s.db.ExecContext(ctx, "CHECKPOINT"); err != nil {
			s.logger.Warn().Err(err).Msg("failed to checkpoint database before close")
		}
		cancel()
	}
	return s.db.Close()
}

// Maintain flushes the WAL and rebuilds the full-text index if writes
// happened since the last rebuild.
func (s *Store) Maintain(ctx context.Context) error {
	if !s.cfg.InMemory() {
		if err := s.exec(ctx, "checkpoint", "CHECKPOINT"); err != nil {
			return err
		}
	}
	return s.refreshFTS(ctx)
}

// observe records query metrics and wraps err as a StoreError.
func (s *Store) observe(op string, start time.Time, err error) error {
	metrics.RecordStoreQuery(op, time.Since(start), err)
	if err == nil {
		return nil
	}
	return &models.StoreError{Op: op, Err: err}
}

func (s *Store) exec(ctx context.Context, op, query string, args ...interface{}) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, query, args...)
	return s.observe(op, start, err)
}

// withConflictRetry retries fn on DuckDB optimistic-concurrency conflicts.
func withConflictRetry(ctx context.Context, fn func() error) error {
	const maxAttempts = 3
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = fn(); err == nil || !isTransactionConflict(err) {
			return err
		}
		select {
		case <-time.After(time.Millisecond * time.Duration(1<<uint(attempt))):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("max retries exceeded: %w", err)
}

// isTransactionConflict checks if an error is a DuckDB transaction conflict
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on update") ||
		strings.Contains(msg, "Conflict on tuple deletion")
}
