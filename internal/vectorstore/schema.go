// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package vectorstore

import (
	"context"
	"fmt"
	"time"
)

const embeddingsTable = "video_embeddings"

// vectorColumns are the embedding columns that may be searched.
var vectorColumns = map[string]bool{
	"combined_embedding":    true,
	"title_embedding":       true,
	"description_embedding": true,
}

func (s *Store) schemaStatements() []string {
	dim := s.cfg.Dimensions
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS video_embeddings (
			item_key VARCHAR PRIMARY KEY,
			external_id VARCHAR NOT NULL,
			platform VARCHAR NOT NULL,
			title VARCHAR NOT NULL,
			description VARCHAR,
			tags VARCHAR,
			category VARCHAR,
			duration_seconds DOUBLE,
			published_at TIMESTAMP,
			view_count BIGINT DEFAULT 0,
			title_embedding FLOAT[%[1]d],
			description_embedding FLOAT[%[1]d],
			combined_embedding FLOAT[%[1]d],
			quality_score DOUBLE DEFAULT 0,
			processing_status VARCHAR NOT NULL DEFAULT 'PENDING',
			last_error VARCHAR,
			token_usage VARCHAR,
			processing_ms BIGINT,
			processed_at TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`, dim),
		`CREATE INDEX IF NOT EXISTS idx_video_embeddings_platform_status
			ON video_embeddings (platform, processing_status)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS user_preferences (
			user_id VARCHAR PRIMARY KEY,
			embedding FLOAT[%d] NOT NULL,
			confidence DOUBLE NOT NULL DEFAULT 0,
			interaction_count INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`, dim),
	}
}

func (s *Store) createSchema(ctx context.Context) error {
	for _, stmt := range s.schemaStatements() {
		if err := s.exec(ctx, "create_schema", stmt); err != nil {
			return err
		}
	}
	return nil
}

// createHNSWIndexes builds one cosine HNSW index per vector column.
func (s *Store) createHNSWIndexes(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("SET hnsw_ef_search = %d", s.cfg.HNSWEfSearch)); err != nil {
		return fmt.Errorf("set hnsw_ef_search: %w", err)
	}

	for column := range vectorColumns {
		stmt := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_hnsw ON %[2]s USING HNSW (%[1]s)
			WITH (metric = 'cosine', M = %[3]d, ef_construction = %[4]d, ef_search = %[5]d)`,
			column, embeddingsTable, s.cfg.HNSWM, s.cfg.HNSWEfConstruction, s.cfg.HNSWEfSearch)
		if err := s.exec(ctx, "create_hnsw_index", stmt); err != nil {
			return err
		}
	}
	return nil
}

// refreshFTS rebuilds the BM25 index when writes happened since the last
// build. It is a no-op without the fts extension.
func (s *Store) refreshFTS(ctx context.Context) error {
	if !s.ftsAvailable || !s.ftsDirty.Load() {
		return nil
	}

	s.ftsMu.Lock()
	defer s.ftsMu.Unlock()

	if !s.ftsDirty.Load() {
		return nil
	}

	start := time.Now()
	err := s.exec(ctx, "refresh_fts",
		`PRAGMA create_fts_index('video_embeddings', 'item_key', 'title', 'description', 'tags', overwrite = 1)`)
	if err != nil {
		return err
	}
	s.ftsDirty.Store(false)
	s.logger.Debug().Dur("duration", time.Since(start)).Msg("full-text index rebuilt")
	return nil
}

func (s *Store) markWritten() {
	if s.ftsAvailable {
		s.ftsDirty.Store(true)
	}
}
