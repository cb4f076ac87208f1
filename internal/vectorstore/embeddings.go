// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"

	"github.com/tomtom215/vectorcast/internal/metrics"
	"github.com/tomtom215/vectorcast/internal/models"
)

// Record is a stored item with its lifecycle state.
type Record struct {
	models.ProcessedEmbedding
	Status      models.ProcessingStatus `json:"status"`
	LastError   string                  `json:"last_error,omitempty"`
	ProcessedAt time.Time               `json:"processed_at,omitempty"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// Stats counts stored items per processing status.
type Stats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Stale     int64 `json:"stale"`
}

type embeddingRow struct {
	ItemKey              string          `db:"item_key"`
	ExternalID           string          `db:"external_id"`
	Platform             string          `db:"platform"`
	Title                string          `db:"title"`
	Description          sql.NullString  `db:"description"`
	Tags                 sql.NullString  `db:"tags"`
	Category             sql.NullString  `db:"category"`
	DurationSeconds      sql.NullFloat64 `db:"duration_seconds"`
	PublishedAt          sql.NullTime    `db:"published_at"`
	ViewCount            sql.NullInt64   `db:"view_count"`
	TitleEmbedding       Vector          `db:"title_embedding"`
	DescriptionEmbedding Vector          `db:"description_embedding"`
	CombinedEmbedding    Vector          `db:"combined_embedding"`
	QualityScore         sql.NullFloat64 `db:"quality_score"`
	Status               string          `db:"processing_status"`
	LastError            sql.NullString  `db:"last_error"`
	TokenUsage           sql.NullString  `db:"token_usage"`
	ProcessingMS         sql.NullInt64   `db:"processing_ms"`
	ProcessedAt          sql.NullTime    `db:"processed_at"`
	UpdatedAt            time.Time       `db:"updated_at"`
}

const recordColumns = `item_key, external_id, platform, title, description, tags, category,
	duration_seconds, published_at, view_count, title_embedding, description_embedding,
	combined_embedding, quality_score, processing_status, last_error, token_usage,
	processing_ms, processed_at, updated_at`

const metadataColumns = `external_id, platform, title, description, tags, category,
	duration_seconds, published_at, view_count`

// metadataRow is the metadata subset of a stored item.
type metadataRow struct {
	ExternalID      string          `db:"external_id"`
	Platform        string          `db:"platform"`
	Title           string          `db:"title"`
	Description     sql.NullString  `db:"description"`
	Tags            sql.NullString  `db:"tags"`
	Category        sql.NullString  `db:"category"`
	DurationSeconds sql.NullFloat64 `db:"duration_seconds"`
	PublishedAt     sql.NullTime    `db:"published_at"`
	ViewCount       sql.NullInt64   `db:"view_count"`
}

func (r *metadataRow) toModel() models.ContentMetadata {
	return models.ContentMetadata{
		ExternalID:  r.ExternalID,
		Platform:    r.Platform,
		Title:       r.Title,
		Description: r.Description.String,
		Tags:        decodeTags(r.Tags),
		Category:    r.Category.String,
		Duration:    time.Duration(r.DurationSeconds.Float64 * float64(time.Second)),
		PublishedAt: r.PublishedAt.Time,
		ViewCount:   r.ViewCount.Int64,
	}
}

func (r *embeddingRow) toRecord() *Record {
	meta := metadataRow{
		ExternalID: r.ExternalID, Platform: r.Platform, Title: r.Title,
		Description: r.Description, Tags: r.Tags, Category: r.Category,
		DurationSeconds: r.DurationSeconds, PublishedAt: r.PublishedAt, ViewCount: r.ViewCount,
	}

	rec := &Record{
		ProcessedEmbedding: models.ProcessedEmbedding{
			Metadata:             meta.toModel(),
			TitleEmbedding:       r.TitleEmbedding,
			DescriptionEmbedding: r.DescriptionEmbedding,
			CombinedEmbedding:    r.CombinedEmbedding,
			QualityScore:         r.QualityScore.Float64,
			ProcessingTime:       time.Duration(r.ProcessingMS.Int64) * time.Millisecond,
			CreatedAt:            r.ProcessedAt.Time,
		},
		Status:      models.ProcessingStatus(r.Status),
		LastError:   r.LastError.String,
		ProcessedAt: r.ProcessedAt.Time,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.TokenUsage.Valid {
		_ = json.Unmarshal([]byte(r.TokenUsage.String), &rec.TokenUsage)
	}
	return rec
}

func encodeTags(tags []string) interface{} {
	if len(tags) == 0 {
		return nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil
	}
	return string(b)
}

func decodeTags(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(s.String), &tags); err != nil {
		return nil
	}
	return tags
}

func nullableString(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func (s *Store) checkDimension(field string, v []float32, required bool) error {
	if v == nil && !required {
		return nil
	}
	if len(v) != s.cfg.Dimensions {
		return models.NewValidationError(field, "dimension %d, expected %d", len(v), s.cfg.Dimensions)
	}
	return nil
}

// Upsert stores a processed embedding as COMPLETED, replacing any previous
// row for the same item. Safe to retry.
func (s *Store) Upsert(ctx context.Context, emb *models.ProcessedEmbedding) error {
	if emb == nil {
		return models.NewValidationError("embedding", "nil")
	}
	if err := s.checkDimension("title_embedding", emb.TitleEmbedding, true); err != nil {
		return err
	}
	if err := s.checkDimension("combined_embedding", emb.CombinedEmbedding, true); err != nil {
		return err
	}
	if err := s.checkDimension("description_embedding", emb.DescriptionEmbedding, false); err != nil {
		return err
	}

	m := emb.Metadata
	usage, _ := json.Marshal(emb.TokenUsage)
	processedAt := emb.CreatedAt
	if processedAt.IsZero() {
		processedAt = time.Now()
	}
	now := time.Now().UTC()
	dim := s.cfg.Dimensions

	update := fmt.Sprintf(`UPDATE video_embeddings SET
			title = ?, description = ?, tags = ?, category = ?, duration_seconds = ?,
			published_at = ?, view_count = ?,
			title_embedding = ?::FLOAT[%[1]d], description_embedding = ?::FLOAT[%[1]d],
			combined_embedding = ?::FLOAT[%[1]d],
			quality_score = ?, processing_status = 'COMPLETED', last_error = NULL,
			token_usage = ?, processing_ms = ?, processed_at = ?, updated_at = ?
		WHERE item_key = ?`, dim)

	insert := fmt.Sprintf(`INSERT INTO video_embeddings (
			item_key, external_id, platform, title, description, tags, category,
			duration_seconds, published_at, view_count,
			title_embedding, description_embedding, combined_embedding,
			quality_score, processing_status, last_error, token_usage, processing_ms,
			processed_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?::FLOAT[%[1]d], ?::FLOAT[%[1]d], ?::FLOAT[%[1]d],
			?, 'COMPLETED', NULL, ?, ?, ?, ?)`, dim)

	fields := []interface{}{
		m.Title, nullableString(m.Description), encodeTags(m.Tags), nullableString(m.Category),
		m.Duration.Seconds(), nullableTime(m.PublishedAt), m.ViewCount,
	}
	vectors := []interface{}{
		literal(emb.TitleEmbedding), literal(emb.DescriptionEmbedding), literal(emb.CombinedEmbedding),
	}
	tail := []interface{}{
		emb.QualityScore, string(usage), emb.ProcessingTime.Milliseconds(), processedAt.UTC(), now,
	}

	updateArgs := append(append(append([]interface{}{}, fields...), vectors...), tail...)
	updateArgs = append(updateArgs, m.Key())

	insertArgs := append([]interface{}{m.Key(), m.ExternalID, m.Platform}, fields...)
	insertArgs = append(append(insertArgs, vectors...), tail...)

	start := time.Now()
	err := withConflictRetry(ctx, func() error {
		return s.updateOrInsert(ctx, update, updateArgs, insert, insertArgs)
	})
	if err = s.observe("upsert", start, err); err != nil {
		return err
	}
	s.markWritten()
	return nil
}

// updateOrInsert runs update and falls back to insert when no row matched,
// inside one transaction. ON CONFLICT DO UPDATE cannot be used because DuckDB
// refuses to assign indexed columns (processing_status, HNSW vectors) there.
func (s *Store) updateOrInsert(ctx context.Context, update string, updateArgs []interface{}, insert string, insertArgs []interface{}) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, update, updateArgs...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := tx.ExecContext(ctx, insert, insertArgs...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Register records catalog items that still need embeddings. New items are
// inserted as PENDING. Existing items get their metadata refreshed; a
// COMPLETED item whose title, description or tags changed becomes STALE.
func (s *Store) Register(ctx context.Context, items []models.ContentMetadata) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	const update = `UPDATE video_embeddings SET
			processing_status = CASE
				WHEN processing_status = 'COMPLETED' AND (
					title IS DISTINCT FROM ? OR description IS DISTINCT FROM ? OR tags IS DISTINCT FROM ?
				) THEN 'STALE'
				ELSE processing_status END,
			title = ?, description = ?, tags = ?, category = ?, duration_seconds = ?,
			published_at = ?, view_count = ?, updated_at = ?
		WHERE item_key = ?`

	const insert = `INSERT INTO video_embeddings (
			item_key, external_id, platform, title, description, tags, category,
			duration_seconds, published_at, view_count, processing_status, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'PENDING', ?)`

	start := time.Now()
	inserted := 0
	err := withConflictRetry(ctx, func() error {
		inserted = 0
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		now := time.Now().UTC()
		for i := range items {
			m := &items[i]
			desc, tags := nullableString(m.Description), encodeTags(m.Tags)
			res, err := tx.ExecContext(ctx, update,
				m.Title, desc, tags,
				m.Title, desc, tags, nullableString(m.Category), m.Duration.Seconds(),
				nullableTime(m.PublishedAt), m.ViewCount, now, m.Key())
			if err != nil {
				return fmt.Errorf("update %s: %w", m.Key(), err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n > 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx, insert,
				m.Key(), m.ExternalID, m.Platform, m.Title, desc, tags, nullableString(m.Category),
				m.Duration.Seconds(), nullableTime(m.PublishedAt), m.ViewCount, now); err != nil {
				return fmt.Errorf("insert %s: %w", m.Key(), err)
			}
			inserted++
		}
		return tx.Commit()
	})
	if err = s.observe("register", start, err); err != nil {
		return 0, err
	}
	s.markWritten()
	return inserted, nil
}

// MarkFailed records a terminal processing failure for an item.
func (s *Store) MarkFailed(ctx context.Context, externalID, platform, reason string) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `UPDATE video_embeddings
		SET processing_status = 'FAILED', last_error = ?, updated_at = ?
		WHERE item_key = ?`, truncate(reason, 2000), time.Now().UTC(), models.ItemKey(platform, externalID))
	return s.observe("mark_failed", start, err)
}

// MarkStale flags COMPLETED items processed more than olderThan ago as
// STALE and returns how many rows changed.
func (s *Store) MarkStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	now := time.Now().UTC()
	start := time.Now()
	res, err := s.db.ExecContext(ctx, `UPDATE video_embeddings
		SET processing_status = 'STALE', updated_at = ?
		WHERE processing_status = 'COMPLETED' AND processed_at < ?`, now, now.Add(-olderThan))
	if err = s.observe("mark_stale", start, err); err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &models.StoreError{Op: "mark_stale", Err: err}
	}
	if n > 0 {
		s.logger.Info().Int64("items", n).Dur("older_than", olderThan).Msg("marked embeddings stale")
	}
	return n, nil
}

// GetItemsNeedingProcessing returns up to limit items in priority order:
// PENDING, then STALE, then FAILED, most recently updated first within each.
func (s *Store) GetItemsNeedingProcessing(ctx context.Context, limit int) ([]models.ContentMetadata, error) {
	if limit <= 0 {
		return nil, nil
	}

	var rows []metadataRow
	start := time.Now()
	err := s.db.SelectContext(ctx, &rows, `SELECT `+metadataColumns+`
		FROM video_embeddings
		WHERE processing_status IN ('PENDING', 'STALE', 'FAILED')
		ORDER BY CASE processing_status WHEN 'PENDING' THEN 0 WHEN 'STALE' THEN 1 ELSE 2 END,
			updated_at DESC
		LIMIT ?`, limit)
	if err = s.observe("items_needing_processing", start, err); err != nil {
		return nil, err
	}

	out := make([]models.ContentMetadata, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

// Get returns the stored record for an item or an error wrapping
// models.ErrNotFound.
func (s *Store) Get(ctx context.Context, externalID, platform string) (*Record, error) {
	var row embeddingRow
	start := time.Now()
	err := s.db.GetContext(ctx, &row, `SELECT `+recordColumns+` FROM video_embeddings WHERE item_key = ?`,
		models.ItemKey(platform, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordStoreQuery("get", time.Since(start), nil)
		return nil, fmt.Errorf("item %s: %w", models.ItemKey(platform, externalID), models.ErrNotFound)
	}
	if err = s.observe("get", start, err); err != nil {
		return nil, err
	}
	return row.toRecord(), nil
}

// Exists reports whether a COMPLETED embedding is stored for the item.
func (s *Store) Exists(ctx context.Context, externalID, platform string) (bool, error) {
	var n int
	start := time.Now()
	err := s.db.GetContext(ctx, &n, `SELECT count(*) FROM video_embeddings
		WHERE item_key = ? AND processing_status = 'COMPLETED'`, models.ItemKey(platform, externalID))
	if err = s.observe("exists", start, err); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Stats counts items per processing status and updates the status gauges.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var rows []struct {
		Status string `db:"processing_status"`
		Count  int64  `db:"n"`
	}
	start := time.Now()
	err := s.db.SelectContext(ctx, &rows,
		`SELECT processing_status, count(*) AS n FROM video_embeddings GROUP BY processing_status`)
	if err = s.observe("stats", start, err); err != nil {
		return nil, err
	}

	st := &Stats{}
	for _, r := range rows {
		st.Total += r.Count
		switch models.ProcessingStatus(r.Status) {
		case models.StatusPending:
			st.Pending = r.Count
		case models.StatusCompleted:
			st.Completed = r.Count
		case models.StatusFailed:
			st.Failed = r.Count
		case models.StatusStale:
			st.Stale = r.Count
		}
	}

	metrics.StoreItemsByStatus.WithLabelValues(string(models.StatusPending)).Set(float64(st.Pending))
	metrics.StoreItemsByStatus.WithLabelValues(string(models.StatusCompleted)).Set(float64(st.Completed))
	metrics.StoreItemsByStatus.WithLabelValues(string(models.StatusFailed)).Set(float64(st.Failed))
	metrics.StoreItemsByStatus.WithLabelValues(string(models.StatusStale)).Set(float64(st.Stale))
	return st, nil
}

// DB exposes the underlying handle for tests and diagnostics.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
