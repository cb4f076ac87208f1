// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/jmoiron/sqlx"

	"github.com/tomtom215/vectorcast/internal/metrics"
	"github.com/tomtom215/vectorcast/internal/models"
)

// similarityEpsilon absorbs float32 rounding so an item matches itself at
// threshold 1.0.
const similarityEpsilon = 1e-6

// FindOptions filters a nearest-neighbor query.
type FindOptions struct {
	Limit     int
	Threshold float64
	Platform  string
	Category  string
	// ExcludeIDs lists external IDs left out of the results.
	ExcludeIDs []string
	// Column is the vector column searched; empty means combined_embedding.
	Column string
}

// HybridOptions configures HybridSearch.
type HybridOptions struct {
	SemanticWeight float64
	Limit          int
	Threshold      float64
	Platform       string
	Category       string
	ExcludeIDs     []string
}

// PopularOptions filters Popular.
type PopularOptions struct {
	Limit      int
	Platform   string
	Category   string
	ExcludeIDs []string
	// Since drops items published before it when non-zero.
	Since time.Time
}

type similarityRow struct {
	ItemKey      string          `db:"item_key"`
	ExternalID   string          `db:"external_id"`
	Platform     string          `db:"platform"`
	Title        string          `db:"title"`
	Description  sql.NullString  `db:"description"`
	Category     sql.NullString  `db:"category"`
	Tags         sql.NullString  `db:"tags"`
	PublishedAt  sql.NullTime    `db:"published_at"`
	ViewCount    sql.NullInt64   `db:"view_count"`
	QualityScore sql.NullFloat64 `db:"quality_score"`
	Similarity   float64         `db:"similarity"`
}

func (r *similarityRow) toResult() models.SimilarityResult {
	sim := r.Similarity
	if sim > 1 {
		sim = 1
	}
	return models.SimilarityResult{
		ExternalID: r.ExternalID,
		Platform:   r.Platform,
		Similarity: sim,
		Metadata: &models.ItemMetadata{
			Title:        r.Title,
			Category:     r.Category.String,
			Tags:         decodeTags(r.Tags),
			PublishedAt:  r.PublishedAt.Time,
			ViewCount:    r.ViewCount.Int64,
			QualityScore: r.QualityScore.Float64,
		},
	}
}

func (s *Store) checkQuery(query []float32) error {
	if err := s.checkDimension("query", query, true); err != nil {
		return err
	}
	for i, x := range query {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return models.NewValidationError("query", "non-finite value at index %d", i)
		}
	}
	return nil
}

// FindSimilar returns stored items whose vectors have cosine similarity of at
// least opts.Threshold with query, most similar first. Items without a vector
// in the searched column are never returned.
func (s *Store) FindSimilar(ctx context.Context, query []float32, opts FindOptions) ([]models.SimilarityResult, error) {
	start := time.Now()
	rows, err := s.similar(ctx, query, opts)
	metrics.RecordSearch("find_similar", time.Since(start))
	if err != nil {
		return nil, err
	}

	out := make([]models.SimilarityResult, len(rows))
	for i := range rows {
		out[i] = rows[i].toResult()
	}
	return out, nil
}

func (s *Store) similar(ctx context.Context, query []float32, opts FindOptions) ([]similarityRow, error) {
	if err := s.checkQuery(query); err != nil {
		return nil, err
	}
	if opts.Limit <= 0 {
		return nil, models.NewValidationError("limit", "must be positive, got %d", opts.Limit)
	}
	column := opts.Column
	if column == "" {
		column = "combined_embedding"
	}
	if !vectorColumns[column] {
		return nil, models.NewValidationError("column", "unknown vector column %q", column)
	}

	vec := literal(query)
	distance := fmt.Sprintf("array_cosine_distance(%s, ?::FLOAT[%d])", column, s.cfg.Dimensions)

	var where []string
	args := []interface{}{vec}
	where = append(where, column+" IS NOT NULL")
	if opts.Platform != "" {
		where = append(where, "platform = ?")
		args = append(args, opts.Platform)
	}
	if opts.Category != "" {
		where = append(where, "category = ?")
		args = append(args, opts.Category)
	}
	if len(opts.ExcludeIDs) > 0 {
		where = append(where, "external_id NOT IN (?)")
		args = append(args, opts.ExcludeIDs)
	}
	args = append(args, vec, opts.Limit, opts.Threshold-similarityEpsilon)

	// The inner ORDER BY distance LIMIT shape is what the HNSW optimizer
	// rewrites into an index scan.
	q := fmt.Sprintf(`SELECT * FROM (
			SELECT item_key, external_id, platform, title, description, category, tags,
				published_at, view_count, quality_score, 1 - %[1]s AS similarity
			FROM video_embeddings
			WHERE %[2]s
			ORDER BY %[1]s
			LIMIT ?
		) WHERE similarity >= ?
		ORDER BY similarity DESC, item_key`, distance, strings.Join(where, " AND "))

	start := time.Now()
	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, s.observe("find_similar", start, err)
	}

	var rows []similarityRow
	err = s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...)
	if err = s.observe("find_similar", start, err); err != nil {
		return nil, err
	}
	return rows, nil
}

// HybridSearch blends vector similarity with lexical relevance of text:
// score = w*semantic + (1-w)*lexical. Lexical relevance is BM25 normalized by
// the best candidate when the fts extension is loaded, otherwise the fraction
// of query terms found in title, description or tags.
func (s *Store) HybridSearch(ctx context.Context, query []float32, text string, opts HybridOptions) ([]models.SimilarityResult, error) {
	if opts.SemanticWeight < 0 || opts.SemanticWeight > 1 {
		return nil, models.NewValidationError("semantic_weight", "must be within [0,1], got %g", opts.SemanticWeight)
	}
	if opts.Limit <= 0 {
		return nil, models.NewValidationError("limit", "must be positive, got %d", opts.Limit)
	}

	start := time.Now()
	defer func() { metrics.RecordSearch("hybrid", time.Since(start)) }()

	pool := s.cfg.HybridCandidates
	if pool < opts.Limit*3 {
		pool = opts.Limit * 3
	}
	candidates, err := s.similar(ctx, query, FindOptions{
		Limit:      pool,
		Threshold:  -1,
		Platform:   opts.Platform,
		Category:   opts.Category,
		ExcludeIDs: opts.ExcludeIDs,
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []models.SimilarityResult{}, nil
	}

	lexical, err := s.lexicalScores(ctx, text, candidates)
	if err != nil {
		return nil, err
	}

	w := opts.SemanticWeight
	results := make([]models.SimilarityResult, 0, len(candidates))
	for i := range candidates {
		r := candidates[i].toResult()
		lex := lexical[candidates[i].ItemKey]
		r.SemanticScore = r.Similarity
		r.LexicalScore = lex
		r.Similarity = w*r.SemanticScore + (1-w)*lex
		if r.Similarity >= opts.Threshold-similarityEpsilon {
			results = append(results, r)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

func (s *Store) lexicalScores(ctx context.Context, text string, candidates []similarityRow) (map[string]float64, error) {
	if strings.TrimSpace(text) == "" {
		return map[string]float64{}, nil
	}
	if s.ftsAvailable {
		scores, err := s.bm25Scores(ctx, text, candidates)
		if err == nil {
			return scores, nil
		}
		s.logger.Warn().Err(err).Msg("BM25 scoring failed, using term overlap")
	}
	return termOverlapScores(text, candidates), nil
}

func (s *Store) bm25Scores(ctx context.Context, text string, candidates []similarityRow) (map[string]float64, error) {
	if err := s.refreshFTS(ctx); err != nil {
		return nil, err
	}

	keys := make([]string, len(candidates))
	for i := range candidates {
		keys[i] = candidates[i].ItemKey
	}

	q, args, err := sqlx.In(`SELECT item_key, score FROM (
			SELECT item_key, fts_main_video_embeddings.match_bm25(item_key, ?) AS score
			FROM video_embeddings
			WHERE item_key IN (?)
		) WHERE score IS NOT NULL`, text, keys)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ItemKey string  `db:"item_key"`
		Score   float64 `db:"score"`
	}
	start := time.Now()
	err = s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...)
	if err = s.observe("bm25", start, err); err != nil {
		return nil, err
	}

	best := 0.0
	for _, r := range rows {
		if r.Score > best {
			best = r.Score
		}
	}
	scores := make(map[string]float64, len(rows))
	if best <= 0 {
		return scores, nil
	}
	for _, r := range rows {
		scores[r.ItemKey] = r.Score / best
	}
	return scores, nil
}

func termOverlapScores(text string, candidates []similarityRow) map[string]float64 {
	terms := queryTerms(text)
	scores := make(map[string]float64, len(candidates))
	if len(terms) == 0 {
		return scores
	}

	for i := range candidates {
		c := &candidates[i]
		haystack := strings.ToLower(c.Title + " " + c.Description.String + " " +
			strings.Join(decodeTags(c.Tags), " "))
		matched := 0
		for _, t := range terms {
			if strings.Contains(haystack, t) {
				matched++
			}
		}
		scores[c.ItemKey] = float64(matched) / float64(len(terms))
	}
	return scores
}

// queryTerms splits text into distinct lowercase words.
func queryTerms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	terms := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			terms = append(terms, f)
		}
	}
	return terms
}

// Popular returns embedded items ordered by view count, newest first on ties.
// Similarity is left at zero.
func (s *Store) Popular(ctx context.Context, opts PopularOptions) ([]models.SimilarityResult, error) {
	if opts.Limit <= 0 {
		return nil, models.NewValidationError("limit", "must be positive, got %d", opts.Limit)
	}

	where := []string{"combined_embedding IS NOT NULL"}
	var args []interface{}
	if opts.Platform != "" {
		where = append(where, "platform = ?")
		args = append(args, opts.Platform)
	}
	if opts.Category != "" {
		where = append(where, "category = ?")
		args = append(args, opts.Category)
	}
	if !opts.Since.IsZero() {
		where = append(where, "published_at >= ?")
		args = append(args, opts.Since.UTC())
	}
	if len(opts.ExcludeIDs) > 0 {
		where = append(where, "external_id NOT IN (?)")
		args = append(args, opts.ExcludeIDs)
	}
	args = append(args, opts.Limit)

	start := time.Now()
	q, args, err := sqlx.In(`SELECT item_key, external_id, platform, title, description, category, tags,
			published_at, view_count, quality_score, 0.0 AS similarity
		FROM video_embeddings
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY view_count DESC NULLS LAST, published_at DESC NULLS LAST, item_key
		LIMIT ?`, args...)
	if err != nil {
		return nil, s.observe("popular", start, err)
	}

	var rows []similarityRow
	err = s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...)
	if err = s.observe("popular", start, err); err != nil {
		return nil, err
	}

	out := make([]models.SimilarityResult, len(rows))
	for i := range rows {
		out[i] = rows[i].toResult()
	}
	return out, nil
}
