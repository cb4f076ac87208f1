// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vectorcast/internal/cache"
	"github.com/tomtom215/vectorcast/internal/embedding"
	"github.com/tomtom215/vectorcast/internal/models"
	"github.com/tomtom215/vectorcast/internal/vectorstore"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeProvider returns a fixed vector per text.
type fakeProvider struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   int
}

func (p *fakeProvider) Embed(_ context.Context, texts []string) (*embedding.EmbedResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := p.vectors[t]
		if !ok {
			return nil, &models.ProviderError{Code: models.CodeInvalidRequest, Message: "unknown text " + t}
		}
		out[i] = v
	}
	return &embedding.EmbedResult{Embeddings: out, TokensUsed: len(texts)}, nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type storedItem struct {
	id  string
	vec []float32
	md  models.ItemMetadata
}

// fakeStore is an exact in-memory vector store.
type fakeStore struct {
	mu        sync.Mutex
	items     []storedItem
	prefs     map[string]*models.UserPreference
	findCalls int
	lastFind  vectorstore.FindOptions
}

func newFakeStore(items ...storedItem) *fakeStore {
	return &fakeStore{items: items, prefs: make(map[string]*models.UserPreference)}
}

func (s *fakeStore) result(it storedItem, sim float64) models.SimilarityResult {
	md := it.md
	return models.SimilarityResult{ExternalID: it.id, Platform: "youtube", Similarity: sim, Metadata: &md}
}

func (s *fakeStore) FindSimilar(_ context.Context, query []float32, opts vectorstore.FindOptions) ([]models.SimilarityResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	s.lastFind = opts

	excluded := make(map[string]bool)
	for _, id := range opts.ExcludeIDs {
		excluded[id] = true
	}
	var out []models.SimilarityResult
	for _, it := range s.items {
		if excluded[it.id] || (opts.Category != "" && it.md.Category != opts.Category) {
			continue
		}
		sim := embedding.CosineSimilarity(query, it.vec)
		if sim >= opts.Threshold-1e-9 {
			out = append(out, s.result(it, sim))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *fakeStore) lastFindLimit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFind.Limit
}

// HybridSearch applies filters before the limit, like the store's SQL.
func (s *fakeStore) HybridSearch(ctx context.Context, query []float32, _ string, opts vectorstore.HybridOptions) ([]models.SimilarityResult, error) {
	return s.FindSimilar(ctx, query, vectorstore.FindOptions{
		Limit:      opts.Limit,
		Threshold:  opts.Threshold,
		Platform:   opts.Platform,
		Category:   opts.Category,
		ExcludeIDs: opts.ExcludeIDs,
	})
}

func (s *fakeStore) Popular(_ context.Context, opts vectorstore.PopularOptions) ([]models.SimilarityResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SimilarityResult
	for _, it := range s.items {
		if !opts.Since.IsZero() && it.md.PublishedAt.Before(opts.Since) {
			continue
		}
		out = append(out, s.result(it, 0))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Metadata.ViewCount > out[j].Metadata.ViewCount })
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *fakeStore) Get(_ context.Context, externalID, platform string) (*vectorstore.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.id == externalID {
			return &vectorstore.Record{
				ProcessedEmbedding: models.ProcessedEmbedding{
					Metadata:          models.ContentMetadata{ExternalID: it.id, Platform: platform, Title: it.md.Title},
					CombinedEmbedding: it.vec,
				},
				Status: models.StatusCompleted,
			}, nil
		}
	}
	return nil, fmt.Errorf("item %s: %w", externalID, models.ErrNotFound)
}

func (s *fakeStore) GetPreference(_ context.Context, userID string) (*models.UserPreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prefs[userID]
	if !ok {
		return nil, fmt.Errorf("preference for %s: %w", userID, models.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) SavePreference(_ context.Context, pref *models.UserPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *pref
	s.prefs[pref.UserID] = &cp
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DefaultThreshold = 0.1
	cfg.RecommendThreshold = -1
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, provider *fakeProvider, store *fakeStore, c Cache) *Engine {
	t.Helper()
	e, err := New(cfg, provider, store, c, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.now = func() time.Time { return testNow }
	return e
}

func unit(x, y, z float64) []float32 {
	return embedding.Normalize([]float32{float32(x), float32(y), float32(z)})
}

func ids(results []models.SimilarityResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ExternalID
	}
	return out
}

// --- Test: Content search ---

func TestSearchByContent_UsesCache(t *testing.T) {
	t.Parallel()

	c, err := cache.New(cache.DefaultConfig(), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	provider := &fakeProvider{vectors: map[string][]float32{"cats": unit(1, 0, 0)}}
	store := newFakeStore(
		storedItem{id: "a", vec: unit(1, 0, 0)},
		storedItem{id: "b", vec: unit(0, 1, 0)},
	)
	e := newTestEngine(t, testConfig(), provider, store, c)
	ctx := context.Background()

	first, err := e.SearchByContent(ctx, "cats", SearchOptions{Limit: 5})
	if err != nil {
		t.Fatalf("SearchByContent: %v", err)
	}
	second, err := e.SearchByContent(ctx, "  cats ", SearchOptions{Limit: 5})
	if err != nil {
		t.Fatalf("SearchByContent: %v", err)
	}

	if len(first) != 1 || first[0].ExternalID != "a" {
		t.Errorf("results = %v, want [a]", ids(first))
	}
	if len(second) != len(first) {
		t.Errorf("cached results = %v, want %v", ids(second), ids(first))
	}
	if provider.callCount() != 1 {
		t.Errorf("provider calls = %d, want 1", provider.callCount())
	}
	if store.findCalls != 1 {
		t.Errorf("store calls = %d, want 1", store.findCalls)
	}
}

func TestSearchByContent_Validation(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, testConfig(), &fakeProvider{}, newFakeStore(), nil)
	_, err := e.SearchByContent(context.Background(), "   ", SearchOptions{})
	if models.Code(err) != models.CodeValidation {
		t.Errorf("error code = %q, want VALIDATION_ERROR", models.Code(err))
	}
}

func TestSearchByContent_LimitAndThresholdDefaults(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{vectors: map[string][]float32{"q": unit(1, 0, 0)}}
	store := newFakeStore()
	cfg := testConfig()
	e := newTestEngine(t, cfg, provider, store, nil)
	ctx := context.Background()

	if _, err := e.SearchByContent(ctx, "q", SearchOptions{Limit: 5000}); err != nil {
		t.Fatalf("SearchByContent: %v", err)
	}
	if store.lastFind.Limit != cfg.MaxLimit {
		t.Errorf("limit = %d, want capped %d", store.lastFind.Limit, cfg.MaxLimit)
	}
	if store.lastFind.Threshold != cfg.DefaultThreshold {
		t.Errorf("threshold = %v, want default %v", store.lastFind.Threshold, cfg.DefaultThreshold)
	}

	if err := e.SetDefaultThreshold(0.75); err != nil {
		t.Fatalf("SetDefaultThreshold: %v", err)
	}
	if _, err := e.SearchByContent(ctx, "q", SearchOptions{}); err != nil {
		t.Fatalf("SearchByContent: %v", err)
	}
	if store.lastFind.Threshold != 0.75 || store.lastFind.Limit != cfg.DefaultLimit {
		t.Errorf("find options = %+v, want threshold 0.75 limit %d", store.lastFind, cfg.DefaultLimit)
	}
	if err := e.SetDefaultThreshold(2); err == nil {
		t.Error("SetDefaultThreshold(2) should fail")
	}

	zero := 0.0
	if _, err := e.SearchByContent(ctx, "q", SearchOptions{Threshold: &zero}); err != nil {
		t.Fatalf("SearchByContent: %v", err)
	}
	if store.lastFind.Threshold != 0 {
		t.Errorf("explicit zero threshold = %v, want 0", store.lastFind.Threshold)
	}
}

func TestSearchByContent_HybridFiltersBeforeLimit(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{vectors: map[string][]float32{"q": unit(1, 0, 0)}}
	// The two closest items are in another category and fill the limit.
	store := newFakeStore(
		storedItem{id: "a1", vec: unit(1, 0, 0), md: models.ItemMetadata{Category: "music"}},
		storedItem{id: "a2", vec: unit(1, 0.1, 0), md: models.ItemMetadata{Category: "music"}},
		storedItem{id: "b1", vec: unit(1, 0.5, 0), md: models.ItemMetadata{Category: "gaming"}},
		storedItem{id: "b2", vec: unit(1, 0.8, 0), md: models.ItemMetadata{Category: "gaming"}},
	)
	e := newTestEngine(t, testConfig(), provider, store, nil)

	got, err := e.SearchByContent(context.Background(), "q", SearchOptions{
		Limit:      2,
		Category:   "gaming",
		ExcludeIDs: []string{"b2"},
		Hybrid:     true,
	})
	if err != nil {
		t.Fatalf("SearchByContent: %v", err)
	}
	if len(got) != 1 || got[0].ExternalID != "b1" {
		t.Errorf("results = %v, want [b1]", ids(got))
	}
	if store.lastFind.Category != "gaming" || len(store.lastFind.ExcludeIDs) != 1 {
		t.Errorf("store options = %+v, want category and exclusions pushed down", store.lastFind)
	}
}

// --- Test: Personalized search ---

func TestSearchPersonalized_ZeroWeightEqualsContent(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{vectors: map[string][]float32{"q": unit(1, 0.2, 0)}}
	store := newFakeStore(
		storedItem{id: "a", vec: unit(1, 0, 0), md: models.ItemMetadata{PublishedAt: testNow.Add(-time.Hour)}},
		storedItem{id: "b", vec: unit(0.8, 0.6, 0)},
		storedItem{id: "c", vec: unit(0, 1, 0)},
	)
	store.prefs["u1"] = &models.UserPreference{UserID: "u1", Embedding: unit(0, 0, 1), Confidence: 1}

	for _, tc := range []struct {
		name   string
		weight float64
		user   string
	}{
		{"zero weight", 0, "u1"},
		{"no preference", 0.5, "nobody"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			cfg.PersonalizationWeight = tc.weight
			e := newTestEngine(t, cfg, provider, store, nil)

			content, err := e.SearchByContent(context.Background(), "q", SearchOptions{Limit: 10})
			if err != nil {
				t.Fatalf("SearchByContent: %v", err)
			}
			personal, err := e.SearchPersonalized(context.Background(), "q", tc.user, SearchOptions{Limit: 10})
			if err != nil {
				t.Fatalf("SearchPersonalized: %v", err)
			}
			if len(content) != len(personal) {
				t.Fatalf("personalized %v != content %v", ids(personal), ids(content))
			}
			for i := range content {
				if content[i].ExternalID != personal[i].ExternalID || content[i].Similarity != personal[i].Similarity {
					t.Errorf("result %d: personalized %+v != content %+v", i, personal[i], content[i])
				}
			}
		})
	}
}

func TestSearchPersonalized_BlendsPreference(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{vectors: map[string][]float32{"q": unit(1, 0, 0)}}
	store := newFakeStore(
		storedItem{id: "query-like", vec: unit(1, 0, 0)},
		storedItem{id: "pref-like", vec: unit(0, 1, 0)},
		storedItem{id: "between", vec: unit(1, 1, 0)},
	)
	store.prefs["u1"] = &models.UserPreference{UserID: "u1", Embedding: unit(0, 1, 0), Confidence: 0.5}

	cfg := testConfig()
	cfg.PersonalizationWeight = 0.5
	e := newTestEngine(t, cfg, provider, store, nil)

	content, err := e.SearchByContent(context.Background(), "q", SearchOptions{})
	if err != nil {
		t.Fatalf("SearchByContent: %v", err)
	}
	personal, err := e.SearchPersonalized(context.Background(), "q", "u1", SearchOptions{})
	if err != nil {
		t.Fatalf("SearchPersonalized: %v", err)
	}

	if content[0].ExternalID != "query-like" {
		t.Errorf("content top = %s, want query-like", content[0].ExternalID)
	}
	if personal[0].ExternalID != "between" {
		t.Errorf("personalized top = %s, want between", personal[0].ExternalID)
	}
}

func TestSearchPersonalized_RecencyBoost(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{vectors: map[string][]float32{"q": unit(1, 0, 0)}}
	store := newFakeStore(
		storedItem{id: "old", vec: unit(0.95, math.Sqrt(1-0.95*0.95), 0), md: models.ItemMetadata{PublishedAt: testNow.Add(-60 * 24 * time.Hour)}},
		storedItem{id: "fresh", vec: unit(0.9, math.Sqrt(1-0.9*0.9), 0), md: models.ItemMetadata{PublishedAt: testNow.Add(-24 * time.Hour)}},
	)
	// Preference equal to the query leaves the combined vector unchanged.
	store.prefs["u1"] = &models.UserPreference{UserID: "u1", Embedding: unit(1, 0, 0), Confidence: 1}

	e := newTestEngine(t, testConfig(), provider, store, nil)

	content, _ := e.SearchByContent(context.Background(), "q", SearchOptions{})
	if content[0].ExternalID != "old" {
		t.Fatalf("content top = %s, want old", content[0].ExternalID)
	}

	personal, err := e.SearchPersonalized(context.Background(), "q", "u1", SearchOptions{})
	if err != nil {
		t.Fatalf("SearchPersonalized: %v", err)
	}
	if personal[0].ExternalID != "fresh" {
		t.Errorf("personalized order = %v, want fresh first", ids(personal))
	}
	if math.Abs(personal[0].Similarity-0.99) > 1e-4 {
		t.Errorf("boosted similarity = %v, want ~0.99", personal[0].Similarity)
	}
}

func TestSearchPersonalized_RecencyBoostCapped(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{vectors: map[string][]float32{"q": unit(1, 0, 0)}}
	store := newFakeStore(
		storedItem{id: "fresh", vec: unit(0.99, math.Sqrt(1-0.99*0.99), 0), md: models.ItemMetadata{PublishedAt: testNow.Add(-time.Hour)}},
	)
	store.prefs["u1"] = &models.UserPreference{UserID: "u1", Embedding: unit(1, 0, 0), Confidence: 1}

	cfg := testConfig()
	cfg.RecencyBoost = 0.5
	e := newTestEngine(t, cfg, provider, store, nil)

	got, err := e.SearchPersonalized(context.Background(), "q", "u1", SearchOptions{})
	if err != nil {
		t.Fatalf("SearchPersonalized: %v", err)
	}
	if len(got) != 1 || got[0].Similarity != 1 {
		t.Errorf("boosted results = %+v, want similarity capped at 1", got)
	}
}

func TestWeightsNormalize(t *testing.T) {
	t.Parallel()

	w := Weights{Similarity: 2, Popularity: 1, Recency: 1}.Normalize()
	if math.Abs(w.Similarity+w.Popularity+w.Recency+w.Personalized-1) > 1e-12 {
		t.Errorf("normalized weights sum = %v", w.Similarity+w.Popularity+w.Recency+w.Personalized)
	}
	if w.Similarity != 0.5 {
		t.Errorf("Similarity = %v, want 0.5", w.Similarity)
	}
	if eq := (Weights{}).Normalize(); eq.Recency != 0.25 {
		t.Errorf("zero weights normalize to %+v, want equal weights", eq)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero limit", func(c *Config) { c.DefaultLimit = 0 }, true},
		{"max below default", func(c *Config) { c.MaxLimit = 5 }, true},
		{"personalization above 1", func(c *Config) { c.PersonalizationWeight = 1.5 }, true},
		{"negative weight", func(c *Config) { c.Weights.Recency = -0.1 }, true},
		{"zero half life", func(c *Config) { c.RecencyHalfLife = 0 }, true},
		{"zero learning rate", func(c *Config) { c.LearningRate = 0 }, true},
		{"zero multiplier", func(c *Config) { c.CandidateMultiplier = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
