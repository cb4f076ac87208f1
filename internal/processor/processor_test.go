// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package processor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vectorcast/internal/embedding"
	"github.com/tomtom215/vectorcast/internal/models"
)

var testBounds = embedding.Bounds{Dimensions: 3, MinMagnitude: 0.5, MaxMagnitude: 1.5}

// mockProvider returns unit vectors and fails any batch whose first text
// contains failOn.
type mockProvider struct {
	mu       sync.Mutex
	calls    [][]string
	failOn   string
	delay    time.Duration
	inflight int
	peak     int
}

func (m *mockProvider) Embed(ctx context.Context, texts []string) (*embedding.EmbedResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, texts)
	m.inflight++
	if m.inflight > m.peak {
		m.peak = m.inflight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inflight--
		m.mu.Unlock()
	}()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.failOn != "" && strings.Contains(texts[0], m.failOn) {
		return nil, &models.ProviderError{Code: models.CodeServerError, Retryable: true, Message: "boom"}
	}

	res := &embedding.EmbedResult{TokensUsed: 30}
	for range texts {
		res.Embeddings = append(res.Embeddings, []float32{1, 0, 0})
	}
	return res, nil
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func newTestProcessor(t *testing.T, p embedding.Provider, modify ...func(*Config)) *Processor {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ItemsPerSecond = 0
	for _, fn := range modify {
		fn(&cfg)
	}
	proc, err := New(cfg, p, testBounds, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return proc
}

func meta(id, title string) models.ContentMetadata {
	return models.ContentMetadata{ExternalID: id, Platform: "youtube", Title: title}
}

// --- Test: Process ---

func TestProcess_SingleBatchedCall(t *testing.T) {
	t.Parallel()

	p := &mockProvider{}
	proc := newTestProcessor(t, p)

	m := meta("v1", "Intro to <b>Go</b>")
	m.Description = "Channels and goroutines explained"
	m.Tags = []string{"go", "concurrency"}

	got, err := proc.Process(context.Background(), m)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if p.callCount() != 1 || len(p.calls[0]) != 3 {
		t.Fatalf("provider calls = %v, want one call with 3 texts", p.calls)
	}
	if p.calls[0][0] != "Intro to Go" {
		t.Errorf("title text = %q, want cleaned title", p.calls[0][0])
	}
	if got.DescriptionEmbedding == nil || got.TitleEmbedding == nil || got.CombinedEmbedding == nil {
		t.Error("all three embeddings should be set")
	}
	if got.TokenUsage.Total() != 30 {
		t.Errorf("TokenUsage.Total() = %d, want provider total 30", got.TokenUsage.Total())
	}
	if got.QualityScore <= 0 || got.QualityScore > 1 {
		t.Errorf("QualityScore = %v, want (0, 1]", got.QualityScore)
	}

	m.Tags[0] = "mutated"
	if got.Metadata.Tags[0] != "go" {
		t.Error("ProcessedEmbedding metadata must be a snapshot")
	}
}

func TestProcess_EmptyDescription(t *testing.T) {
	t.Parallel()

	p := &mockProvider{}
	proc := newTestProcessor(t, p)

	m := meta("v1", "Only a title")
	m.Description = "  <p></p> "

	got, err := proc.Process(context.Background(), m)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got.DescriptionEmbedding != nil {
		t.Error("DescriptionEmbedding should be nil for empty description")
	}
	if len(p.calls[0]) != 2 {
		t.Errorf("texts sent = %d, want 2 (title + composite)", len(p.calls[0]))
	}
}

func TestProcess_ValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		meta models.ContentMetadata
	}{
		{"missing title", meta("v1", "")},
		{"missing id", meta("", "Title")},
		{"markup-only title", meta("v1", "<br/>")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &mockProvider{}
			proc := newTestProcessor(t, p)

			_, err := proc.Process(context.Background(), tt.meta)
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Process() error = %v, want ValidationError", err)
			}
			if p.callCount() != 0 {
				t.Error("provider should not be called for invalid metadata")
			}
		})
	}
}

// --- Test: ProcessBatch ---

func TestProcessBatch_CollectsFailures(t *testing.T) {
	t.Parallel()

	p := &mockProvider{failOn: "broken"}
	proc := newTestProcessor(t, p)

	items := []models.ContentMetadata{
		meta("a", "first"),
		meta("b", "broken item"),
		meta("c", "third"),
		meta("", "invalid"),
	}

	res := proc.ProcessBatch(context.Background(), items)
	if len(res.Embeddings) != 2 {
		t.Fatalf("Embeddings = %d, want 2", len(res.Embeddings))
	}
	if res.Embeddings[0].Metadata.ExternalID != "a" || res.Embeddings[1].Metadata.ExternalID != "c" {
		t.Error("Embeddings should keep input order")
	}
	if len(res.Errors) != 2 {
		t.Fatalf("Errors = %d, want 2", len(res.Errors))
	}
	if res.Errors[0].ExternalID != "b" || !res.Errors[0].Retryable {
		t.Errorf("provider failure = %+v, want retryable error for b", res.Errors[0])
	}
	if res.Errors[1].Retryable {
		t.Error("validation failure must not be retryable")
	}
}

func TestProcessBatch_BoundedConcurrency(t *testing.T) {
	t.Parallel()

	p := &mockProvider{delay: 20 * time.Millisecond}
	proc := newTestProcessor(t, p, func(c *Config) { c.Concurrency = 2 })

	items := make([]models.ContentMetadata, 8)
	for i := range items {
		items[i] = meta(string(rune('a'+i)), "title")
	}

	res := proc.ProcessBatch(context.Background(), items)
	if len(res.Embeddings) != 8 {
		t.Fatalf("Embeddings = %d, want 8", len(res.Embeddings))
	}
	p.mu.Lock()
	peak := p.peak
	p.mu.Unlock()
	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestProcessBatch_CancelledContext(t *testing.T) {
	t.Parallel()

	p := &mockProvider{}
	proc := newTestProcessor(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := proc.ProcessBatch(ctx, []models.ContentMetadata{meta("a", "x"), meta("b", "y")})
	if len(res.Errors) != 2 || len(res.Embeddings) != 0 {
		t.Errorf("cancelled batch = %d ok / %d errors, want 0 / 2", len(res.Embeddings), len(res.Errors))
	}
}

// --- Test: token apportioning ---

func TestSplitTokens(t *testing.T) {
	t.Parallel()

	u := splitTokens(100, "abcd", "", "abcdabcdabcd")
	if u.Total() != 100 || u.Description != 0 {
		t.Errorf("splitTokens = %+v, want total 100 and no description tokens", u)
	}
	if u.Title != 25 || u.Combined != 75 {
		t.Errorf("splitTokens = %+v, want 25/0/75", u)
	}

	est := splitTokens(0, "abcd", "abcdabcd", "abcd")
	if est != (models.TokenUsage{Title: 1, Description: 2, Combined: 1}) {
		t.Errorf("estimated = %+v", est)
	}
}
