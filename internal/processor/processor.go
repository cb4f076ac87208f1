// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package processor

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tomtom215/vectorcast/internal/embedding"
	"github.com/tomtom215/vectorcast/internal/metrics"
	"github.com/tomtom215/vectorcast/internal/models"
	"github.com/tomtom215/vectorcast/internal/validation"
)

// Processor turns catalog metadata into title, description and combined
// embeddings.
type Processor struct {
	cfg      Config
	provider embedding.Provider
	bounds   embedding.Bounds
	pacer    *rate.Limiter
	logger   zerolog.Logger
}

// ItemError records why a single item could not be processed.
type ItemError struct {
	ExternalID string `json:"external_id"`
	Platform   string `json:"platform"`
	Err        error  `json:"-"`
	Message    string `json:"error"`
	Retryable  bool   `json:"retryable"`
}

// NewItemError builds an ItemError for meta, classifying err.
func NewItemError(meta models.ContentMetadata, err error) ItemError {
	return ItemError{
		ExternalID: meta.ExternalID,
		Platform:   meta.Platform,
		Err:        err,
		Message:    err.Error(),
		Retryable:  models.IsRetryable(err),
	}
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %s", models.ItemKey(e.Platform, e.ExternalID), e.Message)
}

func (e ItemError) Unwrap() error { return e.Err }

// BatchResult holds the successes and failures of ProcessBatch. Embeddings
// keep input order; failed items are absent from it.
type BatchResult struct {
	Embeddings []*models.ProcessedEmbedding
	Errors     []ItemError
}

// New creates a Processor.
func New(cfg Config, provider embedding.Provider, bounds embedding.Bounds, logger zerolog.Logger) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid processor config: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("processor requires an embedding provider")
	}

	limit := rate.Inf
	if cfg.ItemsPerSecond > 0 {
		limit = rate.Limit(cfg.ItemsPerSecond)
	}

	return &Processor{
		cfg:      cfg,
		provider: provider,
		bounds:   bounds,
		pacer:    rate.NewLimiter(limit, cfg.Concurrency),
		logger:   logger.With().Str("component", "processor").Logger(),
	}, nil
}

// Process embeds one item. Title, description (when present) and the
// composite text go to the provider in a single request.
func (p *Processor) Process(ctx context.Context, meta models.ContentMetadata) (*models.ProcessedEmbedding, error) {
	start := time.Now()

	if err := validation.Validate(&meta); err != nil {
		return nil, err
	}

	title := CleanText(meta.Title)
	if title == "" {
		return nil, models.NewValidationError("title", "empty after cleaning")
	}

	texts := []string{title}
	desc := CleanText(meta.Description)
	if desc != "" {
		texts = append(texts, desc)
	}
	composite := p.BuildCompositeText(meta)
	texts = append(texts, composite)

	res, err := p.provider.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", meta.Key(), err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, &models.ProviderError{
			Code:    models.CodeMalformedResponse,
			Message: fmt.Sprintf("got %d embeddings for %d texts", len(res.Embeddings), len(texts)),
		}
	}

	out := &models.ProcessedEmbedding{
		Metadata:          snapshot(meta),
		TitleEmbedding:    res.Embeddings[0],
		CombinedEmbedding: res.Embeddings[len(texts)-1],
		CreatedAt:         time.Now().UTC(),
	}
	if desc != "" {
		out.DescriptionEmbedding = res.Embeddings[1]
	}
	out.TokenUsage = splitTokens(res.TokensUsed, title, desc, composite)
	out.QualityScore = QualityScore(meta, out.CombinedEmbedding, p.bounds)
	out.ProcessingTime = time.Since(start)

	metrics.PipelineQualityScore.Observe(out.QualityScore)
	p.logger.Debug().
		Str("item", meta.Key()).
		Float64("quality", out.QualityScore).
		Int("tokens", out.TokenUsage.Total()).
		Dur("duration", out.ProcessingTime).
		Msg("item processed")

	return out, nil
}

// ProcessBatch processes items with bounded concurrency. Individual failures
// are collected and never abort the batch; a cancelled context marks all
// unstarted items as failed.
func (p *Processor) ProcessBatch(ctx context.Context, items []models.ContentMetadata) *BatchResult {
	results := make([]*models.ProcessedEmbedding, len(items))
	errs := make([]error, len(items))

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)

	for i := range items {
		if err := p.pacer.Wait(ctx); err != nil {
			for j := i; j < len(items); j++ {
				errs[j] = fmt.Errorf("batch interrupted: %w", err)
			}
			break
		}

		g.Go(func() error {
			emb, err := p.Process(ctx, items[i])
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = emb
			return nil
		})
	}
	_ = g.Wait()

	out := &BatchResult{Embeddings: make([]*models.ProcessedEmbedding, 0, len(items))}
	for i := range items {
		if errs[i] != nil {
			out.Errors = append(out.Errors, NewItemError(items[i], errs[i]))
			continue
		}
		if results[i] != nil {
			out.Embeddings = append(out.Embeddings, results[i])
		}
	}

	if len(out.Errors) > 0 {
		p.logger.Warn().Int("failed", len(out.Errors)).Int("total", len(items)).Msg("batch completed with item failures")
	}
	return out
}

// splitTokens apportions the provider-reported total across fields by their
// estimated share. Without a reported total the estimates are used directly.
func splitTokens(total int, title, desc, composite string) models.TokenUsage {
	et := embedding.EstimateTokens(title)
	ed := embedding.EstimateTokens(desc)
	ec := embedding.EstimateTokens(composite)

	if total <= 0 {
		return models.TokenUsage{Title: et, Description: ed, Combined: ec}
	}

	sum := float64(et + ed + ec)
	if sum == 0 {
		return models.TokenUsage{Combined: total}
	}
	t := int(math.Round(float64(total) * float64(et) / sum))
	d := int(math.Round(float64(total) * float64(ed) / sum))
	return models.TokenUsage{Title: t, Description: d, Combined: total - t - d}
}

func snapshot(meta models.ContentMetadata) models.ContentMetadata {
	if meta.Tags != nil {
		meta.Tags = append([]string(nil), meta.Tags...)
	}
	return meta
}
