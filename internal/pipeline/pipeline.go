// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/vectorcast/internal/logging"
	"github.com/tomtom215/vectorcast/internal/metrics"
	"github.com/tomtom215/vectorcast/internal/models"
	"github.com/tomtom215/vectorcast/internal/processor"
)

// BatchProcessor embeds a batch of items.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, items []models.ContentMetadata) *processor.BatchResult
}

// Store is the subset of the vector store the pipeline writes to.
type Store interface {
	Upsert(ctx context.Context, emb *models.ProcessedEmbedding) error
	Exists(ctx context.Context, externalID, platform string) (bool, error)
	MarkFailed(ctx context.Context, externalID, platform, reason string) error
	MarkStale(ctx context.Context, olderThan time.Duration) (int64, error)
	GetItemsNeedingProcessing(ctx context.Context, limit int) ([]models.ContentMetadata, error)
}

// QualityStats summarizes the quality scores of processed items.
type QualityStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// Result summarizes one Run.
type Result struct {
	Processed    int                   `json:"processed"`
	Skipped      int                   `json:"skipped"`
	Failed       int                   `json:"failed"`
	TokensUsed   int                   `json:"tokens_used"`
	Retried      int                   `json:"retried"`
	QualityStats QualityStats          `json:"quality_stats"`
	Errors       []processor.ItemError `json:"errors,omitempty"`
	Duration     time.Duration         `json:"duration"`
}

// Stats are cumulative across runs.
type Stats struct {
	Runs           int64         `json:"runs"`
	ItemsProcessed int64         `json:"items_processed"`
	ItemsSkipped   int64         `json:"items_skipped"`
	ItemsFailed    int64         `json:"items_failed"`
	TokensUsed     int64         `json:"tokens_used"`
	AvgLatency     time.Duration `json:"avg_latency"`
	LastRunAt      time.Time     `json:"last_run_at,omitempty"`
}

// Pipeline connects the processor and the vector store.
type Pipeline struct {
	cfg       Config
	processor BatchProcessor
	store     Store
	pacer     *rate.Limiter
	logger    zerolog.Logger

	mu           sync.Mutex
	stats        Stats
	totalLatency time.Duration
}

// New creates a Pipeline.
func New(cfg Config, proc BatchProcessor, store Store, logger zerolog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if proc == nil || store == nil {
		return nil, errors.New("pipeline requires a processor and a store")
	}

	limit := rate.Inf
	if cfg.InterBatchDelay > 0 {
		limit = rate.Every(cfg.InterBatchDelay)
	}

	return &Pipeline{
		cfg:       cfg,
		processor: proc,
		store:     store,
		pacer:     rate.NewLimiter(limit, 1),
		logger:    logger.With().Str("component", "pipeline").Logger(),
	}, nil
}

// errInterrupted marks items left unprocessed because the run ended early.
// They are not recorded as FAILED in the store.
var errInterrupted = errors.New("run interrupted")

// run holds the state of one Run call.
type run struct {
	opts    Options
	result  *Result
	quality []float64
	latency time.Duration
	// failed maps item key to its latest failure.
	failed map[string]failure
	order  []string
}

type failure struct {
	meta models.ContentMetadata
	err  error
}

func (r *run) fail(meta models.ContentMetadata, err error) {
	key := meta.Key()
	if _, ok := r.failed[key]; !ok {
		r.order = append(r.order, key)
	}
	r.failed[key] = failure{meta: meta, err: err}
}

func (r *run) succeed(emb *models.ProcessedEmbedding) {
	key := emb.Metadata.Key()
	delete(r.failed, key)
	r.result.Processed++
	r.result.TokensUsed += emb.TokenUsage.Total()
	r.quality = append(r.quality, emb.QualityScore)
	r.latency += emb.ProcessingTime
}

// retryable lists failures worth another attempt, in first-failure order.
func (r *run) retryable() []models.ContentMetadata {
	var out []models.ContentMetadata
	for _, key := range r.order {
		f, ok := r.failed[key]
		if ok && shouldRetry(f.err) {
			out = append(out, f.meta)
		}
	}
	return out
}

// shouldRetry rejects validation failures and terminal provider responses.
func shouldRetry(err error) bool {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return false
	}
	var perr *models.ProviderError
	if errors.As(err, &perr) {
		return perr.Retryable
	}
	return true
}

// Run processes items in batches and persists the results. The returned
// error is non-nil only when ctx ends the run early; the partial Result is
// still returned.
func (p *Pipeline) Run(ctx context.Context, items []models.ContentMetadata, opts Options) (*Result, error) {
	start := time.Now()
	if opts.BatchSize <= 0 {
		opts.BatchSize = p.cfg.BatchSize
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = p.cfg.MaxRetries
	}

	r := &run{
		opts:   opts,
		result: &Result{},
		failed: make(map[string]failure),
	}

	todo := items
	if opts.SkipExisting {
		todo = p.filterExisting(ctx, items, r)
	}

	log := p.log(ctx).With().Int("items", len(items)).Bool("dry_run", opts.DryRun).Logger()
	log.Info().Int("to_process", len(todo)).Int("batch_size", opts.BatchSize).Msg("pipeline run started")

	runErr := p.processAll(ctx, todo, r)

	if runErr == nil {
		runErr = p.retryFailed(ctx, r)
	}
	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}

	p.finish(ctx, r)
	r.result.Duration = time.Since(start)
	p.record(r)

	log.Info().
		Int("processed", r.result.Processed).
		Int("skipped", r.result.Skipped).
		Int("failed", r.result.Failed).
		Int("tokens", r.result.TokensUsed).
		Dur("duration", r.result.Duration).
		Msg("pipeline run finished")

	return r.result, runErr
}

func (p *Pipeline) filterExisting(ctx context.Context, items []models.ContentMetadata, r *run) []models.ContentMetadata {
	out := make([]models.ContentMetadata, 0, len(items))
	for _, it := range items {
		ok, err := p.store.Exists(ctx, it.ExternalID, it.Platform)
		if err != nil {
			p.log(ctx).Warn().Err(err).Str("item", it.Key()).Msg("existence check failed, processing item")
		}
		if ok {
			r.result.Skipped++
			continue
		}
		out = append(out, it)
	}
	return out
}

// processAll runs items through fixed-size batches.
func (p *Pipeline) processAll(ctx context.Context, items []models.ContentMetadata, r *run) error {
	for start := 0; start < len(items); start += r.opts.BatchSize {
		end := start + r.opts.BatchSize
		if end > len(items) {
			end = len(items)
		}

		if err := p.pacer.Wait(ctx); err != nil {
			for _, it := range items[start:] {
				r.fail(it, fmt.Errorf("%w: %v", errInterrupted, err))
			}
			return ctxErr(ctx, err)
		}
		p.processBatch(ctx, items[start:end], r)
	}
	return nil
}

// processBatch embeds one batch and persists the successes. A store failure
// aborts the rest of the batch.
func (p *Pipeline) processBatch(ctx context.Context, batch []models.ContentMetadata, r *run) {
	res := p.processor.ProcessBatch(ctx, batch)
	for _, ie := range res.Errors {
		r.fail(metaFor(batch, ie), ie.Err)
	}

	for i, emb := range res.Embeddings {
		if r.opts.DryRun {
			r.succeed(emb)
			continue
		}
		if err := p.store.Upsert(ctx, emb); err != nil {
			p.log(ctx).Error().Err(err).Str("item", emb.Metadata.Key()).
				Int("aborted", len(res.Embeddings)-i).Msg("store write failed, aborting batch")
			for _, rest := range res.Embeddings[i:] {
				r.fail(rest.Metadata, err)
			}
			return
		}
		r.succeed(emb)
	}
}

// retryFailed reprocesses retryable failures with exponential backoff until
// they succeed or the retry budget is spent.
func (p *Pipeline) retryFailed(ctx context.Context, r *run) error {
	if r.opts.MaxRetries == 0 {
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.RetryBaseDelay
	b.MaxInterval = p.cfg.RetryMaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	for attempt := 1; attempt <= r.opts.MaxRetries; attempt++ {
		items := r.retryable()
		if len(items) == 0 {
			return nil
		}

		delay := b.NextBackOff()
		p.log(ctx).Info().Int("attempt", attempt).Int("items", len(items)).Dur("delay", delay).Msg("retrying failed items")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		r.result.Retried += len(items)
		if err := p.processAll(ctx, items, r); err != nil {
			return err
		}
	}
	return nil
}

// finish records remaining failures and computes quality statistics.
func (p *Pipeline) finish(ctx context.Context, r *run) {
	for _, key := range r.order {
		f, ok := r.failed[key]
		if !ok {
			continue
		}
		r.result.Failed++
		r.result.Errors = append(r.result.Errors, processor.NewItemError(f.meta, f.err))

		if r.opts.DryRun || ctx.Err() != nil || errors.Is(f.err, errInterrupted) {
			continue
		}
		if err := p.store.MarkFailed(ctx, f.meta.ExternalID, f.meta.Platform, f.err.Error()); err != nil {
			p.log(ctx).Warn().Err(err).Str("item", key).Msg("failed to record item failure")
		}
	}

	if len(r.quality) > 0 {
		qs := QualityStats{Min: math.Inf(1), Max: math.Inf(-1)}
		sum := 0.0
		for _, q := range r.quality {
			qs.Min = math.Min(qs.Min, q)
			qs.Max = math.Max(qs.Max, q)
			sum += q
		}
		qs.Mean = sum / float64(len(r.quality))
		r.result.QualityStats = qs
	}
}

func (p *Pipeline) record(r *run) {
	res := r.result
	metrics.RecordPipelineRun(res.Duration, res.Processed, res.Skipped, res.Failed)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Runs++
	p.stats.ItemsProcessed += int64(res.Processed)
	p.stats.ItemsSkipped += int64(res.Skipped)
	p.stats.ItemsFailed += int64(res.Failed)
	p.stats.TokensUsed += int64(res.TokensUsed)
	p.stats.LastRunAt = time.Now()
	p.totalLatency += r.latency
	if p.stats.ItemsProcessed > 0 {
		p.stats.AvgLatency = p.totalLatency / time.Duration(p.stats.ItemsProcessed)
	}
}

// Stats returns cumulative counters across all runs.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// RunIncrementalUpdate marks embeddings older than the staleness threshold
// as STALE, then reprocesses the store's backlog.
func (p *Pipeline) RunIncrementalUpdate(ctx context.Context) (*Result, error) {
	stale, err := p.store.MarkStale(ctx, p.cfg.StalenessThreshold)
	if err != nil {
		return nil, fmt.Errorf("mark stale: %w", err)
	}

	items, err := p.store.GetItemsNeedingProcessing(ctx, p.cfg.BacklogLimit)
	if err != nil {
		return nil, fmt.Errorf("load backlog: %w", err)
	}

	p.log(ctx).Info().Int64("marked_stale", stale).Int("backlog", len(items)).Msg("incremental update")
	if len(items) == 0 {
		return &Result{}, nil
	}
	return p.Run(ctx, items, DefaultOptions())
}

func metaFor(batch []models.ContentMetadata, ie processor.ItemError) models.ContentMetadata {
	for _, m := range batch {
		if m.ExternalID == ie.ExternalID && m.Platform == ie.Platform {
			return m
		}
	}
	return models.ContentMetadata{ExternalID: ie.ExternalID, Platform: ie.Platform}
}

// ctxErr prefers the context's own error over the limiter's wrapping of it.
func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// log returns the pipeline logger tagged with the job and correlation IDs
// carried by ctx.
func (p *Pipeline) log(ctx context.Context) *zerolog.Logger {
	l := logging.With(ctx, p.logger)
	return &l
}
