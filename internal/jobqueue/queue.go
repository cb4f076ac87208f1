// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vectorcast/internal/logging"
	"github.com/tomtom215/vectorcast/internal/metrics"
	"github.com/tomtom215/vectorcast/internal/models"
)

// maxErrorLength bounds the LastError stored on a job.
const maxErrorLength = 2000

// Handler executes one job. A nil error completes the job.
type Handler func(ctx context.Context, job *Job) (*Result, error)

// StaleMarker marks embeddings older than a threshold for reprocessing.
type StaleMarker interface {
	MarkStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Stats is a snapshot of the queue.
type Stats struct {
	Pending       int     `json:"pending"`
	Running       int     `json:"running"`
	Retrying      int     `json:"retrying"`
	Completed     int     `json:"completed"`
	Failed        int     `json:"failed"`
	Cancelled     int     `json:"cancelled"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	TotalTokens   int64   `json:"total_tokens"`

	// PendingByType counts PENDING and RETRYING jobs per type.
	PendingByType map[JobType]int `json:"pending_by_type,omitempty"`
}

// Queue is a persistent single-worker job queue.
type Queue struct {
	cfg    Config
	store  *Store
	logger zerolog.Logger
	now    func() time.Time

	handlersMu sync.RWMutex
	handlers   map[JobType]Handler
	stale      StaleMarker

	// mu serializes every read-modify-write of job state.
	mu        sync.Mutex
	runningID string
	jobWG     sync.WaitGroup
	wake      chan struct{}

	lifecycleMu sync.Mutex
	running     bool
	cancel      context.CancelFunc
	serveWG     sync.WaitGroup
}

// New creates a Queue over store.
func New(cfg Config, store *Store, logger zerolog.Logger) (*Queue, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid jobqueue config: %w", err)
	}
	if store == nil {
		return nil, errors.New("jobqueue requires a store")
	}
	return &Queue{
		cfg:      cfg,
		store:    store,
		logger:   logger.With().Str("component", "jobqueue").Logger(),
		now:      time.Now,
		handlers: make(map[JobType]Handler),
		wake:     make(chan struct{}, 1),
	}, nil
}

// Handle registers the handler for a job type, replacing any previous one.
func (q *Queue) Handle(jobType JobType, h Handler) {
	q.handlersMu.Lock()
	defer q.handlersMu.Unlock()
	q.handlers[jobType] = h
}

// SetStaleMarker enables periodic staleness marking outside of jobs.
func (q *Queue) SetStaleMarker(m StaleMarker) {
	q.handlersMu.Lock()
	defer q.handlersMu.Unlock()
	q.stale = m
}

func (q *Queue) handler(jobType JobType) (Handler, bool) {
	q.handlersMu.RLock()
	defer q.handlersMu.RUnlock()
	h, ok := q.handlers[jobType]
	return h, ok
}

// signal wakes the poll loop without blocking.
func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Enqueue stores a new PENDING job and returns its ID. payload may be nil,
// raw JSON or any value that marshals to JSON. A negative maxRetries uses
// the configured default.
func (q *Queue) Enqueue(ctx context.Context, jobType JobType, payload interface{}, priority, maxRetries int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !jobType.Valid() {
		return "", models.NewValidationError("type", "unknown job type %q", jobType)
	}
	if maxRetries < 0 {
		maxRetries = q.cfg.DefaultMaxRetries
	}

	raw, err := encodePayload(payload)
	if err != nil {
		return "", err
	}
	if jobType == TypeEmbeddingBatch {
		if _, err := decodeBatchPayload(raw); err != nil {
			return "", err
		}
	}

	job := &Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		Status:     StatusPending,
		Priority:   priority,
		Payload:    raw,
		MaxRetries: maxRetries,
		CreatedAt:  q.now().UTC(),
	}

	q.mu.Lock()
	err = q.store.Save(job)
	q.mu.Unlock()
	if err != nil {
		return "", err
	}

	metrics.RecordJobTransition(string(jobType), string(StatusPending))
	q.logger.Info().Str("job_id", job.ID).Str("type", string(jobType)).Int("priority", priority).Msg("job enqueued")
	q.signal()
	return job.ID, nil
}

func encodePayload(payload interface{}) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	case []byte:
		return json.RawMessage(p), nil
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, models.NewValidationError("payload", "cannot encode: %v", err)
		}
		return data, nil
	}
}

// GetJob returns a job by ID, or an error wrapping ErrJobNotFound.
func (q *Queue) GetJob(ctx context.Context, id string) (*Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return q.store.Get(id)
}

// ListJobs returns up to limit jobs, newest first. An empty status lists
// every status.
func (q *Queue) ListJobs(ctx context.Context, status Status, limit int) ([]*Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	jobs, err := q.store.List(func(j *Job) bool {
		return status == "" || j.Status == status
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// Cancel cancels a PENDING job. It reports false without error when the job
// exists but is in any other state.
func (q *Queue) Cancel(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.Get(id)
	if err != nil {
		return false, err
	}
	if job.Status != StatusPending {
		return false, nil
	}
	if err := job.transition(StatusCancelled); err != nil {
		return false, err
	}
	now := q.now().UTC()
	job.CompletedAt = &now
	if err := q.store.Save(job); err != nil {
		return false, err
	}

	metrics.RecordJobTransition(string(job.Type), string(StatusCancelled))
	q.logger.Info().Str("job_id", id).Msg("job cancelled")
	return true, nil
}

// QueueStats counts jobs per status and aggregates completed job results.
func (q *Queue) QueueStats(ctx context.Context) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	jobs, err := q.store.List(nil)
	if err != nil {
		return nil, err
	}

	stats := &Stats{PendingByType: make(map[JobType]int)}
	var totalDuration time.Duration
	var timed int
	for _, j := range jobs {
		switch j.Status {
		case StatusPending:
			stats.Pending++
			stats.PendingByType[j.Type]++
		case StatusRunning:
			stats.Running++
		case StatusRetrying:
			stats.Retrying++
			stats.PendingByType[j.Type]++
		case StatusCompleted:
			stats.Completed++
			if d := j.Duration(); d > 0 {
				totalDuration += d
				timed++
			}
		case StatusFailed:
			stats.Failed++
		case StatusCancelled:
			stats.Cancelled++
		}
		if j.Result != nil {
			stats.TotalTokens += int64(j.Result.TokensUsed)
		}
	}
	if timed > 0 {
		stats.AvgDurationMs = float64(totalDuration.Milliseconds()) / float64(timed)
	}

	metrics.JobQueueDepth.WithLabelValues(string(StatusPending)).Set(float64(stats.Pending))
	metrics.JobQueueDepth.WithLabelValues(string(StatusRunning)).Set(float64(stats.Running))
	metrics.JobQueueDepth.WithLabelValues(string(StatusRetrying)).Set(float64(stats.Retrying))
	return stats, nil
}

// Purge deletes terminal jobs that finished more than Retention ago.
func (q *Queue) Purge(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cutoff := q.now().Add(-q.cfg.Retention)

	q.mu.Lock()
	defer q.mu.Unlock()

	old, err := q.store.List(func(j *Job) bool {
		if !j.Status.Terminal() {
			return false
		}
		finished := j.CreatedAt
		if j.CompletedAt != nil {
			finished = *j.CompletedAt
		}
		return finished.Before(cutoff)
	})
	if err != nil {
		return 0, err
	}

	ids := make([]string, len(old))
	for i, j := range old {
		ids[i] = j.ID
	}
	if err := q.store.Delete(ids...); err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		q.logger.Info().Int("purged", len(ids)).Msg("purged old jobs")
	}
	return len(ids), nil
}

// Start runs Serve on a background goroutine until Stop is called or ctx
// ends.
func (q *Queue) Start(ctx context.Context) error {
	q.lifecycleMu.Lock()
	defer q.lifecycleMu.Unlock()

	if q.running {
		return errors.New("job queue already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.running = true

	q.serveWG.Add(1)
	go func() {
		defer q.serveWG.Done()
		if err := q.Serve(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			q.logger.Error().Err(err).Msg("job queue stopped with error")
		}
	}()
	return nil
}

// Stop cancels the poll loop and waits for it and any running job to exit.
func (q *Queue) Stop() {
	q.lifecycleMu.Lock()
	defer q.lifecycleMu.Unlock()

	if !q.running {
		return
	}
	q.cancel()
	q.serveWG.Wait()
	q.running = false
}

// Serve runs the poll loop and periodic tasks until ctx ends. It does not
// return before the running job, if any, has finished.
func (q *Queue) Serve(ctx context.Context) error {
	if err := q.recoverInterrupted(); err != nil {
		return err
	}

	poll := time.NewTicker(q.cfg.PollInterval)
	defer poll.Stop()
	schedule, stopSchedule := optionalTicker(q.cfg.ScheduleInterval)
	defer stopSchedule()
	staleness, stopStaleness := optionalTicker(q.cfg.StalenessInterval)
	defer stopStaleness()
	purge := time.NewTicker(q.cfg.PurgeInterval)
	defer purge.Stop()
	gc, stopGC := optionalTicker(q.cfg.GCInterval)
	defer stopGC()

	defer q.jobWG.Wait()

	q.logger.Info().Dur("poll_interval", q.cfg.PollInterval).Msg("job queue started")
	q.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			q.logger.Info().Msg("job queue stopping")
			return ctx.Err()
		case <-poll.C:
			q.poll(ctx)
		case <-q.wake:
			q.poll(ctx)
		case <-schedule:
			q.scheduleIncremental(ctx)
		case <-staleness:
			q.markStale(ctx)
		case <-purge.C:
			if _, err := q.Purge(ctx); err != nil {
				q.logger.Warn().Err(err).Msg("job purge failed")
			}
		case <-gc:
			if err := q.store.RunGC(); err != nil {
				q.logger.Debug().Err(err).Msg("job store GC failed")
			}
		}
	}
}

func optionalTicker(interval time.Duration) (<-chan time.Time, func()) {
	if interval <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(interval)
	return t.C, t.Stop
}

// recoverInterrupted resets jobs left RUNNING by a previous process.
func (q *Queue) recoverInterrupted() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	stuck, err := q.store.List(func(j *Job) bool { return j.Status == StatusRunning })
	if err != nil {
		return fmt.Errorf("recover running jobs: %w", err)
	}
	for _, job := range stuck {
		if err := job.transition(StatusPending); err != nil {
			return err
		}
		job.StartedAt = nil
		if err := q.store.Save(job); err != nil {
			return fmt.Errorf("recover job %s: %w", job.ID, err)
		}
		metrics.RecordJobTransition(string(job.Type), string(StatusPending))
		q.logger.Warn().Str("job_id", job.ID).Msg("reset interrupted job to pending")
	}
	return nil
}

// poll promotes due retries and starts the next job when none is running.
func (q *Queue) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.runningID != "" {
		return
	}

	now := q.now().UTC()
	candidates, err := q.store.List(func(j *Job) bool {
		return j.Status == StatusPending || j.Status == StatusRetrying
	})
	if err != nil {
		q.logger.Error().Err(err).Msg("poll failed")
		return
	}

	var next *Job
	for _, job := range candidates {
		if job.Status == StatusRetrying {
			if job.RetryAt != nil && job.RetryAt.After(now) {
				continue
			}
			if err := job.transition(StatusPending); err != nil {
				continue
			}
			job.RetryAt = nil
			if err := q.store.Save(job); err != nil {
				q.logger.Error().Err(err).Str("job_id", job.ID).Msg("promote retry failed")
				continue
			}
			metrics.RecordJobTransition(string(job.Type), string(StatusPending))
		}
		if next == nil || less(job, next) {
			next = job
		}
	}
	if next == nil {
		return
	}

	if err := next.transition(StatusRunning); err != nil {
		q.logger.Error().Err(err).Msg("start job failed")
		return
	}
	next.StartedAt = &now
	next.CompletedAt = nil
	if err := q.store.Save(next); err != nil {
		q.logger.Error().Err(err).Str("job_id", next.ID).Msg("start job failed")
		return
	}
	metrics.RecordJobTransition(string(next.Type), string(StatusRunning))

	q.runningID = next.ID
	q.jobWG.Add(1)
	go q.execute(ctx, next)
}

// execute runs job on its own goroutine and records the outcome.
func (q *Queue) execute(ctx context.Context, job *Job) {
	defer q.jobWG.Done()

	jobCtx, cancel := context.WithTimeout(logging.ContextWithJobID(ctx, job.ID), q.cfg.JobTimeout)
	defer cancel()

	log := logging.With(jobCtx, q.logger).With().Str("type", string(job.Type)).Int("attempt", job.RetryCount+1).Logger()
	log.Info().Msg("job started")

	result, err := q.invoke(jobCtx, job)
	q.finish(ctx, job.ID, result, err, log)
	q.signal()
}

func (q *Queue) invoke(ctx context.Context, job *Job) (result *Result, err error) {
	h, ok := q.handler(job.Type)
	if !ok {
		return nil, models.NewValidationError("type", "no handler registered for %q", job.Type)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job handler panic: %v", r)
		}
	}()
	return h(ctx, job)
}

// finish applies the outcome of a run. A job interrupted by shutdown stays
// RUNNING and is reset to PENDING on the next start.
func (q *Queue) finish(ctx context.Context, id string, result *Result, runErr error, log zerolog.Logger) {
	q.mu.Lock()
	defer q.mu.Unlock()
	defer func() { q.runningID = "" }()

	if runErr != nil && ctx.Err() != nil {
		log.Warn().Err(runErr).Msg("job interrupted by shutdown")
		return
	}

	job, err := q.store.Get(id)
	if err != nil {
		log.Error().Err(err).Msg("reload job failed")
		return
	}

	now := q.now().UTC()
	switch {
	case runErr == nil:
		_ = job.transition(StatusCompleted)
		if result == nil {
			result = &Result{}
		}
		if job.StartedAt != nil {
			result.DurationMs = now.Sub(*job.StartedAt).Milliseconds()
		}
		job.Result = result
		job.LastError = ""
		job.CompletedAt = &now
		log.Info().Int("processed", result.Processed).Int("failed", result.Failed).Msg("job completed")

	case job.RetryCount < job.MaxRetries && retryable(runErr):
		_ = job.transition(StatusRetrying)
		job.RetryCount++
		job.LastError = truncate(runErr.Error())
		retryAt := now.Add(q.retryDelay(job.RetryCount))
		job.RetryAt = &retryAt
		log.Warn().Err(runErr).Time("retry_at", retryAt).Int("retry_count", job.RetryCount).Msg("job failed, will retry")

	default:
		_ = job.transition(StatusFailed)
		job.LastError = truncate(runErr.Error())
		job.CompletedAt = &now
		log.Error().Err(runErr).Int("retry_count", job.RetryCount).Msg("job failed")
	}

	if err := q.store.Save(job); err != nil {
		log.Error().Err(err).Msg("save job outcome failed")
		return
	}

	metrics.RecordJobTransition(string(job.Type), string(job.Status))
	if job.Status.Terminal() {
		metrics.JobDuration.WithLabelValues(string(job.Type)).Observe(job.Duration().Seconds())
	}
}

// retryable rejects validation failures and terminal provider errors.
func retryable(err error) bool {
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

// retryDelay returns the backoff before retry number n (1-based).
func (q *Queue) retryDelay(n int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = q.cfg.RetryBaseDelay
	b.MaxInterval = q.cfg.RetryMaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	delay := b.NextBackOff()
	for i := 1; i < n; i++ {
		delay = b.NextBackOff()
	}
	return delay
}

func truncate(s string) string {
	if len(s) <= maxErrorLength {
		return s
	}
	return s[:maxErrorLength]
}

// scheduleIncremental enqueues an incremental update unless the backlog is
// already at MaxPendingForSchedule.
func (q *Queue) scheduleIncremental(ctx context.Context) {
	waiting, err := q.store.List(func(j *Job) bool {
		return j.Status == StatusPending || j.Status == StatusRetrying
	})
	if err != nil {
		q.logger.Warn().Err(err).Msg("schedule check failed")
		return
	}
	if len(waiting) >= q.cfg.MaxPendingForSchedule {
		q.logger.Debug().Int("waiting", len(waiting)).Msg("backlog full, skipping scheduled update")
		return
	}
	if _, err := q.Enqueue(ctx, TypeIncrementalUpdate, nil, 0, -1); err != nil {
		q.logger.Warn().Err(err).Msg("schedule incremental update failed")
	}
}

func (q *Queue) markStale(ctx context.Context) {
	q.handlersMu.RLock()
	m := q.stale
	q.handlersMu.RUnlock()
	if m == nil {
		return
	}
	n, err := m.MarkStale(ctx, q.cfg.StalenessThreshold)
	if err != nil {
		q.logger.Warn().Err(err).Msg("staleness marking failed")
		return
	}
	if n > 0 {
		q.logger.Info().Int64("marked", n).Msg("marked embeddings stale")
	}
}
