// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vectorcast/internal/jobqueue"
)

// JobEnqueuer submits jobs. *jobqueue.Queue satisfies it.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, jobType jobqueue.JobType, payload interface{}, priority, maxRetries int) (string, error)
	QueueStats(ctx context.Context) (*jobqueue.Stats, error)
}

// MaintenanceServiceConfig holds configuration for the maintenance scheduler.
type MaintenanceServiceConfig struct {
	// RunOnStartup enqueues a maintenance job when the service starts.
	RunOnStartup bool

	// Interval is how often to enqueue maintenance. Default: 24h.
	Interval time.Duration

	// Priority of the enqueued job. Maintenance normally yields to batches.
	Priority int
}

// MaintenanceService periodically enqueues a maintenance job that marks stale
// embeddings, runs store maintenance and purges old jobs.
//
// The work itself runs inside the job queue so it gets the queue's retry
// budget and shows up in job history.
type MaintenanceService struct {
	queue  JobEnqueuer
	config MaintenanceServiceConfig
	logger zerolog.Logger
	name   string
}

// NewMaintenanceService creates a new maintenance scheduler.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewMaintenanceService(queue JobEnqueuer, cfg MaintenanceServiceConfig, logger zerolog.Logger) *MaintenanceService {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	return &MaintenanceService{
		queue:  queue,
		config: cfg,
		logger: logger.With().Str("service", "maintenance").Logger(),
		name:   "maintenance-scheduler",
	}
}

// Serve implements the suture.Service interface.
func (s *MaintenanceService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("run_on_startup", s.config.RunOnStartup).
		Dur("interval", s.config.Interval).
		Msg("maintenance scheduler starting")

	if s.config.RunOnStartup {
		s.enqueue(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.enqueue(ctx)
		}
	}
}

// enqueue submits a maintenance job unless one is already waiting.
func (s *MaintenanceService) enqueue(ctx context.Context) {
	stats, err := s.queue.QueueStats(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("queue stats unavailable, skipping maintenance")
		return
	}
	if stats.PendingByType[jobqueue.TypeMaintenance] > 0 {
		s.logger.Debug().Msg("maintenance already pending")
		return
	}

	id, err := s.queue.Enqueue(ctx, jobqueue.TypeMaintenance, nil, s.config.Priority, -1)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to enqueue maintenance job")
		return
	}
	s.logger.Info().Str("job_id", id).Msg("maintenance job enqueued")
}

// String returns the service name for logging.
func (s *MaintenanceService) String() string {
	return s.name
}
