// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// JobRunner is the poll loop of the job queue. *jobqueue.Queue satisfies it.
type JobRunner interface {
	Serve(ctx context.Context) error
}

// JobQueueService runs the job queue worker under supervision.
//
// The queue's Serve already blocks until ctx ends and waits for the job in
// flight. A non-context error (for example, failing to reset interrupted jobs
// in the store) is returned so the supervisor restarts the worker.
type JobQueueService struct {
	queue  JobRunner
	logger zerolog.Logger
	name   string
}

// NewJobQueueService wraps queue.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewJobQueueService(queue JobRunner, logger zerolog.Logger) *JobQueueService {
	return &JobQueueService{
		queue:  queue,
		logger: logger.With().Str("service", "job-queue").Logger(),
		name:   "job-queue",
	}
}

// Serve implements suture.Service.
func (s *JobQueueService) Serve(ctx context.Context) error {
	err := s.queue.Serve(ctx)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ctx.Err()
	}
	s.logger.Error().Err(err).Msg("job queue worker failed")
	return fmt.Errorf("job queue: %w", err)
}

// String returns the service name for logging.
func (s *JobQueueService) String() string {
	return s.name
}
