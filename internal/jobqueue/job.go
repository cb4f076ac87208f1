// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package jobqueue

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// JobType selects the handler for a job.
type JobType string

const (
	TypeEmbeddingBatch    JobType = "embedding_batch"
	TypeIncrementalUpdate JobType = "incremental_update"
	TypeMaintenance       JobType = "maintenance"
)

// Valid reports whether t is a known job type.
func (t JobType) Valid() bool {
	switch t {
	case TypeEmbeddingBatch, TypeIncrementalUpdate, TypeMaintenance:
		return true
	}
	return false
}

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusRetrying  Status = "RETRYING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

var (
	// ErrJobNotFound is returned for unknown job IDs.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("invalid job status transition")
)

// transitions lists the allowed target states per state. RUNNING -> PENDING
// is only used to recover jobs interrupted by a restart.
var transitions = map[Status][]Status{
	StatusPending:  {StatusRunning, StatusCancelled},
	StatusRunning:  {StatusCompleted, StatusRetrying, StatusFailed, StatusPending},
	StatusRetrying: {StatusPending},
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Result summarizes what a job did.
type Result struct {
	Processed   int   `json:"processed"`
	Skipped     int   `json:"skipped"`
	Failed      int   `json:"failed"`
	TokensUsed  int   `json:"tokens_used"`
	MarkedStale int64 `json:"marked_stale,omitempty"`
	Purged      int   `json:"purged,omitempty"`
	DurationMs  int64 `json:"duration_ms"`
}

// Job is a unit of queued work.
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      Status          `json:"status"`
	Priority    int             `json:"priority"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	RetryCount  int             `json:"retry_count"`
	MaxRetries  int             `json:"max_retries"`
	LastError   string          `json:"last_error,omitempty"`
	Result      *Result         `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	RetryAt     *time.Time      `json:"retry_at,omitempty"`
}

// transition moves j to status, or returns ErrInvalidTransition.
func (j *Job) transition(to Status) error {
	if !CanTransition(j.Status, to) {
		return fmt.Errorf("%w: %s -> %s (job %s)", ErrInvalidTransition, j.Status, to, j.ID)
	}
	j.Status = to
	return nil
}

// Duration returns how long the last run took, or zero if unfinished.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}

// less orders jobs for execution: higher priority first, then older first.
func less(a, b *Job) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
