// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package jobqueue

import (
	"errors"
	"fmt"
	"time"
)

// Config holds job queue settings.
type Config struct {
	Path       string `koanf:"path"`
	InMemory   bool   `koanf:"in_memory"`
	SyncWrites bool   `koanf:"sync_writes"`

	PollInterval time.Duration `koanf:"poll_interval"`
	JobTimeout   time.Duration `koanf:"job_timeout"`

	DefaultMaxRetries int           `koanf:"default_max_retries"`
	RetryBaseDelay    time.Duration `koanf:"retry_base_delay"`
	RetryMaxDelay     time.Duration `koanf:"retry_max_delay"`

	// ScheduleInterval is how often an incremental update is enqueued;
	// zero disables it. The enqueue is skipped while MaxPendingForSchedule
	// or more jobs are waiting.
	ScheduleInterval      time.Duration `koanf:"schedule_interval"`
	MaxPendingForSchedule int           `koanf:"max_pending_for_schedule"`

	PurgeInterval time.Duration `koanf:"purge_interval"`
	Retention     time.Duration `koanf:"retention"`

	// StalenessInterval is how often old embeddings are marked STALE
	// outside of jobs; zero disables it.
	StalenessInterval  time.Duration `koanf:"staleness_interval"`
	StalenessThreshold time.Duration `koanf:"staleness_threshold"`

	GCInterval time.Duration `koanf:"gc_interval"`

	// MaintenanceInterval is how often the supervised maintenance service
	// enqueues a maintenance job; zero disables it.
	MaintenanceInterval time.Duration `koanf:"maintenance_interval"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Path:                  "data/jobs",
		SyncWrites:            true,
		PollInterval:          time.Second,
		JobTimeout:            2 * time.Hour,
		DefaultMaxRetries:     3,
		RetryBaseDelay:        30 * time.Second,
		RetryMaxDelay:         30 * time.Minute,
		ScheduleInterval:      time.Hour,
		MaxPendingForSchedule: 5,
		PurgeInterval:         time.Hour,
		Retention:             7 * 24 * time.Hour,
		StalenessInterval:     6 * time.Hour,
		StalenessThreshold:    7 * 24 * time.Hour,
		GCInterval:            10 * time.Minute,
		MaintenanceInterval:   24 * time.Hour,
	}
}

// Validate checks the job queue configuration.
func (c *Config) Validate() error {
	if c.Path == "" && !c.InMemory {
		return errors.New("jobqueue path is required unless in_memory is set")
	}
	if c.PollInterval <= 0 {
		return errors.New("jobqueue poll_interval must be positive")
	}
	if c.JobTimeout <= 0 {
		return errors.New("jobqueue job_timeout must be positive")
	}
	if c.DefaultMaxRetries < 0 {
		return errors.New("jobqueue default_max_retries must not be negative")
	}
	if c.RetryBaseDelay <= 0 || c.RetryMaxDelay < c.RetryBaseDelay {
		return fmt.Errorf("jobqueue retry delays invalid: base=%v max=%v", c.RetryBaseDelay, c.RetryMaxDelay)
	}
	if c.ScheduleInterval < 0 || c.StalenessInterval < 0 || c.MaintenanceInterval < 0 {
		return errors.New("jobqueue intervals must not be negative")
	}
	if c.ScheduleInterval > 0 && c.MaxPendingForSchedule < 1 {
		return errors.New("jobqueue max_pending_for_schedule must be at least 1")
	}
	if c.PurgeInterval <= 0 || c.Retention <= 0 {
		return errors.New("jobqueue purge_interval and retention must be positive")
	}
	if c.StalenessInterval > 0 && c.StalenessThreshold <= 0 {
		return errors.New("jobqueue staleness_threshold must be positive")
	}
	return nil
}
