// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vectorcast/internal/models"
	"github.com/tomtom215/vectorcast/internal/pipeline"
	"github.com/tomtom215/vectorcast/internal/validation"
)

// PipelineRunner is the part of the pipeline jobs drive.
type PipelineRunner interface {
	Run(ctx context.Context, items []models.ContentMetadata, opts pipeline.Options) (*pipeline.Result, error)
	RunIncrementalUpdate(ctx context.Context) (*pipeline.Result, error)
}

// Maintainer is the vector store housekeeping used by maintenance jobs.
type Maintainer interface {
	StaleMarker
	Maintain(ctx context.Context) error
}

// BatchPayload is the payload of an embedding_batch job.
type BatchPayload struct {
	Items   []models.ContentMetadata `json:"items" validate:"required,min=1,max=10000"`
	Options pipeline.Options         `json:"options"`
}

// MaintenancePayload is the optional payload of a maintenance job.
// StaleAfter overrides the configured staleness threshold, e.g. "72h".
type MaintenancePayload struct {
	StaleAfter string `json:"stale_after,omitempty"`
}

func decodeBatchPayload(raw json.RawMessage) (*BatchPayload, error) {
	p := &BatchPayload{Options: pipeline.DefaultOptions()}
	if len(raw) == 0 {
		return nil, models.NewValidationError("payload", "embedding_batch requires items")
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, models.NewValidationError("payload", "invalid embedding_batch payload: %v", err)
	}
	if err := validation.Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// RegisterPipelineHandlers wires the three job types to the pipeline and the
// vector store, and enables periodic staleness marking through m.
func (q *Queue) RegisterPipelineHandlers(p PipelineRunner, m Maintainer) {
	q.Handle(TypeEmbeddingBatch, batchHandler(p))
	q.Handle(TypeIncrementalUpdate, incrementalHandler(p))
	q.Handle(TypeMaintenance, q.maintenanceHandler(m))
	q.SetStaleMarker(m)
}

func batchHandler(p PipelineRunner) Handler {
	return func(ctx context.Context, job *Job) (*Result, error) {
		payload, err := decodeBatchPayload(job.Payload)
		if err != nil {
			return nil, err
		}
		res, err := p.Run(ctx, payload.Items, payload.Options)
		if err != nil {
			return nil, err
		}
		return pipelineResult(res)
	}
}

func incrementalHandler(p PipelineRunner) Handler {
	return func(ctx context.Context, _ *Job) (*Result, error) {
		res, err := p.RunIncrementalUpdate(ctx)
		if err != nil {
			return nil, err
		}
		return pipelineResult(res)
	}
}

// pipelineResult converts a pipeline run into a job result. A run where
// every attempted item failed is returned as an error so the job itself is
// retried.
func pipelineResult(res *pipeline.Result) (*Result, error) {
	out := &Result{
		Processed:  res.Processed,
		Skipped:    res.Skipped,
		Failed:     res.Failed,
		TokensUsed: res.TokensUsed,
	}
	if res.Processed == 0 && res.Failed > 0 && len(res.Errors) > 0 {
		first := res.Errors[0]
		return out, fmt.Errorf("all %d items failed: %w", res.Failed, first)
	}
	return out, nil
}

func (q *Queue) maintenanceHandler(m Maintainer) Handler {
	return func(ctx context.Context, job *Job) (*Result, error) {
		threshold := q.cfg.StalenessThreshold
		if len(job.Payload) > 0 {
			var p MaintenancePayload
			if err := json.Unmarshal(job.Payload, &p); err != nil {
				return nil, models.NewValidationError("payload", "invalid maintenance payload: %v", err)
			}
			if p.StaleAfter != "" {
				d, err := time.ParseDuration(p.StaleAfter)
				if err != nil || d <= 0 {
					return nil, models.NewValidationError("stale_after", "must be a positive duration")
				}
				threshold = d
			}
		}

		marked, err := m.MarkStale(ctx, threshold)
		if err != nil {
			return nil, err
		}
		if err := m.Maintain(ctx); err != nil {
			return nil, err
		}
		purged, err := q.Purge(ctx)
		if err != nil {
			return nil, err
		}
		return &Result{MarkedStale: marked, Purged: purged}, nil
	}
}
