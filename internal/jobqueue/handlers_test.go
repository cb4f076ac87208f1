// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package jobqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vectorcast/internal/models"
	"github.com/tomtom215/vectorcast/internal/pipeline"
	"github.com/tomtom215/vectorcast/internal/processor"
)

type fakeRunner struct {
	mu          sync.Mutex
	runItems    []models.ContentMetadata
	runOpts     pipeline.Options
	incremental int
	result      *pipeline.Result
	err         error
}

func (f *fakeRunner) Run(_ context.Context, items []models.ContentMetadata, opts pipeline.Options) (*pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runItems = items
	f.runOpts = opts
	return f.result, f.err
}

func (f *fakeRunner) RunIncrementalUpdate(context.Context) (*pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incremental++
	return f.result, f.err
}

type fakeMaintainer struct {
	mu          sync.Mutex
	thresholds  []time.Duration
	maintained  int
	marked      int64
	maintainErr error
}

func (f *fakeMaintainer) MarkStale(_ context.Context, olderThan time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.thresholds = append(f.thresholds, olderThan)
	return f.marked, nil
}

func (f *fakeMaintainer) Maintain(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maintained++
	return f.maintainErr
}

func TestBatchHandler(t *testing.T) {
	t.Parallel()

	q := newTestQueue(t, testConfig())
	runner := &fakeRunner{result: &pipeline.Result{Processed: 2, Skipped: 1, TokensUsed: 40}}
	q.RegisterPipelineHandlers(runner, &fakeMaintainer{})

	payload := BatchPayload{
		Items: []models.ContentMetadata{
			{ExternalID: "a", Platform: "youtube", Title: "One"},
			{ExternalID: "b", Platform: "youtube", Title: "Two"},
		},
		Options: pipeline.Options{BatchSize: 10, MaxRetries: 1, SkipExisting: true},
	}
	id, err := q.Enqueue(context.Background(), TypeEmbeddingBatch, payload, 0, 0)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	startQueue(t, q)

	job := waitForStatus(t, q, id, StatusCompleted)
	if job.Result.Processed != 2 || job.Result.Skipped != 1 || job.Result.TokensUsed != 40 {
		t.Errorf("Result = %+v", job.Result)
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.runItems) != 2 {
		t.Errorf("pipeline received %d items, want 2", len(runner.runItems))
	}
	if runner.runOpts.BatchSize != 10 || !runner.runOpts.SkipExisting {
		t.Errorf("pipeline options = %+v", runner.runOpts)
	}
}

func TestDecodeBatchPayload_DefaultOptions(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{"items":[{"external_id":"a","platform":"vimeo","title":"T"}]}`)
	p, err := decodeBatchPayload(raw)
	if err != nil {
		t.Fatalf("decodeBatchPayload: %v", err)
	}
	if p.Options.MaxRetries != -1 {
		t.Errorf("MaxRetries = %d, want -1 (pipeline default)", p.Options.MaxRetries)
	}
}

func TestPipelineResult_AllFailedIsError(t *testing.T) {
	t.Parallel()

	transient := &models.ProviderError{Code: models.CodeTimeout, Retryable: true}

	tests := []struct {
		name      string
		res       *pipeline.Result
		wantErr   bool
		retryable bool
	}{
		{"partial success", &pipeline.Result{Processed: 1, Failed: 1, Errors: []processor.ItemError{{ExternalID: "x", Err: transient}}}, false, false},
		{"all failed transient", &pipeline.Result{Failed: 2, Errors: []processor.ItemError{{ExternalID: "x", Err: transient}}}, true, true},
		{"all failed validation", &pipeline.Result{Failed: 1, Errors: []processor.ItemError{{ExternalID: "x", Err: models.NewValidationError("title", "empty")}}}, true, false},
		{"nothing to do", &pipeline.Result{Skipped: 3}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := pipelineResult(tt.res)
			if (err != nil) != tt.wantErr {
				t.Fatalf("pipelineResult error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && retryable(err) != tt.retryable {
				t.Errorf("retryable(%v) = %v, want %v", err, retryable(err), tt.retryable)
			}
		})
	}
}

func TestIncrementalHandler_PropagatesError(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: &models.StoreError{Op: "mark_stale", Err: errors.New("locked")}}
	h := incrementalHandler(runner)

	if _, err := h(context.Background(), &Job{}); err == nil {
		t.Fatal("expected store error")
	}
	if runner.incremental != 1 {
		t.Errorf("RunIncrementalUpdate calls = %d, want 1", runner.incremental)
	}
}

func TestMaintenanceHandler(t *testing.T) {
	t.Parallel()

	q := newTestQueue(t, testConfig())
	m := &fakeMaintainer{marked: 7}
	h := q.maintenanceHandler(m)

	res, err := h(context.Background(), &Job{})
	if err != nil {
		t.Fatalf("maintenance: %v", err)
	}
	if res.MarkedStale != 7 {
		t.Errorf("MarkedStale = %d, want 7", res.MarkedStale)
	}

	raw, _ := json.Marshal(MaintenancePayload{StaleAfter: "72h"})
	if _, err := h(context.Background(), &Job{Payload: raw}); err != nil {
		t.Fatalf("maintenance with payload: %v", err)
	}

	m.mu.Lock()
	if m.thresholds[0] != testConfig().StalenessThreshold || m.thresholds[1] != 72*time.Hour {
		t.Errorf("thresholds = %v", m.thresholds)
	}
	if m.maintained != 2 {
		t.Errorf("Maintain calls = %d, want 2", m.maintained)
	}
	m.mu.Unlock()

	_, err = h(context.Background(), &Job{Payload: json.RawMessage(`{"stale_after":"-1h"}`)})
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("negative stale_after error = %v, want ValidationError", err)
	}
}

func TestMarkStale_UsesConfiguredThreshold(t *testing.T) {
	t.Parallel()

	q := newTestQueue(t, testConfig())
	m := &fakeMaintainer{}
	q.markStale(context.Background())

	q.SetStaleMarker(m)
	q.markStale(context.Background())

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.thresholds) != 1 || m.thresholds[0] != testConfig().StalenessThreshold {
		t.Errorf("thresholds = %v", m.thresholds)
	}
}
