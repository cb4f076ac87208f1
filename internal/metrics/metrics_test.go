// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordStoreQuery(t *testing.T) {
	before := testutil.ToFloat64(StoreQueryErrors.WithLabelValues("upsert_test"))

	RecordStoreQuery("upsert_test", 5*time.Millisecond, nil)
	RecordStoreQuery("upsert_test", 5*time.Millisecond, errors.New("connection refused"))

	after := testutil.ToFloat64(StoreQueryErrors.WithLabelValues("upsert_test"))
	if after-before != 1 {
		t.Errorf("StoreQueryErrors delta = %v, want 1", after-before)
	}
}

func TestRecordCacheLookup(t *testing.T) {
	hitsBefore := testutil.ToFloat64(CacheHits.WithLabelValues("metrics_test", "local"))
	missesBefore := testutil.ToFloat64(CacheMisses.WithLabelValues("metrics_test"))

	RecordCacheLookup("metrics_test", "local", true)
	RecordCacheLookup("metrics_test", "local", true)
	RecordCacheLookup("metrics_test", "", false)

	if d := testutil.ToFloat64(CacheHits.WithLabelValues("metrics_test", "local")) - hitsBefore; d != 2 {
		t.Errorf("hits delta = %v, want 2", d)
	}
	if d := testutil.ToFloat64(CacheMisses.WithLabelValues("metrics_test")) - missesBefore; d != 1 {
		t.Errorf("misses delta = %v, want 1", d)
	}
}

func TestRecordProviderRequest(t *testing.T) {
	tokensBefore := testutil.ToFloat64(ProviderTokens)

	RecordProviderRequest("success", 120*time.Millisecond, 42)
	RecordProviderRequest("failure", 30*time.Millisecond, 0)

	if d := testutil.ToFloat64(ProviderTokens) - tokensBefore; d != 42 {
		t.Errorf("tokens delta = %v, want 42", d)
	}
}

func TestRecordPipelineRun(t *testing.T) {
	before := testutil.ToFloat64(PipelineItems.WithLabelValues("failed"))

	RecordPipelineRun(time.Second, 10, 2, 3)

	if d := testutil.ToFloat64(PipelineItems.WithLabelValues("failed")) - before; d != 3 {
		t.Errorf("failed delta = %v, want 3", d)
	}
}

func TestRecordHelpers_NoPanic(t *testing.T) {
	RecordJobTransition("embedding_batch", "COMPLETED")
	RecordSearch("search_by_content", 3*time.Millisecond)
	RecordAPIRequest("GET", "/api/v1/jobs/{id}", 200, 2*time.Millisecond)
}

func TestMetricsLint(t *testing.T) {
	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Fatalf("GatherAndLint() error = %v", err)
	}
	for _, p := range problems {
		t.Errorf("metric %s: %s", p.Metric, p.Text)
	}
}
