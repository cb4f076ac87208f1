// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/vectorcast/internal/cache"
	"github.com/tomtom215/vectorcast/internal/jobqueue"
)

var (
	_ suture.Service = (*JobQueueService)(nil)
	_ suture.Service = (*MaintenanceService)(nil)
	_ suture.Service = (*CacheSweeperService)(nil)

	_ JobRunner   = (*jobqueue.Queue)(nil)
	_ JobEnqueuer = (*jobqueue.Queue)(nil)
	_ Sweeper     = (*cache.EmbeddingCache)(nil)
)

// --- Test: JobQueueService ---

type fakeRunner struct {
	err error
}

func (f *fakeRunner) Serve(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestJobQueueService(t *testing.T) {
	t.Parallel()

	t.Run("returns context error on cancel", func(t *testing.T) {
		t.Parallel()

		svc := NewJobQueueService(&fakeRunner{}, zerolog.Nop())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
		if svc.String() != "job-queue" {
			t.Errorf("String() = %q", svc.String())
		}
	})

	t.Run("wraps worker failure", func(t *testing.T) {
		t.Parallel()

		storeErr := errors.New("badger: closed")
		svc := NewJobQueueService(&fakeRunner{err: storeErr}, zerolog.Nop())
		if err := svc.Serve(context.Background()); !errors.Is(err, storeErr) {
			t.Errorf("Serve() = %v, want wrapped %v", err, storeErr)
		}
	})
}

func TestJobQueueService_RealQueue(t *testing.T) {
	t.Parallel()

	cfg := jobqueue.DefaultConfig()
	cfg.InMemory = true
	cfg.PollInterval = 5 * time.Millisecond
	cfg.ScheduleInterval = 0
	cfg.StalenessInterval = 0
	cfg.GCInterval = 0

	store, err := jobqueue.OpenStore(cfg)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	q, err := jobqueue.New(cfg, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ran := make(chan struct{}, 1)
	q.Handle(jobqueue.TypeIncrementalUpdate, func(context.Context, *jobqueue.Job) (*jobqueue.Result, error) {
		ran <- struct{}{}
		return &jobqueue.Result{}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- NewJobQueueService(q, zerolog.Nop()).Serve(ctx) }()

	if _, err := q.Enqueue(ctx, jobqueue.TypeIncrementalUpdate, nil, 0, -1); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not executed")
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
}

// --- Test: MaintenanceService ---

type fakeEnqueuer struct {
	mu       sync.Mutex
	enqueued []jobqueue.JobType
	pending  int
	statsErr error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, jobType jobqueue.JobType, _ interface{}, _, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, jobType)
	return "job-1", nil
}

func (f *fakeEnqueuer) QueueStats(context.Context) (*jobqueue.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return &jobqueue.Stats{PendingByType: map[jobqueue.JobType]int{jobqueue.TypeMaintenance: f.pending}}, nil
}

func (f *fakeEnqueuer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.enqueued)
}

func TestMaintenanceService(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cfg       MaintenanceServiceConfig
		pending   int
		statsErr  error
		wantAtMin int
		wantAtMax int
	}{
		{"startup run", MaintenanceServiceConfig{RunOnStartup: true, Interval: time.Hour}, 0, nil, 1, 1},
		{"no startup run", MaintenanceServiceConfig{Interval: time.Hour}, 0, nil, 0, 0},
		{"ticks", MaintenanceServiceConfig{Interval: 10 * time.Millisecond}, 0, nil, 2, 100},
		{"skips when pending", MaintenanceServiceConfig{RunOnStartup: true, Interval: 10 * time.Millisecond}, 1, nil, 0, 0},
		{"skips on stats error", MaintenanceServiceConfig{RunOnStartup: true, Interval: time.Hour}, 0, errors.New("closed"), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q := &fakeEnqueuer{pending: tt.pending, statsErr: tt.statsErr}
			svc := NewMaintenanceService(q, tt.cfg, zerolog.Nop())

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("Serve() = %v, want deadline exceeded", err)
			}

			if got := q.count(); got < tt.wantAtMin || got > tt.wantAtMax {
				t.Errorf("enqueued %d jobs, want between %d and %d", got, tt.wantAtMin, tt.wantAtMax)
			}
		})
	}
}

func TestNewMaintenanceService_DefaultInterval(t *testing.T) {
	t.Parallel()

	svc := NewMaintenanceService(&fakeEnqueuer{}, MaintenanceServiceConfig{}, zerolog.Nop())
	if svc.config.Interval != 24*time.Hour {
		t.Errorf("Interval = %v, want 24h", svc.config.Interval)
	}
	if svc.String() != "maintenance-scheduler" {
		t.Errorf("String() = %q", svc.String())
	}
}

// --- Test: CacheSweeperService ---

func TestCacheSweeperService(t *testing.T) {
	t.Parallel()

	cfg := cache.DefaultConfig()
	cfg.Embeddings.TTL = time.Millisecond
	c, err := cache.New(cfg, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.SetEmbedding(ctx, "k", []float32{1, 0})

	svc := NewCacheSweeperService(c, 5*time.Millisecond)
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Stats().Namespaces[cache.NamespaceEmbeddings].Entries == 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if size := c.Stats().Namespaces[cache.NamespaceEmbeddings].Entries; size != 0 {
		t.Errorf("expired entry not swept, size = %d", size)
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if svc.String() != "cache-sweeper" {
		t.Errorf("String() = %q", svc.String())
	}
}
