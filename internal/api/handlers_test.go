// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vectorcast/internal/cache"
	"github.com/tomtom215/vectorcast/internal/jobqueue"
	"github.com/tomtom215/vectorcast/internal/models"
	"github.com/tomtom215/vectorcast/internal/search"
	"github.com/tomtom215/vectorcast/internal/vectorstore"
)

// --- Fakes ---

type enqueueCall struct {
	jobType    jobqueue.JobType
	payload    interface{}
	priority   int
	maxRetries int
}

type fakeJobs struct {
	mu        sync.Mutex
	jobs      map[string]*jobqueue.Job
	enqueued  []enqueueCall
	enqueueFn func() (string, error)
	listErr   error
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: make(map[string]*jobqueue.Job)}
}

func (f *fakeJobs) Enqueue(_ context.Context, jobType jobqueue.JobType, payload interface{}, priority, maxRetries int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, enqueueCall{jobType, payload, priority, maxRetries})
	if f.enqueueFn != nil {
		return f.enqueueFn()
	}
	id := fmt.Sprintf("job-%d", len(f.enqueued))
	f.jobs[id] = &jobqueue.Job{ID: id, Type: jobType, Status: jobqueue.StatusPending, Priority: priority}
	return id, nil
}

func (f *fakeJobs) GetJob(_ context.Context, id string) (*jobqueue.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", jobqueue.ErrJobNotFound, id)
	}
	return job, nil
}

func (f *fakeJobs) ListJobs(_ context.Context, status jobqueue.Status, limit int) ([]*jobqueue.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*jobqueue.Job
	for _, j := range f.jobs {
		if status == "" || j.Status == status {
			out = append(out, j)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeJobs) Cancel(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", jobqueue.ErrJobNotFound, id)
	}
	if job.Status != jobqueue.StatusPending {
		return false, nil
	}
	job.Status = jobqueue.StatusCancelled
	return true, nil
}

func (f *fakeJobs) QueueStats(context.Context) (*jobqueue.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &jobqueue.Stats{Pending: len(f.jobs)}, nil
}

type fakeSearch struct {
	mu        sync.Mutex
	results   []models.SimilarityResult
	recs      []models.ScoredRecommendation
	err       error
	threshold float64

	lastText   string
	lastUser   string
	lastOpts   search.SearchOptions
	lastRecOpt search.RecommendOptions
	lastIn     models.Interaction
	prefs      map[string]*models.UserPreference
}

func (f *fakeSearch) SearchByContent(_ context.Context, text string, opts search.SearchOptions) ([]models.SimilarityResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastText, f.lastOpts = text, opts
	return f.results, f.err
}

func (f *fakeSearch) SearchPersonalized(_ context.Context, text, userID string, opts search.SearchOptions) ([]models.SimilarityResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastText, f.lastUser, f.lastOpts = text, userID, opts
	return f.results, f.err
}

func (f *fakeSearch) GenerateRecommendations(_ context.Context, opts search.RecommendOptions) ([]models.ScoredRecommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRecOpt = opts
	return f.recs, f.err
}

func (f *fakeSearch) UpdateUserPreferences(_ context.Context, in models.Interaction) (*models.UserPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastIn = in
	if f.err != nil {
		return nil, f.err
	}
	if in.Action == models.ActionDislike {
		return nil, nil
	}
	return &models.UserPreference{UserID: in.UserID, Confidence: 0.1, InteractionCount: 1}, nil
}

func (f *fakeSearch) GetPreference(_ context.Context, userID string) (*models.UserPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.prefs[userID]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w %s", search.ErrNoPreference, userID)
}

func (f *fakeSearch) TuneSimilarityThresholds(feedback []search.Feedback) (*search.ThresholdResult, error) {
	return search.TuneThreshold(feedback)
}

func (f *fakeSearch) DefaultThreshold() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.threshold
}

func (f *fakeSearch) SetDefaultThreshold(t float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threshold = t
	return nil
}

type fakeStore struct {
	pingErr error
	stats   *vectorstore.Stats
}

func (f *fakeStore) Stats(context.Context) (*vectorstore.Stats, error) {
	if f.stats == nil {
		return nil, &models.StoreError{Op: "stats", Err: errors.New("connection refused")}
	}
	return f.stats, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

type fakeCache struct {
	flushed int
}

func (f *fakeCache) Stats() cache.Stats {
	return cache.Stats{Namespaces: map[string]cache.NamespaceStats{
		cache.NamespaceEmbeddings: {Entries: 3, Hits: 7},
	}}
}

func (f *fakeCache) Flush(context.Context) { f.flushed++ }

type testDeps struct {
	jobs   *fakeJobs
	search *fakeSearch
	store  *fakeStore
	cache  *fakeCache
}

func newTestRouter(t *testing.T) (http.Handler, *testDeps) {
	t.Helper()
	deps := &testDeps{
		jobs:   newFakeJobs(),
		search: &fakeSearch{threshold: 0.7, prefs: map[string]*models.UserPreference{}},
		store:  &fakeStore{stats: &vectorstore.Stats{Total: 10, Completed: 8, Pending: 2}},
		cache:  &fakeCache{},
	}
	h := NewHandler(deps.jobs, deps.search, deps.store, deps.cache, zerolog.Nop())
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	return NewRouter(h, NewChiMiddleware(cfg), 1<<20).SetupChi(), deps
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not an API envelope: %v (body %q)", err, rec.Body.String())
	}
	return rec, resp
}

func decodeData(t *testing.T, resp models.APIResponse, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
}

// --- Test: jobs ---

func TestCreateJob(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           string
		wantStatus     int
		wantCode       string
		wantMaxRetries int
		wantPayload    bool
	}{
		{
			name:           "maintenance without payload",
			body:           `{"type":"maintenance","priority":5}`,
			wantStatus:     http.StatusAccepted,
			wantMaxRetries: -1,
		},
		{
			name:           "batch with payload and retries",
			body:           `{"type":"embedding_batch","payload":{"items":[{"external_id":"a","platform":"youtube","title":"A"}]},"max_retries":2}`,
			wantStatus:     http.StatusAccepted,
			wantMaxRetries: 2,
			wantPayload:    true,
		},
		{
			name:       "unknown type",
			body:       `{"type":"reindex"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   string(models.CodeValidation),
		},
		{
			name:       "retries out of range",
			body:       `{"type":"maintenance","max_retries":50}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   string(models.CodeValidation),
		},
		{
			name:       "malformed JSON",
			body:       `{"type":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeBadRequest,
		},
		{
			name:       "unknown field",
			body:       `{"type":"maintenance","when":"now"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router, deps := newTestRouter(t)

			rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/jobs", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCode != "" {
				if resp.Error == nil || resp.Error.Code != tt.wantCode {
					t.Fatalf("error = %+v, want code %s", resp.Error, tt.wantCode)
				}
				if len(deps.jobs.enqueued) != 0 {
					t.Error("invalid request reached the queue")
				}
				return
			}

			if len(deps.jobs.enqueued) != 1 {
				t.Fatalf("enqueued %d jobs, want 1", len(deps.jobs.enqueued))
			}
			call := deps.jobs.enqueued[0]
			if call.maxRetries != tt.wantMaxRetries {
				t.Errorf("maxRetries = %d, want %d", call.maxRetries, tt.wantMaxRetries)
			}
			if (call.payload != nil) != tt.wantPayload {
				t.Errorf("payload present = %v, want %v", call.payload != nil, tt.wantPayload)
			}

			var created CreateJobResponse
			decodeData(t, resp, &created)
			if created.JobID == "" {
				t.Error("expected job_id in response")
			}
		})
	}
}

func TestCreateJob_QueueValidationError(t *testing.T) {
	t.Parallel()
	router, deps := newTestRouter(t)
	deps.jobs.enqueueFn = func() (string, error) {
		return "", models.NewValidationError("payload", "embedding_batch requires items")
	}

	rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/jobs", `{"type":"embedding_batch"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp.Error.Code != string(models.CodeValidation) || resp.Error.Retryable {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestGetAndCancelJob(t *testing.T) {
	t.Parallel()
	router, deps := newTestRouter(t)

	_, resp := doRequest(t, router, http.MethodPost, "/api/v1/jobs", `{"type":"incremental_update"}`)
	var created CreateJobResponse
	decodeData(t, resp, &created)

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/jobs/"+created.JobID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var job jobqueue.Job
	decodeData(t, resp, &job)
	if job.Type != jobqueue.TypeIncrementalUpdate || job.Status != jobqueue.StatusPending {
		t.Errorf("job = %+v", job)
	}

	rec, resp = doRequest(t, router, http.MethodDelete, "/api/v1/jobs/"+created.JobID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d", rec.Code)
	}
	var cancelled CancelJobResponse
	decodeData(t, resp, &cancelled)
	if !cancelled.Cancelled {
		t.Error("expected cancelled=true")
	}

	// Second cancel: job is no longer pending.
	rec, resp = doRequest(t, router, http.MethodDelete, "/api/v1/jobs/"+created.JobID, "")
	if rec.Code != http.StatusConflict || resp.Error.Code != ErrCodeInvalidState {
		t.Errorf("second cancel = %d %+v, want 409 INVALID_STATE", rec.Code, resp.Error)
	}

	if deps.jobs.jobs[created.JobID].Status != jobqueue.StatusCancelled {
		t.Error("job not cancelled in queue")
	}
}

func TestGetJob_NotFound(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec, resp := doRequest(t, router, method, "/api/v1/jobs/missing", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", method, rec.Code)
		}
		if resp.Error == nil || resp.Error.Code != string(models.CodeNotFound) {
			t.Errorf("%s error = %+v", method, resp.Error)
		}
	}
}

func TestListJobs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCount  int
	}{
		{"all", "", http.StatusOK, 3},
		{"limit", "?limit=2", http.StatusOK, 2},
		{"status filter", "?status=PENDING", http.StatusOK, 3},
		{"no matches", "?status=FAILED", http.StatusOK, 0},
		{"bad status", "?status=DONE", http.StatusBadRequest, 0},
		{"bad limit", "?limit=0", http.StatusBadRequest, 0},
		{"limit too high", "?limit=5000", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router, _ := newTestRouter(t)
			for i := 0; i < 3; i++ {
				doRequest(t, router, http.MethodPost, "/api/v1/jobs", `{"type":"maintenance"}`)
			}

			rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/jobs"+tt.query, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var jobs []jobqueue.Job
			decodeData(t, resp, &jobs)
			if len(jobs) != tt.wantCount {
				t.Errorf("got %d jobs, want %d", len(jobs), tt.wantCount)
			}
		})
	}
}

func TestJobStats(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)
	doRequest(t, router, http.MethodPost, "/api/v1/jobs", `{"type":"maintenance"}`)

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/jobs/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats jobqueue.Stats
	decodeData(t, resp, &stats)
	if stats.Pending != 1 {
		t.Errorf("pending = %d, want 1", stats.Pending)
	}
}

// --- Test: search ---

func TestSearch(t *testing.T) {
	t.Parallel()
	router, deps := newTestRouter(t)
	deps.search.results = []models.SimilarityResult{
		{ExternalID: "v1", Platform: "youtube", Similarity: 0.91},
	}

	body := `{"query":"go concurrency talk","limit":5,"threshold":0.6,"platform":"youtube","hybrid":true}`
	rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/search", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}

	var results []models.SimilarityResult
	decodeData(t, resp, &results)
	if len(results) != 1 || results[0].ExternalID != "v1" {
		t.Errorf("results = %+v", results)
	}
	if deps.search.lastText != "go concurrency talk" {
		t.Errorf("query = %q", deps.search.lastText)
	}
	opts := deps.search.lastOpts
	if opts.Limit != 5 || opts.Threshold == nil || *opts.Threshold != 0.6 || opts.Platform != "youtube" || !opts.Hybrid {
		t.Errorf("options not forwarded: %+v", opts)
	}
}

func TestSearch_EmptyResultsIsArray(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/search", `{"query":"nothing matches"}`)
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestSearch_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"missing query", `{"limit":5}`},
		{"blank query", `{"query":"   "}`},
		{"threshold out of range", `{"query":"x","threshold":1.5}`},
		{"bad platform", `{"query":"x","platform":"You Tube"}`},
		{"negative limit", `{"query":"x","limit":-1}`},
		{"semantic weight out of range", `{"query":"x","semantic_weight":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router, _ := newTestRouter(t)
			rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/search", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if resp.Error == nil || resp.Error.Code != string(models.CodeValidation) {
				t.Errorf("error = %+v", resp.Error)
			}
		})
	}
}

func TestSearch_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		err           error
		wantStatus    int
		wantCode      string
		wantRetryable bool
		wantRetryHdr  string
	}{
		{
			name:          "circuit open",
			err:           &models.ProviderError{Code: models.CodeCircuitOpen, Message: "breaker open", Retryable: true},
			wantStatus:    http.StatusServiceUnavailable,
			wantCode:      string(models.CodeCircuitOpen),
			wantRetryable: true,
		},
		{
			name:          "rate limited",
			err:           &models.ProviderError{Code: models.CodeRateLimitExceeded, Retryable: true, RetryAfter: 3 * time.Second},
			wantStatus:    http.StatusTooManyRequests,
			wantCode:      string(models.CodeRateLimitExceeded),
			wantRetryable: true,
			wantRetryHdr:  "3",
		},
		{
			name:          "timeout",
			err:           &models.ProviderError{Code: models.CodeTimeout, Retryable: true},
			wantStatus:    http.StatusGatewayTimeout,
			wantCode:      string(models.CodeTimeout),
			wantRetryable: true,
		},
		{
			name:       "malformed response",
			err:        &models.ProviderError{Code: models.CodeMalformedResponse},
			wantStatus: http.StatusBadGateway,
			wantCode:   string(models.CodeMalformedResponse),
		},
		{
			name:          "store failure",
			err:           fmt.Errorf("search: %w", &models.StoreError{Op: "find_similar", Err: errors.New("io")}),
			wantStatus:    http.StatusServiceUnavailable,
			wantCode:      string(models.CodeStoreFailure),
			wantRetryable: true,
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   string(models.CodeInternal),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router, deps := newTestRouter(t)
			deps.search.err = tt.err

			rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/search", `{"query":"x"}`)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if resp.Status != "error" || resp.Error == nil {
				t.Fatalf("expected error envelope, got %+v", resp)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Error.Code, tt.wantCode)
			}
			if resp.Error.Retryable != tt.wantRetryable {
				t.Errorf("retryable = %v, want %v", resp.Error.Retryable, tt.wantRetryable)
			}
			if got := rec.Header().Get("Retry-After"); got != tt.wantRetryHdr {
				t.Errorf("Retry-After = %q, want %q", got, tt.wantRetryHdr)
			}
		})
	}
}

func TestSearchPersonalized(t *testing.T) {
	t.Parallel()
	router, deps := newTestRouter(t)

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/search/personalized",
		`{"user_id":"u1","query":"cooking","category":"food"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	if deps.search.lastUser != "u1" || deps.search.lastText != "cooking" || deps.search.lastOpts.Category != "food" {
		t.Errorf("forwarded user=%q text=%q opts=%+v", deps.search.lastUser, deps.search.lastText, deps.search.lastOpts)
	}

	rec, _ = doRequest(t, router, http.MethodPost, "/api/v1/search/personalized", `{"query":"cooking"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing user_id status = %d, want 400", rec.Code)
	}
}

func TestRecommend(t *testing.T) {
	t.Parallel()
	router, deps := newTestRouter(t)
	deps.search.recs = []models.ScoredRecommendation{
		{SimilarityResult: models.SimilarityResult{ExternalID: "r1", Platform: "vimeo"}, FinalScore: 0.8},
	}

	rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/recommendations",
		`{"user_id":"u1","limit":10,"diversity_factor":0.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	var recs []models.ScoredRecommendation
	decodeData(t, resp, &recs)
	if len(recs) != 1 || recs[0].FinalScore != 0.8 {
		t.Errorf("recs = %+v", recs)
	}
	got := deps.search.lastRecOpt
	if got.UserID != "u1" || got.Limit != 10 || got.DiversityFactor == nil || *got.DiversityFactor != 0.5 {
		t.Errorf("options = %+v", got)
	}

	rec, _ = doRequest(t, router, http.MethodPost, "/api/v1/recommendations", `{"user_id":"u1","diversity_factor":1.5}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad diversity factor status = %d, want 400", rec.Code)
	}
}

func TestRecordInteraction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantNil    bool
	}{
		{
			name:       "like",
			body:       `{"user_id":"u1","external_id":"v1","platform":"youtube","action":"like"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "negative first interaction",
			body:       `{"user_id":"u1","external_id":"v1","platform":"youtube","action":"dislike"}`,
			wantStatus: http.StatusOK,
			wantNil:    true,
		},
		{
			name:       "unknown action",
			body:       `{"user_id":"u1","external_id":"v1","platform":"youtube","action":"bookmark"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "watch fraction out of range",
			body:       `{"user_id":"u1","external_id":"v1","platform":"youtube","action":"watch","watch_fraction":1.2}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router, _ := newTestRouter(t)
			rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/interactions", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if (resp.Data == nil) != tt.wantNil {
				t.Errorf("data = %v, want nil=%v", resp.Data, tt.wantNil)
			}
		})
	}
}

func TestRecordInteraction_ItemNotEmbedded(t *testing.T) {
	t.Parallel()
	router, deps := newTestRouter(t)
	deps.search.err = fmt.Errorf("item youtube:v9: %w", models.ErrNotFound)

	rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/interactions",
		`{"user_id":"u1","external_id":"v9","platform":"youtube","action":"like"}`)
	if rec.Code != http.StatusNotFound || resp.Error.Code != string(models.CodeNotFound) {
		t.Errorf("got %d %+v, want 404 NOT_FOUND", rec.Code, resp.Error)
	}
}

func TestGetPreference(t *testing.T) {
	t.Parallel()
	router, deps := newTestRouter(t)
	deps.search.prefs["u1"] = &models.UserPreference{UserID: "u1", Confidence: 0.4, InteractionCount: 4}

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/users/u1/preference", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var pref models.UserPreference
	decodeData(t, resp, &pref)
	if pref.InteractionCount != 4 {
		t.Errorf("pref = %+v", pref)
	}

	rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/users/nobody/preference", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown user status = %d, want 404", rec.Code)
	}
}

// --- Test: threshold tuning ---

func TestTuneThresholds(t *testing.T) {
	t.Parallel()

	feedback := `[{"similarity":0.9,"relevant":true},{"similarity":0.8,"relevant":true},` +
		`{"similarity":0.6,"relevant":false},{"similarity":0.4,"relevant":false}]`

	tests := []struct {
		name          string
		apply         bool
		wantThreshold float64
	}{
		{"report only", false, 0.7},
		{"apply", true, 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router, deps := newTestRouter(t)

			body := fmt.Sprintf(`{"feedback":%s,"apply":%v}`, feedback, tt.apply)
			rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/thresholds/tune", body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
			}

			var out TuneResponse
			decodeData(t, resp, &out)
			if out.ThresholdResult == nil || out.Threshold != 0.8 || out.F1 != 1 {
				t.Fatalf("result = %+v", out.ThresholdResult)
			}
			if out.Applied != tt.apply {
				t.Errorf("applied = %v, want %v", out.Applied, tt.apply)
			}
			if got := deps.search.DefaultThreshold(); got != tt.wantThreshold {
				t.Errorf("engine threshold = %v, want %v", got, tt.wantThreshold)
			}
		})
	}
}

func TestTuneThresholds_EmptyFeedback(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/thresholds/tune", `{"feedback":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetThreshold(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	_, resp := doRequest(t, router, http.MethodGet, "/api/v1/thresholds", "")
	var out map[string]float64
	decodeData(t, resp, &out)
	if out["threshold"] != 0.7 {
		t.Errorf("threshold = %v, want 0.7", out["threshold"])
	}
}

// --- Test: admin ---

func TestStoreStats(t *testing.T) {
	t.Parallel()
	router, deps := newTestRouter(t)

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/store/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats vectorstore.Stats
	decodeData(t, resp, &stats)
	if stats.Total != 10 || stats.Completed != 8 {
		t.Errorf("stats = %+v", stats)
	}

	deps.store.stats = nil
	rec, resp = doRequest(t, router, http.MethodGet, "/api/v1/store/stats", "")
	if rec.Code != http.StatusServiceUnavailable || resp.Error.Code != string(models.CodeStoreFailure) {
		t.Errorf("store failure = %d %+v", rec.Code, resp.Error)
	}
}

func TestCacheEndpoints(t *testing.T) {
	t.Parallel()
	router, deps := newTestRouter(t)

	_, resp := doRequest(t, router, http.MethodGet, "/api/v1/cache/stats", "")
	var stats cache.Stats
	decodeData(t, resp, &stats)
	if stats.Namespaces[cache.NamespaceEmbeddings].Entries != 3 {
		t.Errorf("stats = %+v", stats)
	}

	rec, _ := doRequest(t, router, http.MethodDelete, "/api/v1/cache", "")
	if rec.Code != http.StatusOK || deps.cache.flushed != 1 {
		t.Errorf("flush status=%d flushed=%d", rec.Code, deps.cache.flushed)
	}
}

func TestCacheEndpoints_NoCache(t *testing.T) {
	t.Parallel()
	h := NewHandler(newFakeJobs(), &fakeSearch{}, &fakeStore{}, nil, zerolog.Nop())
	router := NewRouter(h, nil, 0).SetupChi()

	rec, resp := doRequest(t, router, http.MethodDelete, "/api/v1/cache", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out map[string]bool
	decodeData(t, resp, &out)
	if out["flushed"] {
		t.Error("flushed should be false without a cache")
	}
}

// --- Test: health ---

func TestHealth(t *testing.T) {
	t.Parallel()
	router, deps := newTestRouter(t)

	rec, _ := doRequest(t, router, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("liveness = %d", rec.Code)
	}

	rec, resp := doRequest(t, router, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("readiness = %d", rec.Code)
	}
	var status HealthStatus
	decodeData(t, resp, &status)
	if !status.StoreHealthy {
		t.Error("store should be healthy")
	}

	deps.store.pingErr = &models.StoreError{Op: "ping", Err: errors.New("closed")}
	rec, resp = doRequest(t, router, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readiness with failing store = %d, want 503", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != ErrCodeNotReady || !resp.Error.Retryable {
		t.Errorf("error = %+v", resp.Error)
	}
}
