// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/vectorcast/internal/metrics"
	"github.com/tomtom215/vectorcast/internal/models"
)

type admission struct {
	at     time.Time
	tokens int
}

// RateLimiter enforces request and token budgets over a rolling window.
// Safe for concurrent use.
type RateLimiter struct {
	maxRequests int
	maxTokens   int
	window      time.Duration
	maxWait     time.Duration

	mu      sync.Mutex
	entries []admission
	tokens  int
	now     func() time.Time
}

// NewRateLimiter creates a limiter admitting at most maxRequests calls and
// maxTokens tokens per window. maxWait bounds Wait when the context carries
// no deadline; zero means wait as long as needed.
func NewRateLimiter(maxRequests, maxTokens int, window, maxWait time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		maxTokens:   maxTokens,
		window:      window,
		maxWait:     maxWait,
		now:         time.Now,
	}
}

// TryAcquire admits the call immediately or reports false without blocking.
func (r *RateLimiter) TryAcquire(tokens int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	wait, err := r.reserveLocked(tokens)
	return err == nil && wait == 0
}

// Wait blocks until both budgets admit a call consuming tokens. When the
// required wait exceeds the caller's deadline it fails immediately with a
// RATE_LIMIT_EXCEEDED ProviderError instead of sleeping.
func (r *RateLimiter) Wait(ctx context.Context, tokens int) error {
	start := r.now()
	defer func() {
		metrics.RateLimitWait.Observe(r.now().Sub(start).Seconds())
	}()

	for {
		r.mu.Lock()
		wait, err := r.reserveLocked(tokens)
		r.mu.Unlock()
		if err != nil {
			metrics.RateLimitRejections.Inc()
			return err
		}
		if wait == 0 {
			return nil
		}

		if deadline, ok := r.deadline(ctx, start); ok && r.now().Add(wait).After(deadline) {
			metrics.RateLimitRejections.Inc()
			return &models.ProviderError{
				Code:       models.CodeRateLimitExceeded,
				Message:    fmt.Sprintf("rate limit wait of %s exceeds deadline", wait.Round(time.Millisecond)),
				Retryable:  true,
				RetryAfter: wait,
				Err:        models.ErrRateLimitExceeded,
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Usage returns the requests and tokens currently counted in the window.
func (r *RateLimiter) Usage() (requests, tokens int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked(r.now())
	return len(r.entries), r.tokens
}

func (r *RateLimiter) deadline(ctx context.Context, start time.Time) (time.Time, bool) {
	if d, ok := ctx.Deadline(); ok {
		return d, true
	}
	if r.maxWait > 0 {
		return start.Add(r.maxWait), true
	}
	return time.Time{}, false
}

// reserveLocked records the admission when both budgets allow it and
// otherwise returns how long until they will.
func (r *RateLimiter) reserveLocked(tokens int) (time.Duration, error) {
	if tokens > r.maxTokens {
		return 0, &models.ProviderError{
			Code:    models.CodeRateLimitExceeded,
			Message: fmt.Sprintf("request of %d tokens exceeds per-window budget of %d", tokens, r.maxTokens),
			Err:     models.ErrRateLimitExceeded,
		}
	}

	now := r.now()
	r.pruneLocked(now)

	if len(r.entries) < r.maxRequests && r.tokens+tokens <= r.maxTokens {
		r.entries = append(r.entries, admission{at: now, tokens: tokens})
		r.tokens += tokens
		return 0, nil
	}

	var wait time.Duration
	if over := len(r.entries) - r.maxRequests; over >= 0 {
		wait = r.entries[over].at.Add(r.window).Sub(now)
	}

	excess := r.tokens + tokens - r.maxTokens
	for i := 0; excess > 0 && i < len(r.entries); i++ {
		excess -= r.entries[i].tokens
		if excess <= 0 {
			if w := r.entries[i].at.Add(r.window).Sub(now); w > wait {
				wait = w
			}
		}
	}

	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait, nil
}

func (r *RateLimiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.entries) && !r.entries[i].at.After(cutoff) {
		r.tokens -= r.entries[i].tokens
		i++
	}
	if i > 0 {
		r.entries = append(r.entries[:0], r.entries[i:]...)
	}
}
