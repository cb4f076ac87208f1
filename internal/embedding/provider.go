// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package embedding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vectorcast/internal/metrics"
	"github.com/tomtom215/vectorcast/internal/models"
)

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 64 << 20

// Provider produces embeddings for a batch of texts.
type Provider interface {
	Embed(ctx context.Context, texts []string) (*EmbedResult, error)
}

// EmbedResult holds one embedding per input text, in input order.
type EmbedResult struct {
	Embeddings [][]float32
	TokensUsed int
}

type embedRequest struct {
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions"`
	Inputs     []string `json:"inputs"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Usage      struct {
		TotalTokens int `json:"totalTokens"`
	} `json:"usage"`
}

// Client is the HTTP embedding provider.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *RateLimiter
	breaker *breaker
	logger  zerolog.Logger
}

// NewClient creates a provider client from a validated config.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provider config: %w", err)
	}
	logger = logger.With().Str("component", "embedding-provider").Logger()

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: NewRateLimiter(cfg.RequestsPerMinute, cfg.TokensPerMinute, cfg.RateWindow, cfg.MaxWait),
		breaker: newBreaker(&cfg, logger),
		logger:  logger,
	}, nil
}

// Limiter exposes the client's rate limiter.
func (c *Client) Limiter() *RateLimiter {
	return c.limiter
}

// BreakerState returns "closed", "half-open" or "open".
func (c *Client) BreakerState() string {
	return c.breaker.State()
}

// Embed returns one embedding per text from a single provider request.
//
// Transient failures (429, 5xx, network errors, timeouts) are retried with
// exponential backoff up to MaxRetries times, honoring Retry-After. Every
// attempt passes through the rate limiter.
func (c *Client) Embed(ctx context.Context, texts []string) (*EmbedResult, error) {
	if len(texts) == 0 {
		return nil, models.NewValidationError("inputs", "at least one text is required")
	}
	if len(texts) > c.cfg.MaxBatchSize {
		return nil, models.NewValidationError("inputs", "batch of %d exceeds max_batch_size %d", len(texts), c.cfg.MaxBatchSize)
	}

	tokens := 0
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, models.NewValidationError(fmt.Sprintf("inputs[%d]", i), "text is empty")
		}
		tokens += EstimateTokens(t)
	}

	hinted := &retryAfterBackOff{BackOff: c.newBackOff()}
	policy := backoff.WithContext(backoff.WithMaxRetries(hinted, uint64(c.cfg.MaxRetries)), ctx)

	var result *EmbedResult
	attempt := 0
	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx, tokens); err != nil {
			metrics.ProviderRequests.WithLabelValues("rejected").Inc()
			return backoff.Permanent(err)
		}

		start := time.Now()
		res, err := c.breaker.execute(func() (*EmbedResult, error) {
			return c.roundTrip(ctx, texts)
		})
		if err == nil {
			metrics.RecordProviderRequest("success", time.Since(start), res.TokensUsed)
			result = res
			return nil
		}

		var perr *models.ProviderError
		if errors.As(err, &perr) && perr.Retryable && perr.Code != models.CodeCircuitOpen {
			metrics.RecordProviderRequest("retry", time.Since(start), 0)
			hinted.hint = perr.RetryAfter
			c.logger.Debug().Err(err).Int("attempt", attempt).Int("batch", len(texts)).Msg("provider call failed, retrying")
			return err
		}

		metrics.RecordProviderRequest("failure", time.Since(start), 0)
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}

	bounds := c.cfg.Bounds()
	for i, v := range result.Embeddings {
		if err := Validate(v, bounds); err != nil {
			return nil, fmt.Errorf("embedding %d: %w", i, err)
		}
	}
	return result, nil
}

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryBaseDelay
	b.MaxInterval = c.cfg.RetryMaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// roundTrip performs one HTTP exchange and classifies the outcome.
func (c *Client) roundTrip(ctx context.Context, texts []string) (*EmbedResult, error) {
	body, err := json.Marshal(embedRequest{
		Model:      c.cfg.Model,
		Dimensions: c.cfg.Dimensions,
		Inputs:     texts,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return nil, &models.ProviderError{Code: models.CodeTimeout, Message: "request timed out", Retryable: true, Err: err}
		}
		return nil, &models.ProviderError{Code: models.CodeServerError, Message: "request failed", Retryable: true, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &models.ProviderError{Code: models.CodeServerError, Message: "read response", StatusCode: resp.StatusCode, Retryable: true, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &models.ProviderError{
			Code:       models.CodeRateLimitExceeded,
			Message:    "provider rate limited the request",
			StatusCode: resp.StatusCode,
			Retryable:  true,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        models.ErrRateLimitExceeded,
		}
	case resp.StatusCode >= 500:
		return nil, &models.ProviderError{
			Code:       models.CodeServerError,
			Message:    truncate(string(payload), 200),
			StatusCode: resp.StatusCode,
			Retryable:  true,
		}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &models.ProviderError{
			Code:       models.CodeInvalidRequest,
			Message:    truncate(string(payload), 200),
			StatusCode: resp.StatusCode,
		}
	}

	var decoded embedResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, &models.ProviderError{Code: models.CodeMalformedResponse, Message: "invalid JSON body", StatusCode: resp.StatusCode, Err: err}
	}
	if len(decoded.Embeddings) != len(texts) {
		return nil, &models.ProviderError{
			Code:       models.CodeMalformedResponse,
			Message:    fmt.Sprintf("got %d embeddings for %d inputs", len(decoded.Embeddings), len(texts)),
			StatusCode: resp.StatusCode,
		}
	}

	return &EmbedResult{Embeddings: decoded.Embeddings, TokensUsed: decoded.Usage.TotalTokens}, nil
}

// retryAfterBackOff lets a server-provided Retry-After stretch the next
// backoff interval.
type retryAfterBackOff struct {
	backoff.BackOff
	hint time.Duration
}

func (r *retryAfterBackOff) NextBackOff() time.Duration {
	next := r.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if r.hint > next {
		next = r.hint
	}
	r.hint = 0
	return next
}

// parseRetryAfter accepts delta-seconds or an HTTP date (RFC 9110).
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
