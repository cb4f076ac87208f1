// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package embedding

import (
	"errors"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/vectorcast/internal/metrics"
	"github.com/tomtom215/vectorcast/internal/models"
)

const breakerName = "embedding-provider"

// breaker wraps provider round-trips with a gobreaker circuit breaker and
// exports its state to Prometheus.
//
// Terminal provider errors (bad request, malformed response) count as
// successes: they say nothing about provider health.
type breaker struct {
	cb     *gobreaker.CircuitBreaker[*EmbedResult]
	logger zerolog.Logger
}

func newBreaker(cfg *Config, logger zerolog.Logger) *breaker {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(breakerName).Set(0)

	b := &breaker{logger: logger}
	b.cb = gobreaker.NewCircuitBreaker[*EmbedResult](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.BreakerHalfOpenLimit,
		Interval:    cfg.RateWindow,
		Timeout:     cfg.BreakerOpenTimeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= cfg.BreakerFailureRatio {
				logger.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", ratio*100).Msg("opening provider circuit")
				return true
			}
			return false
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logger.Info().Str("from", fromStr).Str("to", toStr).Msg("provider circuit state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},

		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var perr *models.ProviderError
			return errors.As(err, &perr) && !perr.Retryable
		},
	})
	return b
}

// execute runs fn through the breaker. Rejections surface as a retryable
// CIRCUIT_OPEN ProviderError.
func (b *breaker) execute(fn func() (*EmbedResult, error)) (*EmbedResult, error) {
	res, err := b.cb.Execute(fn)
	if err == nil {
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(breakerName).Set(0)
		return res, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
		return nil, &models.ProviderError{
			Code:      models.CodeCircuitOpen,
			Message:   "provider circuit is open",
			Retryable: true,
			Err:       err,
		}
	}

	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(breakerName).Set(float64(b.cb.Counts().ConsecutiveFailures))
	return nil, err
}

// State returns the current breaker state as a string.
func (b *breaker) State() string {
	return stateToString(b.cb.State())
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
