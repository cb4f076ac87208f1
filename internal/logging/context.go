// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	jobIDKey         contextKey = "job_id"
)

// GenerateCorrelationID returns the first 8 characters of a new UUID.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// ContextWithCorrelationID returns a context carrying the correlation ID.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID returns a context with a freshly generated correlation ID.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext returns the correlation ID or "".
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithJobID tags the context with the job queue job being executed.
func ContextWithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext returns the job ID or "".
func JobIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(jobIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns the process logger with correlation_id and job_id fields from ctx.
//
//	logging.Ctx(ctx).Info().Msg("batch persisted")
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := With(ctx, Logger())
	return &logger
}

// With decorates base with the context fields carried by ctx. Components use
// it to keep their own logger while still emitting job/correlation IDs.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func With(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	logCtx := base.With()
	if id := CorrelationIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("correlation_id", id)
	}
	if id := JobIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("job_id", id)
	}
	return logCtx.Logger()
}
