// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

// Package logging configures the process-wide zerolog logger for Vectorcast.
//
// The process logger is configured once from main and is used by the
// entry point and supervision glue. Long-lived components (provider, store,
// cache, pipeline, queue, search engine) receive their own zerolog.Logger
// through their constructors, usually derived with Component:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	storeLogger := logging.Component("vectorstore")
//	store, err := vectorstore.New(cfg, storeLogger)
//
// # Context Fields
//
// Correlation IDs and job IDs travel in context.Context and are attached to
// log lines with Ctx, or onto a component logger with With:
//
//	ctx = logging.ContextWithJobID(ctx, job.ID)
//	logging.Ctx(ctx).Info().Msg("job started")
//	// {"level":"info","job_id":"...","message":"job started"}
//
// # Suture Integration
//
// NewSlogLogger returns a *slog.Logger backed by zerolog so sutureslog can
// report supervisor events through the same output.
package logging
