// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

/*
Package services provides suture.Service wrappers for Vectorcast components.

Each wrapper translates a component's lifecycle into suture's context-aware
Serve pattern and identifies itself through fmt.Stringer:

  - HTTPServerService: admin API server with graceful shutdown
  - JobQueueService: the job queue poll loop and its periodic tasks
  - MaintenanceService: enqueues maintenance jobs on a schedule
  - CacheSweeperService: purges expired process-tier cache entries

Serve returns ctx.Err() on shutdown and a wrapped error on failure so the
supervisor can decide whether to restart.
*/
package services
