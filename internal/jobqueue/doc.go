// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

/*
Package jobqueue is the persistent priority job queue that drives the
embedding pipeline.

Jobs are stored as JSON in BadgerDB under "job:<id>" and move through a
validated state machine:

	PENDING -> RUNNING -> COMPLETED
	                   -> RETRYING -> PENDING (after backoff, while retries remain)
	                   -> FAILED    (retry budget spent or terminal error)
	PENDING -> CANCELLED

A poll loop promotes due RETRYING jobs, then starts the highest-priority
PENDING job (oldest first on ties). Exactly one job runs at a time, on its
own goroutine, so the poller and maintenance tickers keep running.

A RUNNING job cannot be cancelled: Cancel only affects PENDING jobs and the
running job's context is not tied to it. Jobs found RUNNING when the queue
starts were interrupted by a previous process and are reset to PENDING.

The queue also owns the periodic work of the service: enqueueing
incremental updates while the backlog is small, purging old terminal jobs
and marking stale embeddings.
*/
package jobqueue
