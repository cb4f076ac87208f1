// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

/*
Package supervisor provides process supervision for Vectorcast using suture v4.

# Overview

Long-running services are organized into two layers:

	RootSupervisor ("vectorcast")
	├── DataSupervisor ("data-layer")
	│   ├── JobQueueService
	│   ├── MaintenanceService
	│   └── CacheSweeperService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A panicking or failing service is restarted with suture's decaying failure
counter. Once FailureThreshold is crossed, restarts pause for FailureBackoff:

	Service crashes once       -> restart immediately
	Service crashes 5x in 10s  -> wait 15s before restart
	Stable for 60s after crash -> counter decays to ~0.13

Supervisor events are logged through sutureslog. The slog logger passed to
NewSupervisorTree is normally logging.NewSlogLogger(), which forwards to the
process zerolog logger.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewJobQueueService(queue, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)
	<-ctx.Done()
	<-errCh

Service wrappers live in the services subpackage.
*/
package supervisor
