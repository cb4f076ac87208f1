// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/vectorcast/internal/api"
	"github.com/tomtom215/vectorcast/internal/config"
	"github.com/tomtom215/vectorcast/internal/logging"
	"github.com/tomtom215/vectorcast/internal/supervisor"
	"github.com/tomtom215/vectorcast/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.Logging.ToLogging())
	logger := logging.Logger()

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("provider_url", cfg.Provider.BaseURL).
		Str("model", cfg.Provider.Model).
		Int("dimensions", cfg.Provider.Dimensions).
		Str("store_path", cfg.Store.Path).
		Str("cache_backend", cfg.Cache.Backend).
		Msg("Starting Vectorcast with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	comps, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize components")
	}
	defer func() {
		if err := comps.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing components")
		}
	}()

	// Bridges zerolog to slog for sutureslog
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// === DATA LAYER ===
	tree.AddDataService(services.NewJobQueueService(comps.queue, logger))
	if cfg.JobQueue.MaintenanceInterval > 0 {
		tree.AddDataService(services.NewMaintenanceService(comps.queue, services.MaintenanceServiceConfig{
			Priority: -10,
			Interval: cfg.JobQueue.MaintenanceInterval,
		}, logger))
	}
	tree.AddDataService(services.NewCacheSweeperService(comps.cache, cfg.Cache.SweepInterval))

	// === API LAYER ===
	server := newHTTPServer(cfg, comps)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logger))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// newHTTPServer builds the admin API server.
func newHTTPServer(cfg *config.Config, comps *components) *http.Server {
	mwConfig := api.DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mwConfig.RateLimitRequests = cfg.Server.RateLimitReqs
	mwConfig.RateLimitWindow = cfg.Server.RateLimitWindow
	mwConfig.RateLimitDisabled = cfg.Server.RateLimitDisabled

	handler := api.NewHandler(comps.queue, comps.engine, comps.store, comps.cache, logging.Logger())
	router := api.NewRouter(handler, api.NewChiMiddleware(mwConfig), cfg.Server.MaxBodyBytes)

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
}
