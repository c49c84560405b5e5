// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/ecosort/internal/api"
	"github.com/tomtom215/ecosort/internal/channel"
	"github.com/tomtom215/ecosort/internal/command"
	"github.com/tomtom215/ecosort/internal/config"
	"github.com/tomtom215/ecosort/internal/ingest"
	"github.com/tomtom215/ecosort/internal/logging"
	"github.com/tomtom215/ecosort/internal/metrics"
	"github.com/tomtom215/ecosort/internal/query"
	"github.com/tomtom215/ecosort/internal/supervisor"
	"github.com/tomtom215/ecosort/internal/supervisor/services"
	"github.com/tomtom215/ecosort/internal/telemetry"
	ws "github.com/tomtom215/ecosort/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Service:   api.ServiceName,
		Version:   version,
	})

	metrics.SetBuildInfo(version)

	logging.Info().
		Str("version", version).
		Str("channel", cfg.Channel.Driver).
		Str("raw_store", cfg.RawStore.Driver).
		Str("rollup_store", cfg.RollupStore.Driver).
		Msg("Starting EcoSort with supervisor tree")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Fatal().Err(err).Msg("EcoSort stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

// run wires every component and blocks until ctx is canceled and the
// supervisor tree has stopped.
func run(ctx context.Context, cfg *config.Config) error {
	stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	brokers, err := startEmbeddedBrokers(cfg)
	if err != nil {
		return err
	}
	defer brokers.Close()

	wsHub := ws.NewHub()

	normalizer := telemetry.NewNormalizer(schemeFor(cfg.Channel))
	writer := ingest.NewWriter(stores.Raw, stores.Rollup,
		ingest.WithCircuitBreakers(cfg.Ingest.CircuitBreaker))
	pipeline := ingest.NewPipeline(normalizer, writer, wsHub)

	adapter, err := channel.New(cfg.Channel, pipeline.Handle)
	if err != nil {
		return err
	}

	handler := api.NewHandler(api.Deps{
		Engine:      query.NewEngine(stores.Rollup, stores.Raw),
		Recent:      stores.Raw,
		Commands:    command.NewPublisher(adapter),
		RawStore:    stores.Raw,
		RollupStore: stores.Rollup,
		Channel:     adapter,
		Hub:         wsHub,
		Version:     version,
		Environment: cfg.Server.Environment,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return err
	}

	if interval := cfg.RollupStore.KeepaliveInterval; interval > 0 {
		tree.Add(supervisor.LayerStorage, services.NewKeepaliveService(map[string]services.Pinger{
			"raw":    stores.Raw,
			"rollup": stores.Rollup,
		}, interval))
		logging.Info().Dur("interval", interval).Msg("Store keepalive enabled")
	}
	tree.Add(supervisor.LayerIngest, services.NewChannelService(adapter, cfg.Channel.Driver))
	tree.Add(supervisor.LayerAPI, services.NewRunnerService("websocket-hub", wsHub))
	tree.Add(supervisor.LayerAPI, services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout))

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// ServeBackground delivers exactly one value and never closes errCh.
	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
		treeErr = <-errCh
	case treeErr = <-errCh:
	}
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Error().Err(treeErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}
	return nil
}

// schemeFor returns the topic layout of the configured channel driver.
func schemeFor(cfg config.ChannelConfig) telemetry.TopicScheme {
	if cfg.Driver == config.DriverNATS {
		return telemetry.NATSScheme(cfg.Namespace)
	}
	return telemetry.MQTTScheme(cfg.Namespace)
}
