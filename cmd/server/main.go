// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

// AGOA Sentinel watches a dataset of tracked compliance records and
// alerts the responsible people when a record matches an active rule.
// Evaluation passes fire on cron-defined cadences; a durable
// notification ledger guarantees that nobody is alerted twice for the
// same record, rule and dedup epoch.
//
// # Configuration
//
// Configuration is layered: struct defaults, then an optional YAML
// file (CONFIG_PATH or ./config.yaml), then environment variables.
//
// Minimal environment for a Slack-only deployment:
//
//	SLACK_ENABLED=true
//	SLACK_WEBHOOK_URL=https://hooks.slack.com/services/...
//	DATASET_PATH=/data/sentinel/records.json
//	LEDGER_PATH=/data/sentinel/ledger
//
// Rules and triggers have no defaults and must come from the config
// file.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/MimiFromParis/agoa-sentinel/internal/api"
	"github.com/MimiFromParis/agoa-sentinel/internal/config"
	"github.com/MimiFromParis/agoa-sentinel/internal/dataset"
	"github.com/MimiFromParis/agoa-sentinel/internal/directory"
	"github.com/MimiFromParis/agoa-sentinel/internal/dispatch"
	"github.com/MimiFromParis/agoa-sentinel/internal/engine"
	"github.com/MimiFromParis/agoa-sentinel/internal/ledger"
	"github.com/MimiFromParis/agoa-sentinel/internal/logging"
	"github.com/MimiFromParis/agoa-sentinel/internal/rules"
	"github.com/MimiFromParis/agoa-sentinel/internal/schedule"
	"github.com/MimiFromParis/agoa-sentinel/internal/supervisor"
	"github.com/MimiFromParis/agoa-sentinel/internal/supervisor/services"
)

const version = "1.2.0"

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Int("rules", len(cfg.Rules)).
		Int("triggers", len(cfg.Triggers)).
		Str("ledger_backend", cfg.Ledger.Backend).
		Msg("Starting AGOA Sentinel")

	// Notification ledger
	led, badgerDB, err := openLedger(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open notification ledger")
	}
	defer func() {
		if err := led.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing ledger")
		}
		if badgerDB != nil {
			if err := badgerDB.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing ledger database")
			}
		}
	}()

	// Dataset store and refresher
	store := dataset.NewStore()
	loader := dataset.NewFileLoader(cfg.Dataset.Path)
	logger := logging.Logger()
	refresher := dataset.NewRefresher(store, loader, &logger, dataset.RefreshConfig{
		Interval:    cfg.Dataset.RefreshInterval,
		LoadTimeout: cfg.Dataset.LoadTimeout,
	})

	// Recipient directory
	entries := make(map[string]directory.Address, len(cfg.Directory.Entries))
	for identity, addr := range cfg.Directory.Entries {
		entries[identity] = directory.Address{
			Transport:   addr.Transport,
			Target:      addr.Target,
			DisplayName: addr.DisplayName,
		}
	}
	dir := directory.NewStatic(entries)

	// Delivery transports
	registry, err := buildTransports(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to configure transports")
	}

	renderer, err := dispatch.NewRenderer(cfg.Dispatch.Templates)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to compile notification templates")
	}

	dispatcher := dispatch.New(registry, renderer, dir, led, logger, dispatch.Config{
		MaxRetries:  cfg.Dispatch.MaxRetries,
		BaseDelay:   cfg.Dispatch.BaseDelay,
		MaxDelay:    cfg.Dispatch.MaxDelay,
		Parallelism: cfg.Dispatch.Parallelism,
	})

	// Rule engine
	compiled, err := rules.CompileAll(cfg.Rules)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to compile rules")
	}
	runner := engine.NewRunner(store, led, dispatcher, dir, compiled, logger)

	// Trigger scheduler
	triggers := make([]schedule.Trigger, len(cfg.Triggers))
	for i, t := range cfg.Triggers {
		triggers[i] = schedule.Trigger{
			Name:     t.Name,
			Cron:     t.Cron,
			Timezone: t.Timezone,
			Subset:   t.Subset,
		}
	}
	scheduler, err := schedule.NewScheduler(runner, triggers, &logger, schedule.Config{
		RunTimeout: cfg.Scheduler.RunTimeout,
		Enabled:    cfg.Scheduler.Enabled,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create scheduler")
	}

	// HTTP surface
	handler := api.NewHandler(store, led, runner, version)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Supervisor tree; sutureslog wants slog, so bridge zerolog over.
	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(services.NewLifecycleService(refresher, "dataset-refresher"))
	if badgerDB != nil {
		tree.AddDataService(services.NewLedgerGCService(badgerDB, cfg.Ledger.GCInterval))
	}
	tree.AddEngineService(services.NewLifecycleService(scheduler, "scheduler"))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

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

// openLedger builds the configured ledger backend. For badger, the
// storage TTL is wider than any dedup epoch: expiry is hygiene, never
// the dedup mechanism itself.
func openLedger(cfg *config.Config) (ledger.Ledger, *badger.DB, error) {
	if cfg.Ledger.Backend == "memory" {
		logging.Warn().Msg("Using in-memory ledger; dedup state will not survive restarts")
		return ledger.NewMemory(), nil, nil
	}

	led, db, err := ledger.Open(cfg.Ledger.Path, ledger.WithTTL(epochTTL))
	if err != nil {
		return nil, nil, err
	}
	return led, db, nil
}

// epochTTL maps a dedup epoch key to its storage TTL.
func epochTTL(epoch string) time.Duration {
	if strings.HasPrefix(epoch, "day:") {
		return 48 * time.Hour
	}
	return 7 * 24 * time.Hour
}

// buildTransports assembles the transport registry from config,
// wrapping each transport in a circuit breaker when enabled.
func buildTransports(cfg *config.Config) (*dispatch.Registry, error) {
	registry := dispatch.NewRegistry()

	wrap := func(t dispatch.Transport) dispatch.Transport {
		if cfg.Transports.BreakerEnabled {
			return dispatch.NewBreakerTransport(t)
		}
		return t
	}

	if cfg.Transports.Slack.Enabled {
		slack, err := dispatch.NewSlackTransport(cfg.Transports.Slack.WebhookURL)
		if err != nil {
			return nil, err
		}
		registry.Register(wrap(slack))
		logging.Info().Msg("Slack transport enabled")
	}

	if cfg.Transports.Webhook.Enabled {
		registry.Register(wrap(dispatch.NewWebhookTransport()))
		logging.Info().Msg("Webhook transport enabled")
	}

	return registry, nil
}
