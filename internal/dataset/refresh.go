// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package dataset

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MimiFromParis/agoa-sentinel/internal/metrics"
)

// RefreshConfig holds configuration for the periodic dataset refresh.
type RefreshConfig struct {
	// Interval is how often the loader is invoked (default: 15 minutes).
	Interval time.Duration

	// LoadTimeout bounds a single load attempt (default: 1 minute).
	LoadTimeout time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Interval:    15 * time.Minute,
		LoadTimeout: time.Minute,
	}
}

// Refresher periodically pulls records from the loader and replaces the
// store snapshot. A failed load or a rejected replacement leaves the
// previous snapshot serving the engine.
type Refresher struct {
	store  *Store
	loader Loader
	logger zerolog.Logger
	config RefreshConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRefresher creates a refresher for the given store and loader.
func NewRefresher(store *Store, loader Loader, logger *zerolog.Logger, config RefreshConfig) *Refresher {
	if config.Interval <= 0 {
		config.Interval = 15 * time.Minute
	}
	if config.LoadTimeout <= 0 {
		config.LoadTimeout = time.Minute
	}
	return &Refresher{
		store:  store,
		loader: loader,
		logger: logger.With().Str("component", "dataset-refresh").Logger(),
		config: config,
	}
}

// Start begins the refresh loop. The first load happens immediately so
// the engine does not run against an empty snapshot longer than needed.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("dataset refresher already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	r.logger.Info().
		Dur("interval", r.config.Interval).
		Msg("Starting dataset refresher")

	go r.run(ctx)
	return nil
}

// Stop stops the refresh loop and waits for it to complete.
func (r *Refresher) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return nil
}

func (r *Refresher) run(ctx context.Context) {
	defer close(r.doneCh)

	r.RefreshOnce(ctx)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RefreshOnce(ctx)
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RefreshOnce performs a single load-and-replace cycle.
func (r *Refresher) RefreshOnce(ctx context.Context) {
	loadCtx, cancel := context.WithTimeout(ctx, r.config.LoadTimeout)
	defer cancel()

	records, err := r.loader.Load(loadCtx)
	if err != nil {
		metrics.DatasetRefreshTotal.WithLabelValues("load_error").Inc()
		r.logger.Error().Err(err).Msg("Dataset load failed, keeping previous snapshot")
		return
	}

	if err := r.store.Replace(records); err != nil {
		metrics.DatasetRefreshTotal.WithLabelValues("rejected").Inc()
		r.logger.Error().Err(err).Msg("Dataset rejected, keeping previous snapshot")
		return
	}

	metrics.DatasetRefreshTotal.WithLabelValues("success").Inc()
	metrics.DatasetRecords.Set(float64(len(records)))
	r.logger.Info().Int("records", len(records)).Msg("Dataset snapshot replaced")
}
