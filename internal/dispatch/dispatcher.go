// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MimiFromParis/agoa-sentinel/internal/directory"
	"github.com/MimiFromParis/agoa-sentinel/internal/ledger"
	"github.com/MimiFromParis/agoa-sentinel/internal/metrics"
	"github.com/MimiFromParis/agoa-sentinel/internal/models"
)

// Candidate is one match event the engine has cleared for delivery,
// together with the record snapshot it was evaluated against and the
// dedup epoch under which it must be committed.
type Candidate struct {
	Event  models.MatchEvent
	Record models.Record
	Epoch  string
}

// Report summarizes one dispatch pass.
type Report struct {
	RunID       string
	StartedAt   time.Time
	CompletedAt time.Time
	Delivered   int
	Failed      int
	Results     []models.DeliveryResult
}

// Config controls dispatcher parallelism and retry behavior.
type Config struct {
	// MaxRetries is the number of additional send attempts after the
	// first one for transient failures.
	MaxRetries int

	// BaseDelay is the initial delay between retries.
	BaseDelay time.Duration

	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration

	// Parallelism is the number of concurrent delivery workers.
	Parallelism int
}

// DefaultConfig returns the dispatcher defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		Parallelism: 10,
	}
}

// Dispatcher delivers candidate notifications and records successful
// deliveries in the ledger. A candidate is committed only after its
// transport confirms delivery, so a crash mid-pass can duplicate a
// notification but never silently drop one.
type Dispatcher struct {
	registry *Registry
	renderer *Renderer
	dir      directory.Directory
	ledger   ledger.Ledger
	logger   zerolog.Logger

	maxRetries  int
	baseDelay   time.Duration
	maxDelay    time.Duration
	parallelism int
}

// New creates a Dispatcher. Zero or negative config values fall back
// to the defaults.
func New(registry *Registry, renderer *Renderer, dir directory.Directory, led ledger.Ledger, logger zerolog.Logger, config Config) *Dispatcher {
	def := DefaultConfig()
	if config.MaxRetries < 0 {
		config.MaxRetries = def.MaxRetries
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = def.BaseDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = def.MaxDelay
	}
	if config.Parallelism <= 0 {
		config.Parallelism = def.Parallelism
	}

	return &Dispatcher{
		registry:    registry,
		renderer:    renderer,
		dir:         dir,
		ledger:      led,
		logger:      logger.With().Str("component", "dispatcher").Logger(),
		maxRetries:  config.MaxRetries,
		baseDelay:   config.BaseDelay,
		maxDelay:    config.MaxDelay,
		parallelism: config.Parallelism,
	}
}

// Dispatch delivers all candidates using a bounded worker pool and
// returns a per-candidate report. A failure on one candidate never
// blocks the others.
func (d *Dispatcher) Dispatch(ctx context.Context, runID string, candidates []Candidate) Report {
	report := Report{
		RunID:     runID,
		StartedAt: time.Now(),
	}

	if len(candidates) == 0 {
		report.CompletedAt = time.Now()
		return report
	}

	d.logger.Info().
		Str("run_id", runID).
		Int("candidates", len(candidates)).
		Msg("starting dispatch pass")

	results := make(chan models.DeliveryResult, len(candidates))
	jobs := make(chan Candidate, len(candidates))
	var wg sync.WaitGroup

	workerCount := d.parallelism
	if workerCount > len(candidates) {
		workerCount = len(candidates)
	}

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cand := range jobs {
				results <- d.deliverOne(ctx, cand)
			}
		}()
	}

	for _, cand := range candidates {
		jobs <- cand
	}
	close(jobs)

	wg.Wait()
	close(results)

	for result := range results {
		report.Results = append(report.Results, result)
		if result.Status == models.DeliveryStatusDelivered {
			report.Delivered++
		} else {
			report.Failed++
		}
	}

	report.CompletedAt = time.Now()

	d.logger.Info().
		Str("run_id", runID).
		Int("delivered", report.Delivered).
		Int("failed", report.Failed).
		Dur("duration", report.CompletedAt.Sub(report.StartedAt)).
		Msg("dispatch pass completed")

	return report
}

// deliverOne resolves, renders and sends a single candidate, retrying
// transient failures with exponential backoff, and commits the ledger
// entry only after the transport confirms delivery.
func (d *Dispatcher) deliverOne(ctx context.Context, cand Candidate) models.DeliveryResult {
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	}()

	result := models.DeliveryResult{
		Event:  cand.Event,
		Status: models.DeliveryStatusFailed,
	}

	addr, err := d.dir.ResolveAddress(ctx, cand.Event.RecipientID)
	if err != nil {
		result.Status = models.DeliveryStatusSkipped
		result.Error = fmt.Sprintf("resolve recipient %q: %v", cand.Event.RecipientID, err)
		metrics.DispatchTotal.WithLabelValues(cand.Event.RuleName, "failed").Inc()
		d.logger.Error().
			Str("rule", cand.Event.RuleName).
			Str("record_id", cand.Event.RecordID).
			Str("recipient", cand.Event.RecipientID).
			Err(err).
			Msg("recipient address resolution failed")
		return result
	}

	transport, ok := d.registry.Get(addr.Transport)
	if !ok {
		result.Status = models.DeliveryStatusSkipped
		result.Error = fmt.Sprintf("unknown transport: %s", addr.Transport)
		metrics.DispatchTotal.WithLabelValues(cand.Event.RuleName, "failed").Inc()
		d.logger.Error().
			Str("rule", cand.Event.RuleName).
			Str("transport", addr.Transport).
			Msg("no transport registered for recipient address")
		return result
	}

	msg, err := d.renderer.Render(cand.Event, cand.Record)
	if err != nil {
		result.Status = models.DeliveryStatusSkipped
		result.Error = err.Error()
		metrics.DispatchTotal.WithLabelValues(cand.Event.RuleName, "failed").Inc()
		d.logger.Error().
			Str("rule", cand.Event.RuleName).
			Str("record_id", cand.Event.RecordID).
			Err(err).
			Msg("notification rendering failed")
		return result
	}

	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			delay := d.calculateBackoff(attempt)
			metrics.DispatchRetriesTotal.Inc()
			d.logger.Debug().
				Str("rule", cand.Event.RuleName).
				Str("record_id", cand.Event.RecordID).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("retrying delivery after delay")

			select {
			case <-ctx.Done():
				result.Error = "delivery canceled"
				result.Attempts = attempt
				metrics.DispatchTotal.WithLabelValues(cand.Event.RuleName, "failed").Inc()
				return result
			case <-time.After(delay):
			}
		}

		err := transport.Send(ctx, addr, msg)
		result.Attempts = attempt + 1
		if err == nil {
			return d.commit(ctx, cand, result)
		}

		lastErr = err
		if !models.IsTransient(err) {
			d.logger.Warn().
				Str("rule", cand.Event.RuleName).
				Str("record_id", cand.Event.RecordID).
				Str("transport", transport.Name()).
				Err(err).
				Msg("permanent delivery error, not retrying")
			break
		}

		d.logger.Debug().
			Str("rule", cand.Event.RuleName).
			Str("record_id", cand.Event.RecordID).
			Int("attempt", attempt).
			Err(err).
			Msg("transient delivery error")
	}

	result.Error = lastErr.Error()
	result.Transient = models.IsTransient(lastErr)
	metrics.DispatchTotal.WithLabelValues(cand.Event.RuleName, "failed").Inc()
	d.logger.Error().
		Str("rule", cand.Event.RuleName).
		Str("record_id", cand.Event.RecordID).
		Int("attempts", result.Attempts).
		Err(lastErr).
		Msg("delivery failed")
	return result
}

// commit records a confirmed delivery in the ledger. A commit failure
// is logged but the delivery still counts as delivered; the worst case
// is one duplicate notification in the next pass.
func (d *Dispatcher) commit(ctx context.Context, cand Candidate, result models.DeliveryResult) models.DeliveryResult {
	now := time.Now()
	result.Status = models.DeliveryStatusDelivered
	result.DeliveredAt = &now
	metrics.DispatchTotal.WithLabelValues(cand.Event.RuleName, "delivered").Inc()

	if err := d.ledger.Commit(ctx, cand.Event.Triple(), cand.Epoch, now); err != nil {
		d.logger.Error().
			Str("rule", cand.Event.RuleName).
			Str("record_id", cand.Event.RecordID).
			Str("epoch", cand.Epoch).
			Err(err).
			Msg("ledger commit failed after delivery, duplicate possible on next run")
	}

	return result
}

// calculateBackoff returns the delay before the next retry attempt.
func (d *Dispatcher) calculateBackoff(attempt int) time.Duration {
	delay := d.baseDelay * (1 << uint(attempt-1))
	if delay > d.maxDelay {
		delay = d.maxDelay
	}
	return delay
}
