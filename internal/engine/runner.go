// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MimiFromParis/agoa-sentinel/internal/dataset"
	"github.com/MimiFromParis/agoa-sentinel/internal/directory"
	"github.com/MimiFromParis/agoa-sentinel/internal/dispatch"
	"github.com/MimiFromParis/agoa-sentinel/internal/ledger"
	"github.com/MimiFromParis/agoa-sentinel/internal/metrics"
	"github.com/MimiFromParis/agoa-sentinel/internal/models"
	"github.com/MimiFromParis/agoa-sentinel/internal/rules"
)

// RunResult summarizes one evaluation pass over a rule subset.
type RunResult struct {
	RunID              string
	Subset             string
	RecordsEvaluated   int
	Matches            int
	Suppressed         int
	ResolutionFailures int
	Delivered          int
	Failed             int
	Duration           time.Duration
}

// Runner drives evaluation passes end to end: snapshot the dataset,
// evaluate a rule subset, filter already-notified candidates through
// the ledger, and hand the rest to the dispatcher. At most one pass
// per subset runs at a time; an overlapping trigger is skipped, not
// queued.
type Runner struct {
	store      *dataset.Store
	ledger     ledger.Ledger
	dispatcher *dispatch.Dispatcher
	dir        directory.Directory
	rules      []*rules.Rule
	logger     zerolog.Logger

	mu       sync.Mutex
	inflight map[string]bool
	health   map[string]*models.SubsetHealth

	// now is swappable in tests.
	now func() time.Time
}

// NewRunner creates a Runner over a compiled rule set.
func NewRunner(store *dataset.Store, led ledger.Ledger, dispatcher *dispatch.Dispatcher, dir directory.Directory, ruleSet []*rules.Rule, logger zerolog.Logger) *Runner {
	r := &Runner{
		store:      store,
		ledger:     led,
		dispatcher: dispatcher,
		dir:        dir,
		rules:      ruleSet,
		logger:     logger.With().Str("component", "engine").Logger(),
		inflight:   make(map[string]bool),
		health:     make(map[string]*models.SubsetHealth),
		now:        time.Now,
	}
	for _, rule := range ruleSet {
		if _, ok := r.health[rule.Subset()]; !ok {
			r.health[rule.Subset()] = &models.SubsetHealth{Subset: rule.Subset()}
		}
	}
	return r
}

// RunOnce executes a single evaluation pass for the named subset.
// It returns models.ErrRunInProgress if a pass for the same subset is
// already running, and models.ErrLedgerUnavailable if the ledger does
// not respond to a health probe before evaluation starts.
func (r *Runner) RunOnce(ctx context.Context, subset string) (RunResult, error) {
	result := RunResult{Subset: subset}

	r.mu.Lock()
	if r.inflight[subset] {
		r.mu.Unlock()
		metrics.EngineRunsTotal.WithLabelValues(subset, "skipped").Inc()
		r.recordSkip(subset)
		r.logger.Warn().Str("subset", subset).Msg("evaluation pass already running, skipping trigger")
		return result, models.ErrRunInProgress
	}
	r.inflight[subset] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.inflight, subset)
		r.mu.Unlock()
	}()

	start := r.now()
	runID := uuid.NewString()
	result.RunID = runID

	logger := r.logger.With().Str("run_id", runID).Str("subset", subset).Logger()

	if err := r.ledger.Ping(ctx); err != nil {
		metrics.EngineRunsTotal.WithLabelValues(subset, "ledger_unavailable").Inc()
		r.recordError(subset, err)
		logger.Error().Err(err).Msg("ledger unavailable, aborting pass before evaluation")
		return result, fmt.Errorf("ledger probe: %w", models.ErrLedgerUnavailable)
	}

	subsetRules := rules.BySubset(r.rules, subset)
	snapshot := r.store.Snapshot()

	logger.Info().
		Int("records", len(snapshot)).
		Int("rules", len(subsetRules)).
		Msg("starting evaluation pass")

	candidates, diags := Evaluate(ctx, subsetRules, snapshot, r.dir, runID, start)
	result.RecordsEvaluated = diags.RecordsEvaluated
	result.Matches = diags.Matches
	result.ResolutionFailures = len(diags.ResolutionFailures)

	for _, rf := range diags.ResolutionFailures {
		logger.Warn().
			Str("record_id", rf.RecordID).
			Str("rule", rf.RuleName).
			Str("identity", rf.Identity).
			Err(rf.Err).
			Msg("recipient resolution failed, record skipped for this rule")
	}

	fresh := candidates[:0]
	for _, cand := range candidates {
		notify, err := r.ledger.ShouldNotify(ctx, cand.Event.Triple(), cand.Epoch)
		if err != nil {
			// Fail closed: an unreadable ledger entry must not
			// produce a possibly-duplicate notification.
			result.Suppressed++
			logger.Error().
				Str("record_id", cand.Event.RecordID).
				Str("rule", cand.Event.RuleName).
				Err(err).
				Msg("ledger lookup failed, candidate withheld")
			continue
		}
		if !notify {
			result.Suppressed++
			metrics.LedgerSuppressedTotal.Inc()
			continue
		}
		fresh = append(fresh, cand)
	}

	report := r.dispatcher.Dispatch(ctx, runID, fresh)
	result.Delivered = report.Delivered
	result.Failed = report.Failed
	result.Duration = r.now().Sub(start)

	metrics.EngineRunsTotal.WithLabelValues(subset, "success").Inc()
	metrics.EngineRunDuration.WithLabelValues(subset).Observe(result.Duration.Seconds())
	r.recordSuccess(subset, start)

	logger.Info().
		Int("matches", result.Matches).
		Int("suppressed", result.Suppressed).
		Int("resolution_failures", result.ResolutionFailures).
		Int("delivered", result.Delivered).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("evaluation pass completed")

	return result, nil
}

// SetNextRun records the scheduler's next planned trigger for a subset
// so the health endpoint can expose it.
func (r *Runner) SetNextRun(subset string, next time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.healthLocked(subset)
	h.NextRun = &next
}

// SubsetHealths returns a copy of the per-subset health states.
func (r *Runner) SubsetHealths() []models.SubsetHealth {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.SubsetHealth, 0, len(r.health))
	for _, h := range r.health {
		out = append(out, *h)
	}
	return out
}

func (r *Runner) healthLocked(subset string) *models.SubsetHealth {
	h, ok := r.health[subset]
	if !ok {
		h = &models.SubsetHealth{Subset: subset}
		r.health[subset] = h
	}
	return h
}

func (r *Runner) recordSuccess(subset string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.healthLocked(subset)
	h.LastSuccess = &at
	h.RunsTotal++
}

func (r *Runner) recordSkip(subset string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.healthLocked(subset)
	h.RunsSkipped++
}

func (r *Runner) recordError(subset string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.healthLocked(subset)
	now := time.Now()
	h.LastError = err.Error()
	h.LastErrorTime = &now
	h.RunsTotal++
}
