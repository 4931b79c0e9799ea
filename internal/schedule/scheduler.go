// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MimiFromParis/agoa-sentinel/internal/engine"
)

// Runner is the engine surface the scheduler drives.
type Runner interface {
	RunOnce(ctx context.Context, subset string) (engine.RunResult, error)
	SetNextRun(subset string, next time.Time)
}

// Trigger declares one scheduled cadence: a cron expression evaluated
// in a timezone, firing an evaluation pass for a rule subset.
type Trigger struct {
	Name     string
	Cron     string
	Timezone string
	Subset   string
}

// compiledTrigger carries a trigger's parsed expression and its next
// planned firing.
type compiledTrigger struct {
	Trigger
	expr *Expression
	loc  *time.Location
	next time.Time
}

// Config holds scheduler configuration.
type Config struct {
	// RunTimeout is the maximum time allowed for a single evaluation
	// pass, including delivery.
	RunTimeout time.Duration

	// Enabled controls whether the scheduler fires triggers.
	Enabled bool
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		RunTimeout: 5 * time.Minute,
		Enabled:    true,
	}
}

// Scheduler fires evaluation passes when triggers come due. Firing is
// fire-and-skip: the runner rejects overlapping passes for the same
// subset, and the scheduler never queues missed firings.
type Scheduler struct {
	runner   Runner
	triggers []*compiledTrigger
	logger   zerolog.Logger
	config   Config

	// Runtime state
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// now is swappable in tests.
	now func() time.Time
}

// NewScheduler compiles the trigger definitions and creates a
// Scheduler. Invalid cron expressions or timezones are rejected here,
// before anything starts.
func NewScheduler(runner Runner, triggers []Trigger, logger *zerolog.Logger, config Config) (*Scheduler, error) {
	if config.RunTimeout <= 0 {
		config.RunTimeout = 5 * time.Minute
	}

	compiled := make([]*compiledTrigger, 0, len(triggers))
	for _, t := range triggers {
		expr, err := Parse(t.Cron)
		if err != nil {
			return nil, fmt.Errorf("trigger %q: %w", t.Name, err)
		}
		loc := time.UTC
		if t.Timezone != "" {
			loc, err = time.LoadLocation(t.Timezone)
			if err != nil {
				return nil, fmt.Errorf("trigger %q: invalid timezone %q: %w", t.Name, t.Timezone, err)
			}
		}
		compiled = append(compiled, &compiledTrigger{
			Trigger: t,
			expr:    expr,
			loc:     loc,
		})
	}

	return &Scheduler{
		runner:   runner,
		triggers: compiled,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		config:   config,
		now:      time.Now,
	}, nil
}

// Start begins the trigger loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	if !s.config.Enabled || len(s.triggers) == 0 {
		s.logger.Info().Msg("Scheduler disabled, no triggers will fire")
		go func() {
			defer close(s.doneCh)
			<-s.stopCh
		}()
		return nil
	}

	now := s.now()
	for _, t := range s.triggers {
		t.next = t.expr.Next(now, t.loc)
		s.runner.SetNextRun(t.Subset, t.next)
		s.logger.Info().
			Str("trigger", t.Name).
			Str("subset", t.Subset).
			Str("cron", t.Cron).
			Str("timezone", t.loc.String()).
			Time("next_run", t.next).
			Msg("Trigger armed")
	}

	go s.run(ctx)
	return nil
}

// Stop stops the trigger loop and waits for it to exit. In-flight
// evaluation passes run to completion.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.logger.Info().Msg("Stopping scheduler...")
	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// run is the main trigger loop: sleep until the earliest armed
// trigger, fire every trigger that has come due, re-arm, repeat.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		next := s.earliest()
		timer := time.NewTimer(time.Until(next))

		select {
		case <-timer.C:
			now := s.now()
			for _, t := range s.triggers {
				if t.next.After(now) {
					continue
				}
				trigger := t
				wg.Add(1)
				go func() {
					defer wg.Done()
					s.fire(ctx, trigger)
				}()
				trigger.next = trigger.expr.Next(now, trigger.loc)
				s.runner.SetNextRun(trigger.Subset, trigger.next)
			}
		case <-s.stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// earliest returns the soonest armed firing time.
func (s *Scheduler) earliest() time.Time {
	next := s.triggers[0].next
	for _, t := range s.triggers[1:] {
		if t.next.Before(next) {
			next = t.next
		}
	}
	return next
}

// fire runs one evaluation pass for a due trigger.
func (s *Scheduler) fire(ctx context.Context, t *compiledTrigger) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	s.logger.Info().
		Str("trigger", t.Name).
		Str("subset", t.Subset).
		Msg("Trigger fired")

	result, err := s.runner.RunOnce(runCtx, t.Subset)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("trigger", t.Name).
			Str("subset", t.Subset).
			Msg("Evaluation pass failed")
		return
	}

	s.logger.Info().
		Str("trigger", t.Name).
		Str("run_id", result.RunID).
		Int("delivered", result.Delivered).
		Int("failed", result.Failed).
		Msg("Trigger completed")
}

// IsRunning reports whether the trigger loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
