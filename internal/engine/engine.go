// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

// Package engine evaluates compiled rules against dataset snapshots and
// orchestrates evaluation passes. Evaluation itself is pure: it never
// touches the ledger or any transport, so the same snapshot and rules
// always produce the same match events in the same order.
package engine

import (
	"context"
	"sort"
	"time"

	"github.com/MimiFromParis/agoa-sentinel/internal/directory"
	"github.com/MimiFromParis/agoa-sentinel/internal/dispatch"
	"github.com/MimiFromParis/agoa-sentinel/internal/metrics"
	"github.com/MimiFromParis/agoa-sentinel/internal/models"
	"github.com/MimiFromParis/agoa-sentinel/internal/rules"
)

// Diagnostics accumulates per-pass evaluation observations that are
// not match events: counts and recipient resolution failures.
type Diagnostics struct {
	RecordsEvaluated   int
	Matches            int
	ResolutionFailures []*models.ResolutionFailure
}

// Evaluate runs every rule against every record and returns the
// delivery candidates in deterministic order: records sorted by ID,
// rules in their configured order. A recipient resolution failure
// skips that (record, rule) pair, lands in Diagnostics, and never
// stops the pass.
func Evaluate(ctx context.Context, ruleSet []*rules.Rule, records []models.Record, dir directory.Directory, runID string, now time.Time) ([]dispatch.Candidate, Diagnostics) {
	sorted := make([]models.Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var (
		candidates []dispatch.Candidate
		diags      Diagnostics
	)
	diags.RecordsEvaluated = len(sorted)

	for _, rec := range sorted {
		for _, rule := range ruleSet {
			if !rule.Evaluate(rec) {
				continue
			}
			metrics.RuleMatchesTotal.WithLabelValues(rule.Name()).Inc()
			diags.Matches++

			recipient, err := rule.ResolveRecipient(ctx, rec, dir)
			if err != nil {
				metrics.ResolutionFailuresTotal.WithLabelValues(rule.Name()).Inc()
				if rf, ok := err.(*models.ResolutionFailure); ok {
					diags.ResolutionFailures = append(diags.ResolutionFailures, rf)
				} else {
					diags.ResolutionFailures = append(diags.ResolutionFailures, &models.ResolutionFailure{
						RecordID: rec.ID,
						RuleName: rule.Name(),
						Err:      err,
					})
				}
				continue
			}

			candidates = append(candidates, dispatch.Candidate{
				Event: models.MatchEvent{
					RecordID:    rec.ID,
					RuleName:    rule.Name(),
					RecipientID: recipient,
					RunID:       runID,
					EvaluatedAt: now,
				},
				Record: rec,
				Epoch:  rule.EpochKey(now, runID),
			})
		}
	}

	return candidates, diags
}
