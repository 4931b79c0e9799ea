// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

// Package rules defines named business rules over compliance records: an
// ordered list of field predicates combined with logical AND, plus a
// recipient-resolution strategy and a notification epoch policy.
//
// Rules are compiled from configuration at process start and are
// immutable thereafter.
package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/MimiFromParis/agoa-sentinel/internal/directory"
	"github.com/MimiFromParis/agoa-sentinel/internal/models"
)

// Operator is a predicate comparison operator.
type Operator string

// Supported operators.
const (
	OpEquals    Operator = "equals"
	OpNotEquals Operator = "not_equals"
	OpIsTrue    Operator = "is_true"
	OpIsFalse   Operator = "is_false"
	OpIsOneOf   Operator = "is_one_of"
)

// Predicate compares one record field against an expected value. A
// missing field evaluates to false, never to an error, so malformed
// records are silently excluded rather than crashing the engine.
type Predicate struct {
	Field  string   `koanf:"field" validate:"required"`
	Op     Operator `koanf:"op" validate:"required,oneof=equals not_equals is_true is_false is_one_of"`
	Value  string   `koanf:"value"`
	Values []string `koanf:"values"`
}

// Evaluate applies the predicate to a record.
func (p Predicate) Evaluate(rec models.Record) bool {
	v, ok := rec.Field(p.Field)
	if !ok {
		return false
	}

	switch p.Op {
	case OpEquals:
		return v.Text() == p.Value
	case OpNotEquals:
		return v.Text() != p.Value
	case OpIsTrue:
		return v.Kind == models.FieldBool && v.Bool
	case OpIsFalse:
		return v.Kind == models.FieldBool && !v.Bool
	case OpIsOneOf:
		text := v.Text()
		for _, want := range p.Values {
			if text == want {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// RecipientStrategy selects how a matching record's recipient is found.
type RecipientStrategy string

// Recipient strategies.
const (
	// RecipientFixed notifies one configured identity for every match.
	RecipientFixed RecipientStrategy = "fixed"

	// RecipientOwner notifies the record's responsible party, verified
	// against the directory.
	RecipientOwner RecipientStrategy = "owner"
)

// EpochPolicy defines the deduplication window of a rule.
type EpochPolicy string

// Epoch policies. Two rule families in this system have different
// real-world recurrence semantics and must not share an epoch clock.
const (
	// EpochDaily allows at most one notification per triple per
	// calendar day in the rule's time zone.
	EpochDaily EpochPolicy = "daily"

	// EpochPerRun allows one notification per triple per distinct
	// engine run.
	EpochPerRun EpochPolicy = "per_run"
)

// Definition is the configuration shape of a rule.
type Definition struct {
	Name       string      `koanf:"name" validate:"required"`
	Subset     string      `koanf:"subset" validate:"required"`
	Predicates []Predicate `koanf:"predicates" validate:"required,min=1,dive"`

	Recipient struct {
		Strategy RecipientStrategy `koanf:"strategy" validate:"required,oneof=fixed owner"`
		FixedID  string            `koanf:"fixed_id"`
	} `koanf:"recipient"`

	Epoch struct {
		Policy   EpochPolicy `koanf:"policy" validate:"required,oneof=daily per_run"`
		Timezone string      `koanf:"timezone"`
	} `koanf:"epoch"`
}

// Rule is a compiled, immutable rule.
type Rule struct {
	name       string
	subset     string
	predicates []Predicate
	strategy   RecipientStrategy
	fixedID    string
	epoch      EpochPolicy
	loc        *time.Location
}

// Compile validates a definition and resolves its time zone.
func Compile(def Definition) (*Rule, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("rule with empty name")
	}
	if len(def.Predicates) == 0 {
		return nil, fmt.Errorf("rule %q has no predicates", def.Name)
	}
	if def.Recipient.Strategy == RecipientFixed && def.Recipient.FixedID == "" {
		return nil, fmt.Errorf("rule %q: fixed recipient strategy requires fixed_id", def.Name)
	}

	loc := time.UTC
	if def.Epoch.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(def.Epoch.Timezone)
		if err != nil {
			return nil, fmt.Errorf("rule %q: invalid timezone %q: %w", def.Name, def.Epoch.Timezone, err)
		}
	}

	epoch := def.Epoch.Policy
	if epoch == "" {
		epoch = EpochDaily
	}

	preds := make([]Predicate, len(def.Predicates))
	copy(preds, def.Predicates)

	return &Rule{
		name:       def.Name,
		subset:     def.Subset,
		predicates: preds,
		strategy:   def.Recipient.Strategy,
		fixedID:    def.Recipient.FixedID,
		epoch:      epoch,
		loc:        loc,
	}, nil
}

// CompileAll compiles a list of definitions, rejecting duplicate names.
func CompileAll(defs []Definition) ([]*Rule, error) {
	seen := make(map[string]struct{}, len(defs))
	out := make([]*Rule, 0, len(defs))
	for _, def := range defs {
		if _, dup := seen[def.Name]; dup {
			return nil, fmt.Errorf("duplicate rule name %q", def.Name)
		}
		seen[def.Name] = struct{}{}

		r, err := Compile(def)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Name returns the rule's unique name.
func (r *Rule) Name() string { return r.name }

// Subset returns the named rule subset this rule belongs to. Subsets run
// on independent cadences.
func (r *Rule) Subset() string { return r.subset }

// Evaluate applies each predicate to the record and returns the AND of
// all results.
func (r *Rule) Evaluate(rec models.Record) bool {
	for _, p := range r.predicates {
		if !p.Evaluate(rec) {
			return false
		}
	}
	return true
}

// ResolveRecipient determines which identity a matching record should
// notify. For the owner strategy the record's responsible party must
// have a directory entry; a missing entry yields a
// *models.ResolutionFailure and the record is skipped for this rule on
// this pass.
func (r *Rule) ResolveRecipient(ctx context.Context, rec models.Record, dir directory.Directory) (string, error) {
	switch r.strategy {
	case RecipientFixed:
		return r.fixedID, nil
	case RecipientOwner:
		if rec.Owner == "" {
			return "", &models.ResolutionFailure{
				RecordID: rec.ID,
				RuleName: r.name,
				Err:      fmt.Errorf("record has no responsible party"),
			}
		}
		if _, err := dir.ResolveAddress(ctx, rec.Owner); err != nil {
			return "", &models.ResolutionFailure{
				RecordID: rec.ID,
				RuleName: r.name,
				Identity: rec.Owner,
				Err:      err,
			}
		}
		return rec.Owner, nil
	default:
		return "", &models.ResolutionFailure{
			RecordID: rec.ID,
			RuleName: r.name,
			Err:      fmt.Errorf("unknown recipient strategy %q", r.strategy),
		}
	}
}

// EpochKey computes the deduplication epoch for a notification happening
// at now within the given run. Daily epochs are calendar dates in the
// rule's time zone; per-run epochs are the run identifier itself.
func (r *Rule) EpochKey(now time.Time, runID string) string {
	switch r.epoch {
	case EpochPerRun:
		return "run:" + runID
	default:
		return "day:" + now.In(r.loc).Format("2006-01-02")
	}
}

// EpochTTL returns how long a committed ledger entry for this rule needs
// to survive. Correctness comes from the epoch key; the TTL only bounds
// storage growth.
func (r *Rule) EpochTTL() time.Duration {
	switch r.epoch {
	case EpochPerRun:
		return 7 * 24 * time.Hour
	default:
		return 48 * time.Hour
	}
}

// BySubset filters rules to the named subset. An empty subset selects
// all rules.
func BySubset(all []*Rule, subset string) []*Rule {
	if subset == "" {
		return all
	}
	var out []*Rule
	for _, r := range all {
		if r.subset == subset {
			out = append(out, r)
		}
	}
	return out
}
