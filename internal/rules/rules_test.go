// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MimiFromParis/agoa-sentinel/internal/directory"
	"github.com/MimiFromParis/agoa-sentinel/internal/models"
)

func sampleRecord() models.Record {
	return models.Record{
		ID:    "PADE-042",
		Owner: "alice",
		Fields: map[string]models.FieldValue{
			"statut":   models.CategoryValue("en_attente"),
			"relance":  models.BoolValue(true),
			"cloture":  models.BoolValue(false),
			"echeance": models.DateValue(time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)),
		},
	}
}

func TestPredicateEvaluate(t *testing.T) {
	rec := sampleRecord()

	tests := []struct {
		name string
		pred Predicate
		want bool
	}{
		{"equals match", Predicate{Field: "statut", Op: OpEquals, Value: "en_attente"}, true},
		{"equals mismatch", Predicate{Field: "statut", Op: OpEquals, Value: "valide"}, false},
		{"not_equals match", Predicate{Field: "statut", Op: OpNotEquals, Value: "valide"}, true},
		{"not_equals mismatch", Predicate{Field: "statut", Op: OpNotEquals, Value: "en_attente"}, false},
		{"is_true on true bool", Predicate{Field: "relance", Op: OpIsTrue}, true},
		{"is_true on false bool", Predicate{Field: "cloture", Op: OpIsTrue}, false},
		{"is_false on false bool", Predicate{Field: "cloture", Op: OpIsFalse}, true},
		{"is_true on non-bool", Predicate{Field: "statut", Op: OpIsTrue}, false},
		{"is_false on non-bool", Predicate{Field: "statut", Op: OpIsFalse}, false},
		{"is_one_of match", Predicate{Field: "statut", Op: OpIsOneOf, Values: []string{"valide", "en_attente"}}, true},
		{"is_one_of mismatch", Predicate{Field: "statut", Op: OpIsOneOf, Values: []string{"valide", "refuse"}}, false},
		{"date equals by text", Predicate{Field: "echeance", Op: OpEquals, Value: "2026-09-15"}, true},
		{"missing field equals", Predicate{Field: "absent", Op: OpEquals, Value: "x"}, false},
		{"missing field not_equals", Predicate{Field: "absent", Op: OpNotEquals, Value: "x"}, false},
		{"missing field is_true", Predicate{Field: "absent", Op: OpIsTrue}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred.Evaluate(rec); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func simpleDefinition(name string) Definition {
	def := Definition{
		Name:   name,
		Subset: "daily",
		Predicates: []Predicate{
			{Field: "statut", Op: OpEquals, Value: "en_attente"},
		},
	}
	def.Recipient.Strategy = RecipientOwner
	def.Epoch.Policy = EpochDaily
	return def
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Definition)
	}{
		{"empty name", func(d *Definition) { d.Name = "" }},
		{"no predicates", func(d *Definition) { d.Predicates = nil }},
		{"fixed without id", func(d *Definition) {
			d.Recipient.Strategy = RecipientFixed
			d.Recipient.FixedID = ""
		}},
		{"bad timezone", func(d *Definition) { d.Epoch.Timezone = "Mars/Olympus" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := simpleDefinition("relance-en-attente")
			tt.mutate(&def)
			if _, err := Compile(def); err == nil {
				t.Error("Compile() error = nil, want error")
			}
		})
	}
}

func TestCompileAllRejectsDuplicateNames(t *testing.T) {
	defs := []Definition{
		simpleDefinition("relance-en-attente"),
		simpleDefinition("relance-en-attente"),
	}
	if _, err := CompileAll(defs); err == nil {
		t.Error("CompileAll() error = nil, want duplicate name error")
	}
}

func TestRuleEvaluateIsConjunction(t *testing.T) {
	def := simpleDefinition("relance-en-attente")
	def.Predicates = append(def.Predicates, Predicate{Field: "relance", Op: OpIsTrue})
	rule, err := Compile(def)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	rec := sampleRecord()
	if !rule.Evaluate(rec) {
		t.Error("Evaluate() = false, want true when all predicates hold")
	}

	rec.Fields["relance"] = models.BoolValue(false)
	if rule.Evaluate(rec) {
		t.Error("Evaluate() = true, want false when one predicate fails")
	}
}

func TestResolveRecipient(t *testing.T) {
	dir := directory.NewStatic(map[string]directory.Address{
		"alice": {Transport: "slack", DisplayName: "Alice"},
	})

	t.Run("fixed strategy", func(t *testing.T) {
		def := simpleDefinition("collab-fixed")
		def.Recipient.Strategy = RecipientFixed
		def.Recipient.FixedID = "compliance-team"
		rule, err := Compile(def)
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}

		got, err := rule.ResolveRecipient(context.Background(), sampleRecord(), dir)
		if err != nil {
			t.Fatalf("ResolveRecipient() error = %v", err)
		}
		if got != "compliance-team" {
			t.Errorf("ResolveRecipient() = %q, want compliance-team", got)
		}
	})

	t.Run("owner strategy with directory entry", func(t *testing.T) {
		rule, err := Compile(simpleDefinition("relance-en-attente"))
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}

		got, err := rule.ResolveRecipient(context.Background(), sampleRecord(), dir)
		if err != nil {
			t.Fatalf("ResolveRecipient() error = %v", err)
		}
		if got != "alice" {
			t.Errorf("ResolveRecipient() = %q, want alice", got)
		}
	})

	t.Run("owner strategy without directory entry", func(t *testing.T) {
		rule, err := Compile(simpleDefinition("relance-en-attente"))
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}

		rec := sampleRecord()
		rec.Owner = "mallory"
		_, err = rule.ResolveRecipient(context.Background(), rec, dir)
		var rf *models.ResolutionFailure
		if !errors.As(err, &rf) {
			t.Fatalf("ResolveRecipient() error type = %T, want *models.ResolutionFailure", err)
		}
		if rf.Identity != "mallory" || rf.RecordID != "PADE-042" {
			t.Errorf("ResolutionFailure = %+v, want identity mallory on PADE-042", rf)
		}
		if !errors.Is(err, models.ErrAddressNotFound) {
			t.Error("ResolutionFailure should wrap models.ErrAddressNotFound")
		}
	})

	t.Run("owner strategy without owner", func(t *testing.T) {
		rule, err := Compile(simpleDefinition("relance-en-attente"))
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}

		rec := sampleRecord()
		rec.Owner = ""
		var rf *models.ResolutionFailure
		if _, err := rule.ResolveRecipient(context.Background(), rec, dir); !errors.As(err, &rf) {
			t.Fatalf("ResolveRecipient() error type = %T, want *models.ResolutionFailure", err)
		}
	})
}

func TestEpochKey(t *testing.T) {
	paris := "Europe/Paris"

	daily := simpleDefinition("relance-en-attente")
	daily.Epoch.Timezone = paris
	dailyRule, err := Compile(daily)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	perRun := simpleDefinition("collab-weekly")
	perRun.Epoch.Policy = EpochPerRun
	perRunRule, err := Compile(perRun)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	// 23:30 UTC is already the next day in Paris (UTC+1 in winter).
	winterEvening := time.Date(2026, 1, 10, 23, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		rule  *Rule
		now   time.Time
		runID string
		want  string
	}{
		{"daily uses rule timezone", dailyRule, winterEvening, "run-1", "day:2026-01-11"},
		{"daily ignores run id", dailyRule, winterEvening, "run-2", "day:2026-01-11"},
		{"per_run uses run id", perRunRule, winterEvening, "run-1", "run:run-1"},
		{"per_run distinct runs distinct epochs", perRunRule, winterEvening, "run-2", "run:run-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.EpochKey(tt.now, tt.runID); got != tt.want {
				t.Errorf("EpochKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEpochTTL(t *testing.T) {
	daily, err := Compile(simpleDefinition("relance-en-attente"))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if got := daily.EpochTTL(); got != 48*time.Hour {
		t.Errorf("daily EpochTTL() = %v, want 48h", got)
	}

	perRunDef := simpleDefinition("collab-weekly")
	perRunDef.Epoch.Policy = EpochPerRun
	perRun, err := Compile(perRunDef)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if got := perRun.EpochTTL(); got != 7*24*time.Hour {
		t.Errorf("per_run EpochTTL() = %v, want 168h", got)
	}
}

func TestBySubset(t *testing.T) {
	a := simpleDefinition("rule-a")
	b := simpleDefinition("rule-b")
	b.Subset = "weekly"

	all, err := CompileAll([]Definition{a, b})
	if err != nil {
		t.Fatalf("CompileAll() error = %v", err)
	}

	daily := BySubset(all, "daily")
	if len(daily) != 1 || daily[0].Name() != "rule-a" {
		t.Errorf("BySubset(daily) = %v rules, want only rule-a", len(daily))
	}

	if got := BySubset(all, ""); len(got) != 2 {
		t.Errorf("BySubset(\"\") = %d rules, want all 2", len(got))
	}

	if got := BySubset(all, "absent"); len(got) != 0 {
		t.Errorf("BySubset(absent) = %d rules, want 0", len(got))
	}
}
