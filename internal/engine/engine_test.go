// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/MimiFromParis/agoa-sentinel/internal/directory"
	"github.com/MimiFromParis/agoa-sentinel/internal/models"
	"github.com/MimiFromParis/agoa-sentinel/internal/rules"
)

func compileRule(t *testing.T, name, subset string, strategy rules.RecipientStrategy, fixedID string) *rules.Rule {
	t.Helper()
	def := rules.Definition{
		Name:   name,
		Subset: subset,
		Predicates: []rules.Predicate{
			{Field: "statut", Op: rules.OpEquals, Value: "en_attente"},
		},
	}
	def.Recipient.Strategy = strategy
	def.Recipient.FixedID = fixedID
	def.Epoch.Policy = rules.EpochDaily
	def.Epoch.Timezone = "Europe/Paris"
	rule, err := rules.Compile(def)
	if err != nil {
		t.Fatalf("Compile(%s) error = %v", name, err)
	}
	return rule
}

func pendingRecord(id, owner string) models.Record {
	return models.Record{
		ID:    id,
		Owner: owner,
		Fields: map[string]models.FieldValue{
			"statut": models.CategoryValue("en_attente"),
		},
	}
}

func TestEvaluateDeterministicOrder(t *testing.T) {
	dir := directory.NewStatic(map[string]directory.Address{
		"alice": {Transport: "slack", Target: "U123"},
		"bob":   {Transport: "slack", Target: "U456"},
	})
	ruleSet := []*rules.Rule{
		compileRule(t, "relance-en-attente", "daily", rules.RecipientOwner, ""),
		compileRule(t, "escalade-conformite", "daily", rules.RecipientFixed, "alice"),
	}
	// Records deliberately out of ID order.
	records := []models.Record{
		pendingRecord("PADE-020", "bob"),
		pendingRecord("PADE-001", "alice"),
	}

	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	candidates, diags := Evaluate(context.Background(), ruleSet, records, dir, "run-1", now)

	if diags.RecordsEvaluated != 2 || diags.Matches != 4 {
		t.Fatalf("diags = %+v, want 2 records / 4 matches", diags)
	}
	if len(candidates) != 4 {
		t.Fatalf("len(candidates) = %d, want 4", len(candidates))
	}

	// Records sorted by ID, rules in configured order.
	wantOrder := []struct{ record, rule, recipient string }{
		{"PADE-001", "relance-en-attente", "alice"},
		{"PADE-001", "escalade-conformite", "alice"},
		{"PADE-020", "relance-en-attente", "bob"},
		{"PADE-020", "escalade-conformite", "alice"},
	}
	for i, want := range wantOrder {
		got := candidates[i].Event
		if got.RecordID != want.record || got.RuleName != want.rule || got.RecipientID != want.recipient {
			t.Errorf("candidates[%d] = %s/%s/%s, want %s/%s/%s",
				i, got.RecordID, got.RuleName, got.RecipientID, want.record, want.rule, want.recipient)
		}
	}

	// Daily epoch in Europe/Paris: 09:00 UTC on Aug 31 is still Aug 31.
	if candidates[0].Epoch != "day:2026-08-31" {
		t.Errorf("Epoch = %q, want day:2026-08-31", candidates[0].Epoch)
	}
}

func TestEvaluateResolutionFailureIsolation(t *testing.T) {
	// mallory has no directory entry; her record must be skipped while
	// the rest of the pass continues.
	dir := directory.NewStatic(map[string]directory.Address{
		"alice": {Transport: "slack", Target: "U123"},
	})
	ruleSet := []*rules.Rule{
		compileRule(t, "relance-en-attente", "daily", rules.RecipientOwner, ""),
	}
	records := []models.Record{
		pendingRecord("PADE-001", "alice"),
		pendingRecord("PADE-002", "mallory"),
		pendingRecord("PADE-003", "alice"),
	}

	candidates, diags := Evaluate(context.Background(), ruleSet, records, dir, "run-1", time.Now())

	if len(candidates) != 2 {
		t.Fatalf("len(candidates) = %d, want 2", len(candidates))
	}
	if len(diags.ResolutionFailures) != 1 {
		t.Fatalf("resolution failures = %d, want 1", len(diags.ResolutionFailures))
	}
	rf := diags.ResolutionFailures[0]
	if rf.RecordID != "PADE-002" || rf.Identity != "mallory" {
		t.Errorf("failure = %+v, want record PADE-002 / identity mallory", rf)
	}
	for _, cand := range candidates {
		if cand.Event.RecordID == "PADE-002" {
			t.Error("candidate emitted for a record whose recipient could not be resolved")
		}
	}
}

func TestEvaluateNoMatches(t *testing.T) {
	dir := directory.NewStatic(nil)
	ruleSet := []*rules.Rule{
		compileRule(t, "relance-en-attente", "daily", rules.RecipientFixed, "equipe"),
	}
	records := []models.Record{
		{ID: "PADE-001", Fields: map[string]models.FieldValue{
			"statut": models.CategoryValue("cloture"),
		}},
	}

	candidates, diags := Evaluate(context.Background(), ruleSet, records, dir, "run-1", time.Now())
	if len(candidates) != 0 || diags.Matches != 0 {
		t.Errorf("candidates = %d, matches = %d, want 0/0", len(candidates), diags.Matches)
	}
	if diags.RecordsEvaluated != 1 {
		t.Errorf("RecordsEvaluated = %d, want 1", diags.RecordsEvaluated)
	}
}
