// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package dispatch

import (
	"strings"
	"testing"
	"time"

	"github.com/MimiFromParis/agoa-sentinel/internal/models"
)

func TestRenderDefaultTemplate(t *testing.T) {
	r, err := NewRenderer(nil)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	event := models.MatchEvent{
		RecordID:    "PADE-042",
		RuleName:    "relance-en-attente",
		RecipientID: "alice",
		EvaluatedAt: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
	}
	record := models.Record{
		ID:    "PADE-042",
		Owner: "alice",
		Fields: map[string]models.FieldValue{
			"statut":  models.CategoryValue("en_attente"),
			"relance": models.BoolValue(true),
		},
	}

	msg, err := r.Render(event, record)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if msg.Subject != "Alerte relance-en-attente — dossier PADE-042" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	for _, want := range []string{"relance-en-attente", "PADE-042", "statut : en_attente"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("Body missing %q:\n%s", want, msg.Body)
		}
	}
}

func TestRenderCustomTemplate(t *testing.T) {
	r, err := NewRenderer(map[string]string{
		"relance-en-attente": "Bonjour {{.Recipient}}, dossier {{.RecordID}} ({{index .Fields \"statut\"}})",
	})
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	event := models.MatchEvent{RecordID: "PADE-042", RuleName: "relance-en-attente", RecipientID: "alice"}
	record := models.Record{
		ID:     "PADE-042",
		Fields: map[string]models.FieldValue{"statut": models.CategoryValue("en_attente")},
	}

	msg, err := r.Render(event, record)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if msg.Body != "Bonjour alice, dossier PADE-042 (en_attente)" {
		t.Errorf("Body = %q", msg.Body)
	}

	// A rule without its own template falls back to the default.
	other := models.MatchEvent{RecordID: "PADE-001", RuleName: "echeance-depassee", RecipientID: "bob"}
	msg, err = r.Render(other, models.Record{ID: "PADE-001"})
	if err != nil {
		t.Fatalf("Render() fallback error = %v", err)
	}
	if !strings.Contains(msg.Body, "Alerte conformité") {
		t.Errorf("fallback body = %q", msg.Body)
	}
}

func TestNewRendererRejectsBadTemplate(t *testing.T) {
	if _, err := NewRenderer(map[string]string{"broken": "{{.Unclosed"}); err == nil {
		t.Fatal("NewRenderer() accepted an unparseable template")
	}
}
