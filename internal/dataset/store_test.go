// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package dataset

import (
	"errors"
	"testing"

	"github.com/MimiFromParis/agoa-sentinel/internal/models"
)

func testRecord(id, owner string) models.Record {
	return models.Record{
		ID:    id,
		Owner: owner,
		Fields: map[string]models.FieldValue{
			"statut": models.CategoryValue("en_cours"),
		},
	}
}

func TestStoreReplaceAndSnapshot(t *testing.T) {
	store := NewStore()

	if got := store.Len(); got != 0 {
		t.Fatalf("empty store Len() = %d, want 0", got)
	}

	records := []models.Record{
		testRecord("PADE-001", "alice"),
		testRecord("PADE-002", "bob"),
	}
	if err := store.Replace(records); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	snap := store.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() returned %d records, want 2", len(snap))
	}
	if snap[0].ID != "PADE-001" || snap[1].ID != "PADE-002" {
		t.Errorf("Snapshot() order = %s, %s; want insertion order", snap[0].ID, snap[1].ID)
	}
}

func TestStoreReplaceRejectsDuplicateIDs(t *testing.T) {
	tests := []struct {
		name    string
		records []models.Record
	}{
		{
			name: "duplicate identifier",
			records: []models.Record{
				testRecord("PADE-001", "alice"),
				testRecord("PADE-001", "bob"),
			},
		},
		{
			name: "empty identifier",
			records: []models.Record{
				testRecord("", "alice"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore()
			if err := store.Replace([]models.Record{testRecord("KEEP-1", "carol")}); err != nil {
				t.Fatalf("seeding Replace() error = %v", err)
			}

			err := store.Replace(tt.records)
			if err == nil {
				t.Fatal("Replace() error = nil, want validation error")
			}
			var ve *models.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Replace() error type = %T, want *models.ValidationError", err)
			}

			// Prior snapshot must be retained on rejection.
			snap := store.Snapshot()
			if len(snap) != 1 || snap[0].ID != "KEEP-1" {
				t.Errorf("snapshot after rejected Replace() = %v, want the prior snapshot", snap)
			}
		})
	}
}

func TestStoreSnapshotIsolation(t *testing.T) {
	store := NewStore()
	original := []models.Record{testRecord("PADE-001", "alice")}
	if err := store.Replace(original); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	// Mutating the caller's slice must not affect the stored snapshot.
	original[0].Fields["statut"] = models.CategoryValue("mutated")

	snap := store.Snapshot()
	if got := snap[0].Fields["statut"].Text(); got != "en_cours" {
		t.Errorf("stored snapshot observed caller mutation: statut = %q", got)
	}

	// Mutating a returned snapshot must not affect later readers.
	snap[0].Fields["statut"] = models.CategoryValue("mutated")
	snap2 := store.Snapshot()
	if got := snap2[0].Fields["statut"].Text(); got != "en_cours" {
		t.Errorf("second snapshot observed first snapshot's mutation: statut = %q", got)
	}
}
