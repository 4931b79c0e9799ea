// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

// Package dataset holds the current snapshot of tracked records and the
// loader collaborator that produces records from an external tabular
// source. The store is a pure value container: records are replaced
// wholesale on refresh and never partially mutated.
package dataset

import (
	"fmt"
	"sync"

	"github.com/MimiFromParis/agoa-sentinel/internal/models"
)

// Store holds the current dataset snapshot with single-writer,
// concurrent-reader discipline. Readers always observe either the old or
// the new snapshot in full, never a mix.
type Store struct {
	mu      sync.RWMutex
	records []models.Record
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Replace atomically swaps the current snapshot. It fails with a
// *models.ValidationError if identifiers are not unique in the incoming
// sequence, in which case the previous snapshot is retained.
func (s *Store) Replace(records []models.Record) error {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.ID == "" {
			return &models.ValidationError{Reason: "record with empty identifier"}
		}
		if _, dup := seen[r.ID]; dup {
			return &models.ValidationError{Reason: fmt.Sprintf("duplicate record identifier %q", r.ID)}
		}
		seen[r.ID] = struct{}{}
	}

	// Deep-copy on the way in so callers cannot mutate the snapshot
	// through their own slice afterwards.
	next := make([]models.Record, len(records))
	for i, r := range records {
		next[i] = r.Clone()
	}

	s.mu.Lock()
	s.records = next
	s.mu.Unlock()
	return nil
}

// Snapshot returns an immutable view of the current records in insertion
// order. The returned slice is a deep copy.
func (s *Store) Snapshot() []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

// Len returns the number of records in the current snapshot.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
