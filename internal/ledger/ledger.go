// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

// Package ledger implements the durable record of which (record, rule,
// recipient) triples have already been notified within an epoch. The
// dedup guarantee must hold across process restarts, so the production
// implementation is BadgerDB-backed; a memory implementation exists for
// tests.
//
// A ledger entry is committed only after the dispatcher confirms
// delivery. A crash between match and commit leaves the triple eligible
// for a safe duplicate-risk retry on the next run; a crash after commit
// never causes silent message loss because the entry reflects a
// confirmed send.
package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MimiFromParis/agoa-sentinel/internal/metrics"
	"github.com/MimiFromParis/agoa-sentinel/internal/models"
)

// ErrClosed indicates the ledger has been closed.
var ErrClosed = errors.New("notification ledger is closed")

// Entry is a committed notification record.
type Entry struct {
	Triple     models.Triple `json:"triple"`
	Epoch      string        `json:"epoch"`
	NotifiedAt time.Time     `json:"notified_at"`
}

// Ledger is the durable deduplication store.
type Ledger interface {
	// ShouldNotify reports whether no committed entry exists for the
	// triple within the given epoch.
	ShouldNotify(ctx context.Context, triple models.Triple, epoch string) (bool, error)

	// Commit records a confirmed delivery. Committing the same
	// triple+epoch twice is a no-op, not an error, so retried dispatch
	// confirmations stay safe.
	Commit(ctx context.Context, triple models.Triple, epoch string, notifiedAt time.Time) error

	// Ping verifies the store is reachable. An unreachable ledger
	// aborts the current engine run.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// entryKey builds the storage key for a triple within an epoch.
func entryKey(triple models.Triple, epoch string) string {
	return epoch + "|" + triple.Key()
}

// Memory is an in-memory ledger for tests. Entries are lost on restart,
// so it must not back a production deployment.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
	closed  bool

	// FailPing forces Ping to report the ledger unavailable; used to
	// exercise run-abort behavior in tests.
	FailPing bool
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

// ShouldNotify implements Ledger.
func (m *Memory) ShouldNotify(_ context.Context, triple models.Triple, epoch string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		metrics.LedgerOperationsTotal.WithLabelValues("should_notify", "failure").Inc()
		return false, ErrClosed
	}

	_, seen := m.entries[entryKey(triple, epoch)]
	metrics.LedgerOperationsTotal.WithLabelValues("should_notify", "success").Inc()
	if seen {
		metrics.LedgerSuppressedTotal.Inc()
	}
	return !seen, nil
}

// Commit implements Ledger.
func (m *Memory) Commit(_ context.Context, triple models.Triple, epoch string, notifiedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		metrics.LedgerOperationsTotal.WithLabelValues("commit", "failure").Inc()
		return ErrClosed
	}

	key := entryKey(triple, epoch)
	if _, exists := m.entries[key]; exists {
		// Idempotent: a retried confirmation changes nothing.
		metrics.LedgerOperationsTotal.WithLabelValues("commit", "success").Inc()
		return nil
	}

	m.entries[key] = Entry{Triple: triple, Epoch: epoch, NotifiedAt: notifiedAt}
	metrics.LedgerOperationsTotal.WithLabelValues("commit", "success").Inc()
	metrics.LedgerEntries.Set(float64(len(m.entries)))
	return nil
}

// Ping implements Ledger.
func (m *Memory) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	if m.FailPing {
		return models.ErrLedgerUnavailable
	}
	return nil
}

// Close implements Ledger.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = nil
	return nil
}

// Len returns the number of committed entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
