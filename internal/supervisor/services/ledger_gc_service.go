// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package services

import (
	"context"
	"errors"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/MimiFromParis/agoa-sentinel/internal/logging"
)

// LedgerGCService runs badger value-log garbage collection on a fixed
// interval while supervised. Expired dedup entries are reclaimed here;
// correctness never depends on it.
type LedgerGCService struct {
	db       *badger.DB
	interval time.Duration
	name     string
}

// NewLedgerGCService creates the GC service for a badger-backed
// ledger.
func NewLedgerGCService(db *badger.DB, interval time.Duration) *LedgerGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &LedgerGCService{
		db:       db,
		interval: interval,
		name:     "ledger-gc",
	}
}

// Serve implements suture.Service.
func (s *LedgerGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// ErrNoRewrite just means there was nothing to reclaim.
			if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				logging.Debug().Err(err).Msg("ledger value log GC pass")
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// String implements fmt.Stringer for supervisor log messages.
func (s *LedgerGCService) String() string {
	return s.name
}
