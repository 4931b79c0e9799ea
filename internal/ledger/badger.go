// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/MimiFromParis/agoa-sentinel/internal/metrics"
	"github.com/MimiFromParis/agoa-sentinel/internal/models"
)

// Badger is a BadgerDB-backed ledger for production use. Entries survive
// process restarts, which is what makes the dedup guarantee hold across
// scheduler runs.
type Badger struct {
	db     *badger.DB
	prefix []byte
	ttl    func(epoch string) time.Duration
	closed bool
	mu     sync.RWMutex
}

// BadgerOption configures a Badger ledger.
type BadgerOption func(*Badger)

// WithPrefix overrides the default "ledger:" key prefix.
func WithPrefix(prefix string) BadgerOption {
	return func(b *Badger) { b.prefix = []byte(prefix) }
}

// WithTTL sets the storage TTL applied to committed entries. The epoch
// key carries the correctness; the TTL only bounds growth.
func WithTTL(fn func(epoch string) time.Duration) BadgerOption {
	return func(b *Badger) { b.ttl = fn }
}

// NewBadger creates a ledger over an already-open BadgerDB instance. The
// DB may be shared with other components and is not closed by Close.
func NewBadger(db *badger.DB, opts ...BadgerOption) *Badger {
	b := &Badger{
		db:     db,
		prefix: []byte("ledger:"),
		ttl:    func(string) time.Duration { return 7 * 24 * time.Hour },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open opens a BadgerDB at path and returns a ledger owning it.
func Open(path string, ledgerOpts ...BadgerOption) (*Badger, *badger.DB, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's own logger is noisy; zerolog covers us
	db, err := badger.Open(opts)
	if err != nil {
		return nil, nil, err
	}
	return NewBadger(db, ledgerOpts...), db, nil
}

func (b *Badger) makeKey(triple models.Triple, epoch string) []byte {
	return append(append([]byte{}, b.prefix...), []byte(entryKey(triple, epoch))...)
}

// ShouldNotify implements Ledger.
func (b *Badger) ShouldNotify(ctx context.Context, triple models.Triple, epoch string) (bool, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		metrics.LedgerOperationsTotal.WithLabelValues("should_notify", "failure").Inc()
		return false, ErrClosed
	}
	b.mu.RUnlock()

	key := b.makeKey(triple, epoch)
	var seen bool

	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			seen = false
			return nil
		}
		if err != nil {
			return err
		}
		seen = true
		return nil
	})
	if err != nil {
		metrics.LedgerOperationsTotal.WithLabelValues("should_notify", "failure").Inc()
		return false, models.ErrLedgerUnavailable
	}

	metrics.LedgerOperationsTotal.WithLabelValues("should_notify", "success").Inc()
	if seen {
		metrics.LedgerSuppressedTotal.Inc()
	}
	return !seen, nil
}

// Commit implements Ledger. The write is idempotent per triple+epoch.
func (b *Badger) Commit(ctx context.Context, triple models.Triple, epoch string, notifiedAt time.Time) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		metrics.LedgerOperationsTotal.WithLabelValues("commit", "failure").Inc()
		return ErrClosed
	}
	b.mu.RUnlock()

	key := b.makeKey(triple, epoch)
	entry := Entry{Triple: triple, Epoch: epoch, NotifiedAt: notifiedAt}

	err := b.db.Update(func(txn *badger.Txn) error {
		// An existing entry means a retried confirmation; keep the
		// original timestamp.
		if _, err := txn.Get(key); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		e := badger.NewEntry(key, data).WithTTL(b.ttl(epoch))
		return txn.SetEntry(e)
	})
	if err != nil {
		metrics.LedgerOperationsTotal.WithLabelValues("commit", "failure").Inc()
		return models.ErrLedgerUnavailable
	}

	metrics.LedgerOperationsTotal.WithLabelValues("commit", "success").Inc()
	return nil
}

// Ping implements Ledger by running a trivial read transaction.
func (b *Badger) Ping(ctx context.Context) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	b.mu.RUnlock()

	err := b.db.View(func(txn *badger.Txn) error { return nil })
	if err != nil {
		return models.ErrLedgerUnavailable
	}
	return nil
}

// Size returns the approximate number of ledger entries.
func (b *Badger) Size(ctx context.Context) (int, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return 0, ErrClosed
	}
	b.mu.RUnlock()

	count := 0
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = b.prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})

	metrics.LedgerEntries.Set(float64(count))
	return count, err
}

// Close implements Ledger. The shared DB is left open for its owner.
func (b *Badger) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
