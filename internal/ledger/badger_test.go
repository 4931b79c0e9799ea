// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package ledger

import (
	"context"
	"testing"
	"time"
)

func openTestBadger(t *testing.T, path string) *Badger {
	t.Helper()
	led, db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = led.Close()
		_ = db.Close()
	})
	return led
}

func TestBadgerShouldNotifyThenSuppress(t *testing.T) {
	led := openTestBadger(t, t.TempDir())
	ctx := context.Background()
	triple := testTriple("PADE-001")

	notify, err := led.ShouldNotify(ctx, triple, "day:2026-08-31")
	if err != nil {
		t.Fatalf("ShouldNotify() error = %v", err)
	}
	if !notify {
		t.Fatal("ShouldNotify() = false for unseen triple, want true")
	}

	if err := led.Commit(ctx, triple, "day:2026-08-31", time.Now()); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	notify, err = led.ShouldNotify(ctx, triple, "day:2026-08-31")
	if err != nil {
		t.Fatalf("ShouldNotify() error = %v", err)
	}
	if notify {
		t.Error("ShouldNotify() = true after commit, want false")
	}

	notify, err = led.ShouldNotify(ctx, triple, "run:abc-123")
	if err != nil {
		t.Fatalf("ShouldNotify() error = %v", err)
	}
	if !notify {
		t.Error("ShouldNotify() = false in a different epoch, want true")
	}
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	triple := testTriple("PADE-001")

	led, db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := led.Commit(ctx, triple, "day:2026-08-31", time.Now()); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if err := led.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("db.Close() error = %v", err)
	}

	// Dedup state must survive a restart.
	reopened := openTestBadger(t, dir)
	notify, err := reopened.ShouldNotify(ctx, triple, "day:2026-08-31")
	if err != nil {
		t.Fatalf("ShouldNotify() after reopen error = %v", err)
	}
	if notify {
		t.Error("ShouldNotify() = true after reopen, want false (entry persisted)")
	}
}

func TestBadgerCommitIdempotent(t *testing.T) {
	led := openTestBadger(t, t.TempDir())
	ctx := context.Background()
	triple := testTriple("PADE-001")

	if err := led.Commit(ctx, triple, "day:2026-08-31", time.Now()); err != nil {
		t.Fatalf("first Commit() error = %v", err)
	}
	if err := led.Commit(ctx, triple, "day:2026-08-31", time.Now()); err != nil {
		t.Fatalf("second Commit() error = %v, want nil", err)
	}

	size, err := led.Size(ctx)
	if err != nil {
		t.Fatalf("Size() error = %v", err)
	}
	if size != 1 {
		t.Errorf("Size() = %d after double commit, want 1", size)
	}
}

func TestBadgerPing(t *testing.T) {
	led := openTestBadger(t, t.TempDir())
	if err := led.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
