// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that abort an engine run or a lookup.
var (
	// ErrLedgerUnavailable indicates the durable ledger cannot be
	// reached. The current run must abort rather than risk duplicate or
	// lost notifications.
	ErrLedgerUnavailable = errors.New("notification ledger unavailable")

	// ErrAddressNotFound indicates the directory has no delivery
	// address for an identity.
	ErrAddressNotFound = errors.New("no delivery address for identity")

	// ErrRunInProgress indicates a run for the same rule subset has not
	// finished; the new invocation is skipped, never queued.
	ErrRunInProgress = errors.New("run already in progress for rule subset")
)

// ValidationError reports a malformed incoming dataset. The store
// rejects the replacement and keeps the prior snapshot.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "dataset validation failed: " + e.Reason
}

// ResolutionFailure reports that a matching record's recipient could not
// be determined. The record is skipped for that rule on that pass;
// evaluation of the rest of the dataset continues.
type ResolutionFailure struct {
	RecordID string
	RuleName string
	Identity string
	Err      error
}

func (e *ResolutionFailure) Error() string {
	return fmt.Sprintf("cannot resolve recipient for record %s, rule %s (identity %q): %v",
		e.RecordID, e.RuleName, e.Identity, e.Err)
}

func (e *ResolutionFailure) Unwrap() error { return e.Err }

// TransientError wraps a delivery infrastructure hiccup that is worth
// retrying with backoff.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(err error) error {
	return &TransientError{Err: err}
}

// IsTransient reports whether err is a retryable delivery failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// PermanentError wraps a delivery rejection that retrying cannot fix,
// such as an unknown address.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as non-retryable.
func Permanent(err error) error {
	return &PermanentError{Err: err}
}

// LoadError reports a failure to produce records from an external
// tabular source. The dataset store is left unchanged.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("dataset load from %s failed: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
