// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package models

import (
	"fmt"
	"time"
)

// MatchEvent is an ephemeral occurrence of a record matching a rule with
// a successfully resolved recipient. Events are produced by the engine
// and consumed by the dispatcher; they are never persisted directly.
type MatchEvent struct {
	RecordID    string
	RuleName    string
	RecipientID string
	RunID       string
	EvaluatedAt time.Time
}

// Triple returns the ledger identity of the event.
func (e MatchEvent) Triple() Triple {
	return Triple{RecordID: e.RecordID, RuleName: e.RuleName, RecipientID: e.RecipientID}
}

// Triple identifies one (record, rule, recipient) notification occurrence.
// It is the deduplication key of the notification ledger.
type Triple struct {
	RecordID    string `json:"record_id"`
	RuleName    string `json:"rule_name"`
	RecipientID string `json:"recipient_id"`
}

// Key returns the canonical string form used for ledger storage keys.
func (t Triple) Key() string {
	return fmt.Sprintf("%s|%s|%s", t.RecordID, t.RuleName, t.RecipientID)
}

// DeliveryStatus is the outcome classification of a dispatch attempt.
type DeliveryStatus string

// Delivery outcomes.
const (
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
	DeliveryStatusSkipped   DeliveryStatus = "skipped"
)

// DeliveryResult is the per-event outcome of a dispatch.
type DeliveryResult struct {
	Event       MatchEvent
	Status      DeliveryStatus
	Error       string
	Transient   bool
	Attempts    int
	DeliveredAt *time.Time
}
