// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package models

import "time"

// APIResponse is the standard JSON envelope for all API responses.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
}

// APIError represents an error response with structured details.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SubsetHealth is the per-rule-subset liveness surface exposed for
// external monitoring: when the subset last ran successfully and the
// last error observed, if any.
type SubsetHealth struct {
	Subset        string     `json:"subset"`
	LastSuccess   *time.Time `json:"last_success,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	LastErrorTime *time.Time `json:"last_error_time,omitempty"`
	NextRun       *time.Time `json:"next_run,omitempty"`
	RunsTotal     uint64     `json:"runs_total"`
	RunsSkipped   uint64     `json:"runs_skipped"`
}

// HealthStatus is the overall process health payload.
type HealthStatus struct {
	Status         string         `json:"status"`
	Version        string         `json:"version"`
	LedgerOK       bool           `json:"ledger_ok"`
	TrackedRecords int            `json:"tracked_records"`
	Subsets        []SubsetHealth `json:"subsets"`
	Uptime         float64        `json:"uptime_seconds"`
}
