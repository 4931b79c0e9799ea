// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

// Package metrics provides Prometheus instrumentation for the alerting
// engine: evaluation runs, rule matches, ledger operations, dispatch
// outcomes and dataset refreshes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Engine metrics

	EngineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_engine_runs_total",
			Help: "Total number of engine runs per rule subset and outcome",
		},
		[]string{"subset", "outcome"}, // outcome: success, skipped, ledger_unavailable
	)

	EngineRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_engine_run_duration_seconds",
			Help:    "Duration of engine runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subset"},
	)

	RuleMatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_rule_matches_total",
			Help: "Total number of records matching each rule",
		},
		[]string{"rule"},
	)

	ResolutionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_resolution_failures_total",
			Help: "Total number of recipient resolution failures per rule",
		},
		[]string{"rule"},
	)

	// Ledger metrics

	LedgerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_ledger_operations_total",
			Help: "Total number of ledger operations",
		},
		[]string{"operation", "outcome"}, // operation: should_notify, commit, cleanup; outcome: success, failure
	)

	LedgerSuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_ledger_suppressed_total",
			Help: "Total number of candidate notifications suppressed as duplicates within their epoch",
		},
	)

	LedgerEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_ledger_entries",
			Help: "Approximate number of committed ledger entries",
		},
	)

	// Dispatch metrics

	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_dispatch_total",
			Help: "Total number of dispatch attempts per rule and outcome",
		},
		[]string{"rule", "outcome"}, // outcome: delivered, failed, skipped
	)

	DispatchRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_dispatch_retries_total",
			Help: "Total number of delivery retries after transient failures",
		},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentinel_dispatch_duration_seconds",
			Help:    "Duration of a single delivery including retries",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HTTP metrics

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_http_requests_total",
			Help: "Total number of HTTP requests per method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_http_active_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Dataset metrics

	DatasetRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_dataset_refresh_total",
			Help: "Total number of dataset refresh attempts per outcome",
		},
		[]string{"outcome"}, // outcome: success, load_error, rejected
	)

	DatasetRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_dataset_records",
			Help: "Number of records in the current dataset snapshot",
		},
	)
)
