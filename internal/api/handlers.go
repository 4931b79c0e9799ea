// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

// Package api exposes the operational HTTP surface: health probes and
// Prometheus metrics. The engine itself is driven by the scheduler,
// never by HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/MimiFromParis/agoa-sentinel/internal/dataset"
	"github.com/MimiFromParis/agoa-sentinel/internal/engine"
	"github.com/MimiFromParis/agoa-sentinel/internal/ledger"
	"github.com/MimiFromParis/agoa-sentinel/internal/models"
)

// Handler serves health probe requests.
type Handler struct {
	store     *dataset.Store
	ledger    ledger.Ledger
	runner    *engine.Runner
	version   string
	startTime time.Time
}

// NewHandler creates a health Handler.
func NewHandler(store *dataset.Store, led ledger.Ledger, runner *engine.Runner, version string) *Handler {
	return &Handler{
		store:     store,
		ledger:    led,
		runner:    runner,
		version:   version,
		startTime: time.Now(),
	}
}

// Health returns the full health payload: ledger connectivity, the
// tracked record count and the per-subset run states.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ledgerOK := h.ledger != nil && h.ledger.Ping(r.Context()) == nil

	status := "healthy"
	if !ledgerOK {
		status = "degraded"
	}

	health := models.HealthStatus{
		Status:         status,
		Version:        h.version,
		LedgerOK:       ledgerOK,
		TrackedRecords: h.store.Len(),
		Subsets:        h.runner.SubsetHealths(),
		Uptime:         time.Since(h.startTime).Seconds(),
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   health,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthLive is the liveness probe: 200 whenever the process is up,
// regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthReady is the readiness probe: 200 only when the ledger
// responds, since an evaluation pass cannot run without it.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil || h.ledger.Ping(r.Context()) != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "Notification ledger is unavailable", nil)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"ready": true,
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}
