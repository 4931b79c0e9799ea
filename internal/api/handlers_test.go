// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/MimiFromParis/agoa-sentinel/internal/dataset"
	"github.com/MimiFromParis/agoa-sentinel/internal/directory"
	"github.com/MimiFromParis/agoa-sentinel/internal/dispatch"
	"github.com/MimiFromParis/agoa-sentinel/internal/engine"
	"github.com/MimiFromParis/agoa-sentinel/internal/ledger"
	"github.com/MimiFromParis/agoa-sentinel/internal/models"
	"github.com/MimiFromParis/agoa-sentinel/internal/rules"
)

func testHandler(t *testing.T, led ledger.Ledger) *Handler {
	t.Helper()

	store := dataset.NewStore()
	if err := store.Replace([]models.Record{
		{ID: "PADE-001", Owner: "alice", Fields: map[string]models.FieldValue{
			"statut": models.CategoryValue("en_attente"),
		}},
	}); err != nil {
		t.Fatalf("store.Replace() error = %v", err)
	}

	def := rules.Definition{
		Name:   "relance-en-attente",
		Subset: "daily",
		Predicates: []rules.Predicate{
			{Field: "statut", Op: rules.OpEquals, Value: "en_attente"},
		},
	}
	def.Recipient.Strategy = rules.RecipientOwner
	def.Epoch.Policy = rules.EpochDaily
	ruleSet, err := rules.CompileAll([]rules.Definition{def})
	if err != nil {
		t.Fatalf("CompileAll() error = %v", err)
	}

	dir := directory.NewStatic(nil)
	renderer, err := dispatch.NewRenderer(nil)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	dispatcher := dispatch.New(dispatch.NewRegistry(), renderer, dir, led, zerolog.Nop(), dispatch.DefaultConfig())
	runner := engine.NewRunner(store, led, dispatcher, dir, ruleSet, zerolog.Nop())

	return NewHandler(store, led, runner, "test")
}

func doRequest(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router := NewRouter(testHandler(t, ledger.NewMemory()))

	rec := doRequest(t, router, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200", rec.Code)
	}

	var resp struct {
		Status string              `json:"status"`
		Data   models.HealthStatus `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Data.Status != "healthy" {
		t.Errorf("health status = %q, want healthy", resp.Data.Status)
	}
	if !resp.Data.LedgerOK {
		t.Error("LedgerOK = false with a working ledger")
	}
	if resp.Data.TrackedRecords != 1 {
		t.Errorf("TrackedRecords = %d, want 1", resp.Data.TrackedRecords)
	}
	if len(resp.Data.Subsets) != 1 || resp.Data.Subsets[0].Subset != "daily" {
		t.Errorf("Subsets = %+v, want the daily subset", resp.Data.Subsets)
	}
}

func TestHealthDegradedWhenLedgerDown(t *testing.T) {
	led := ledger.NewMemory()
	led.FailPing = true
	router := NewRouter(testHandler(t, led))

	rec := doRequest(t, router, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200 even when degraded", rec.Code)
	}

	var resp struct {
		Data models.HealthStatus `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Data.Status != "degraded" || resp.Data.LedgerOK {
		t.Errorf("health = %+v, want degraded with LedgerOK=false", resp.Data)
	}
}

func TestHealthLiveAlwaysUp(t *testing.T) {
	led := ledger.NewMemory()
	led.FailPing = true
	router := NewRouter(testHandler(t, led))

	rec := doRequest(t, router, "/health/live")
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health/live = %d, want 200 regardless of dependencies", rec.Code)
	}
}

func TestHealthReady(t *testing.T) {
	led := ledger.NewMemory()
	router := NewRouter(testHandler(t, led))

	rec := doRequest(t, router, "/health/ready")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health/ready = %d, want 200", rec.Code)
	}

	led.FailPing = true
	rec = doRequest(t, router, "/health/ready")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /health/ready = %d with ledger down, want 503", rec.Code)
	}

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error.Code != "NOT_READY" {
		t.Errorf("error code = %q, want NOT_READY", resp.Error.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := NewRouter(testHandler(t, ledger.NewMemory()))

	rec := doRequest(t, router, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("metrics body is empty")
	}
}
