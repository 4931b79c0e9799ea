// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package dataset

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/MimiFromParis/agoa-sentinel/internal/models"
)

// Loader produces records from an external tabular source on demand.
// A load failure surfaces as a *models.LoadError and leaves the dataset
// store unchanged. The engine core is agnostic to how the source is
// decoded; implementations are swappable per deployment and per test.
type Loader interface {
	Load(ctx context.Context) ([]models.Record, error)
}

// rawRecord is the on-disk row shape accepted by FileLoader. Field
// values are untyped JSON; typing is inferred during decode.
type rawRecord struct {
	ID     string                 `json:"id"`
	Owner  string                 `json:"owner"`
	Fields map[string]interface{} `json:"fields"`
}

// FileLoader reads an already-exported row-oriented JSON document from
// disk. It is the reference Loader implementation; deployments that pull
// from a live sheet export implement Loader against their own source.
type FileLoader struct {
	Path string
}

// NewFileLoader returns a loader reading from path.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{Path: path}
}

// Load reads and decodes the dataset file.
func (l *FileLoader) Load(ctx context.Context) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, &models.LoadError{Source: l.Path, Err: err}
	}

	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, &models.LoadError{Source: l.Path, Err: err}
	}

	var raw []rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &models.LoadError{Source: l.Path, Err: err}
	}

	records := make([]models.Record, 0, len(raw))
	for i, rr := range raw {
		if rr.ID == "" {
			return nil, &models.LoadError{
				Source: l.Path,
				Err:    fmt.Errorf("row %d has no id", i),
			}
		}
		rec := models.Record{
			ID:     rr.ID,
			Owner:  rr.Owner,
			Fields: make(map[string]models.FieldValue, len(rr.Fields)),
		}
		for name, v := range rr.Fields {
			rec.Fields[name] = inferFieldValue(v)
		}
		records = append(records, rec)
	}
	return records, nil
}

// inferFieldValue maps a decoded JSON value onto the typed field model.
// Strings matching an ISO date become dates; everything else stays text.
func inferFieldValue(v interface{}) models.FieldValue {
	switch val := v.(type) {
	case bool:
		return models.BoolValue(val)
	case string:
		if t, err := time.Parse("2006-01-02", val); err == nil {
			return models.DateValue(t)
		}
		return models.StringValue(val)
	case float64:
		// The sheet model has no numeric kind; keep the textual form.
		return models.StringValue(fmt.Sprintf("%v", val))
	default:
		return models.StringValue(fmt.Sprintf("%v", val))
	}
}
