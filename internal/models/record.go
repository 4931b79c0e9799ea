// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

// Package models defines the shared domain types for the alerting engine:
// tracked records, match events, ledger triples and the error taxonomy.
package models

import (
	"time"
)

// FieldKind identifies the type of a record field value.
type FieldKind string

// Supported field kinds.
const (
	FieldString   FieldKind = "string"
	FieldCategory FieldKind = "category"
	FieldBool     FieldKind = "bool"
	FieldDate     FieldKind = "date"
)

// FieldValue is a typed value of a record field. Exactly one of the
// value members is meaningful, selected by Kind.
type FieldValue struct {
	Kind FieldKind `json:"kind"`
	Str  string    `json:"str,omitempty"`
	Bool bool      `json:"bool,omitempty"`
	Date time.Time `json:"date,omitempty"`
}

// StringValue returns a FieldValue holding free-form text.
func StringValue(s string) FieldValue {
	return FieldValue{Kind: FieldString, Str: s}
}

// CategoryValue returns a FieldValue holding an enumerated category label.
func CategoryValue(s string) FieldValue {
	return FieldValue{Kind: FieldCategory, Str: s}
}

// BoolValue returns a boolean FieldValue.
func BoolValue(b bool) FieldValue {
	return FieldValue{Kind: FieldBool, Bool: b}
}

// DateValue returns a date FieldValue.
func DateValue(t time.Time) FieldValue {
	return FieldValue{Kind: FieldDate, Date: t}
}

// Text returns the comparable textual form of the value. String and
// category values compare by label, booleans as "true"/"false", dates
// as RFC 3339 date.
func (v FieldValue) Text() string {
	switch v.Kind {
	case FieldBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case FieldDate:
		return v.Date.Format("2006-01-02")
	default:
		return v.Str
	}
}

// Record is one tracked entity in the compliance dataset. The ID is
// stable and unique within a snapshot; Owner identifies the responsible
// party used for recipient resolution. Records are replaced wholesale on
// dataset refresh and never partially mutated.
type Record struct {
	ID     string                `json:"id"`
	Owner  string                `json:"owner,omitempty"`
	Fields map[string]FieldValue `json:"fields"`
}

// Field returns the value of the named field and whether it is present.
func (r Record) Field(name string) (FieldValue, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// Clone returns a deep copy of the record so snapshot readers can never
// observe later mutations.
func (r Record) Clone() Record {
	fields := make(map[string]FieldValue, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{ID: r.ID, Owner: r.Owner, Fields: fields}
}
