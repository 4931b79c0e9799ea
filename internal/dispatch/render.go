// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package dispatch

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/MimiFromParis/agoa-sentinel/internal/models"
)

// Renderer produces notification bodies from templates keyed by rule
// name. Templates receive the record's fields, the rule name and the
// recipient, and use text/template syntax.
type Renderer struct {
	templates map[string]*template.Template
	fallback  *template.Template
}

// templateData is what rule templates render against.
type templateData struct {
	RecordID  string
	Owner     string
	Rule      string
	Recipient string
	Now       time.Time
	Fields    map[string]string
}

// defaultTemplate is used for rules without a configured template.
const defaultTemplate = `:rotating_light: *Alerte conformité — {{.Rule}}*

Dossier *{{.RecordID}}* requiert votre attention.
{{- range $name, $value := .Fields}}
• {{$name}} : {{$value}}
{{- end}}

_Alerte envoyée automatiquement — merci de traiter le dossier._`

// NewRenderer compiles the per-rule template strings. An empty map is
// valid; every rule then renders with the default template.
func NewRenderer(ruleTemplates map[string]string) (*Renderer, error) {
	fallback, err := template.New("default").Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse default template: %w", err)
	}

	compiled := make(map[string]*template.Template, len(ruleTemplates))
	for rule, text := range ruleTemplates {
		t, err := template.New(rule).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse template for rule %q: %w", rule, err)
		}
		compiled[rule] = t
	}

	return &Renderer{templates: compiled, fallback: fallback}, nil
}

// Render produces the subject and body for one match event.
func (r *Renderer) Render(event models.MatchEvent, record models.Record) (Message, error) {
	fields := make(map[string]string, len(record.Fields))
	for name, v := range record.Fields {
		fields[name] = v.Text()
	}

	data := templateData{
		RecordID:  record.ID,
		Owner:     record.Owner,
		Rule:      event.RuleName,
		Recipient: event.RecipientID,
		Now:       event.EvaluatedAt,
		Fields:    fields,
	}

	t, ok := r.templates[event.RuleName]
	if !ok {
		t = r.fallback
	}

	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return Message{}, fmt.Errorf("render template for rule %q: %w", event.RuleName, err)
	}

	return Message{
		Subject: fmt.Sprintf("Alerte %s — dossier %s", event.RuleName, record.ID),
		Body:    sb.String(),
	}, nil
}
