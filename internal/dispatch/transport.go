// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

// Package dispatch turns match events into outbound notifications. It
// renders a message per event, resolves the recipient's delivery
// address, submits through a transport with bounded retry, and commits
// the notification ledger only after confirmed delivery.
//
// Transports classify failures as transient (retried with backoff) or
// permanent (reported, never retried). The deliver-then-commit ordering
// is the core correctness property of the whole system: a crash before
// commit causes a safe duplicate-risk retry on the next run, a crash
// after commit never loses a confirmed send.
package dispatch

import (
	"context"
	"fmt"
	"net/url"

	"github.com/MimiFromParis/agoa-sentinel/internal/directory"
	"github.com/MimiFromParis/agoa-sentinel/internal/models"
)

// Message is a rendered notification ready for submission.
type Message struct {
	Subject string
	Body    string
}

// Transport submits a rendered message to a delivery address. This is
// the only operation in the system expected to stall or fail
// transiently.
type Transport interface {
	// Name returns the transport identifier addresses select on.
	Name() string

	// Send delivers the message. Errors must be classified with
	// models.Transient or models.Permanent.
	Send(ctx context.Context, addr directory.Address, msg Message) error
}

// Registry maps transport names to implementations.
type Registry struct {
	transports map[string]Transport
}

// NewRegistry creates a registry holding the given transports.
func NewRegistry(transports ...Transport) *Registry {
	r := &Registry{transports: make(map[string]Transport, len(transports))}
	for _, t := range transports {
		r.Register(t)
	}
	return r
}

// Register adds a transport to the registry.
func (r *Registry) Register(t Transport) {
	r.transports[t.Name()] = t
}

// Get retrieves a transport by name.
func (r *Registry) Get(name string) (Transport, bool) {
	t, ok := r.transports[name]
	return t, ok
}

// List returns the registered transport names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.transports))
	for name := range r.transports {
		names = append(names, name)
	}
	return names
}

// ValidateWebhookURL checks that a webhook target is a plausible HTTP
// endpoint.
func ValidateWebhookURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("webhook URL must use http or https scheme")
	}
	if parsed.Host == "" {
		return fmt.Errorf("webhook URL must have a host")
	}
	return nil
}

// classifyHTTPStatus maps an HTTP response status to the error taxonomy.
// Rate limiting and server-side errors are worth retrying; other
// non-2xx responses are rejections.
func classifyHTTPStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == 429 || status >= 500:
		return models.Transient(fmt.Errorf("delivery endpoint returned status %d", status))
	default:
		return models.Permanent(fmt.Errorf("delivery endpoint rejected message with status %d", status))
	}
}
