// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/MimiFromParis/agoa-sentinel/internal/directory"
	"github.com/MimiFromParis/agoa-sentinel/internal/models"
)

// WebhookTransport delivers notifications to a generic HTTP endpoint.
// The address target is the destination URL.
type WebhookTransport struct {
	client *http.Client
}

// NewWebhookTransport creates a generic webhook transport.
func NewWebhookTransport() *WebhookTransport {
	return &WebhookTransport{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name implements Transport.
func (t *WebhookTransport) Name() string { return "webhook" }

// webhookPayload is the generic notification payload.
type webhookPayload struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
}

// Send implements Transport.
func (t *WebhookTransport) Send(ctx context.Context, addr directory.Address, msg Message) error {
	if err := ValidateWebhookURL(addr.Target); err != nil {
		return models.Permanent(err)
	}

	payload := webhookPayload{
		Event:     "compliance.alert",
		Timestamp: time.Now().UTC(),
		Recipient: addr.DisplayName,
		Subject:   msg.Subject,
		Body:      msg.Body,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return models.Permanent(fmt.Errorf("marshal webhook payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr.Target, bytes.NewReader(data))
	if err != nil {
		return models.Permanent(fmt.Errorf("build webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return models.Transient(fmt.Errorf("webhook request: %w", err))
	}
	defer resp.Body.Close()

	return classifyHTTPStatus(resp.StatusCode)
}
