// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/MimiFromParis/agoa-sentinel/internal/directory"
	"github.com/MimiFromParis/agoa-sentinel/internal/models"
)

// SlackTransport delivers notifications through a Slack incoming
// webhook. The address target selects the channel or member to post to.
type SlackTransport struct {
	webhookURL string
	client     *http.Client
}

// NewSlackTransport creates a Slack transport for the given incoming
// webhook URL.
func NewSlackTransport(webhookURL string) (*SlackTransport, error) {
	if err := ValidateWebhookURL(webhookURL); err != nil {
		return nil, fmt.Errorf("slack webhook: %w", err)
	}
	if !strings.Contains(webhookURL, "hooks.slack.com/") {
		return nil, fmt.Errorf("URL does not appear to be a slack webhook URL")
	}
	return &SlackTransport{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Name implements Transport.
func (t *SlackTransport) Name() string { return "slack" }

// slackPayload is the incoming-webhook message structure.
type slackPayload struct {
	Channel string       `json:"channel,omitempty"`
	Text    string       `json:"text,omitempty"`
	Blocks  []slackBlock `json:"blocks,omitempty"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"` // plain_text or mrkdwn
	Text string `json:"text"`
}

// slack section blocks cap text at 3000 characters
const slackMaxBlockText = 3000

// Send implements Transport.
func (t *SlackTransport) Send(ctx context.Context, addr directory.Address, msg Message) error {
	body := msg.Body
	if len(body) > slackMaxBlockText {
		body = body[:slackMaxBlockText-3] + "..."
	}

	payload := slackPayload{
		Channel: addr.Target,
		Text:    msg.Subject, // fallback for notification previews
		Blocks: []slackBlock{
			{
				Type: "header",
				Text: &slackText{Type: "plain_text", Text: msg.Subject},
			},
			{
				Type: "section",
				Text: &slackText{Type: "mrkdwn", Text: body},
			},
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return models.Permanent(fmt.Errorf("marshal slack payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.webhookURL, bytes.NewReader(data))
	if err != nil {
		return models.Permanent(fmt.Errorf("build slack request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return models.Transient(fmt.Errorf("slack webhook request: %w", err))
	}
	defer resp.Body.Close()

	if err := classifyHTTPStatus(resp.StatusCode); err != nil {
		// Slack puts the reason in the body ("invalid_token",
		// "channel_not_found", ...); keep it for the report.
		reason, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		if len(reason) > 0 {
			return fmt.Errorf("%w: %s", err, string(reason))
		}
		return err
	}
	return nil
}
