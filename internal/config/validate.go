// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package config

import (
	"fmt"
	"time"

	"github.com/MimiFromParis/agoa-sentinel/internal/dispatch"
	"github.com/MimiFromParis/agoa-sentinel/internal/rules"
	"github.com/MimiFromParis/agoa-sentinel/internal/schedule"
	"github.com/MimiFromParis/agoa-sentinel/internal/validation"
)

// Validate checks that the configuration is structurally valid and
// internally consistent. It is called once at startup; a process with
// invalid configuration must not come up.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if err := c.validateRules(); err != nil {
		return err
	}

	if err := c.validateTriggers(); err != nil {
		return err
	}

	if err := c.validateTransports(); err != nil {
		return err
	}

	if err := c.validateDirectory(); err != nil {
		return err
	}

	return c.validateLedger()
}

// validateRules compiles every rule definition, which catches
// duplicate names, empty predicate lists, unknown operators and bad
// timezones.
func (c *Config) validateRules() error {
	if _, err := rules.CompileAll(c.Rules); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	return nil
}

// validateTriggers parses every cron expression and timezone, rejects
// duplicate trigger names, and requires each trigger's subset to be
// covered by at least one rule.
func (c *Config) validateTriggers() error {
	subsets := make(map[string]bool, len(c.Rules))
	for _, r := range c.Rules {
		subsets[r.Subset] = true
	}

	seen := make(map[string]bool, len(c.Triggers))
	for _, t := range c.Triggers {
		if seen[t.Name] {
			return fmt.Errorf("trigger %q: duplicate trigger name", t.Name)
		}
		seen[t.Name] = true

		if _, err := schedule.Parse(t.Cron); err != nil {
			return fmt.Errorf("trigger %q: %w", t.Name, err)
		}
		if t.Timezone != "" {
			if _, err := time.LoadLocation(t.Timezone); err != nil {
				return fmt.Errorf("trigger %q: invalid timezone %q: %w", t.Name, t.Timezone, err)
			}
		}
		if !subsets[t.Subset] {
			return fmt.Errorf("trigger %q: no rule declares subset %q", t.Name, t.Subset)
		}
	}
	return nil
}

// validateTransports requires at least one enabled transport and a
// well-formed Slack webhook URL when Slack is enabled.
func (c *Config) validateTransports() error {
	if !c.Transports.Slack.Enabled && !c.Transports.Webhook.Enabled {
		return fmt.Errorf("at least one transport must be enabled")
	}

	if c.Transports.Slack.Enabled {
		if c.Transports.Slack.WebhookURL == "" {
			return fmt.Errorf("SLACK_WEBHOOK_URL is required when SLACK_ENABLED=true")
		}
		if err := dispatch.ValidateWebhookURL(c.Transports.Slack.WebhookURL); err != nil {
			return fmt.Errorf("SLACK_WEBHOOK_URL is invalid: %w", err)
		}
	}
	return nil
}

// validateDirectory checks every directory entry against the enabled
// transports. Webhook entries carry their destination in the target,
// so it must be a valid URL.
func (c *Config) validateDirectory() error {
	for identity, addr := range c.Directory.Entries {
		switch addr.Transport {
		case "slack":
			if !c.Transports.Slack.Enabled {
				return fmt.Errorf("directory entry %q uses the slack transport, which is disabled", identity)
			}
		case "webhook":
			if !c.Transports.Webhook.Enabled {
				return fmt.Errorf("directory entry %q uses the webhook transport, which is disabled", identity)
			}
			if addr.Target == "" {
				return fmt.Errorf("directory entry %q: webhook entries require a target URL", identity)
			}
			if err := dispatch.ValidateWebhookURL(addr.Target); err != nil {
				return fmt.Errorf("directory entry %q: invalid target: %w", identity, err)
			}
		}
	}
	return nil
}

// validateLedger requires a storage path for the durable backend.
func (c *Config) validateLedger() error {
	if c.Ledger.Backend == "badger" && c.Ledger.Path == "" {
		return fmt.Errorf("LEDGER_PATH is required when LEDGER_BACKEND=badger")
	}
	return nil
}
