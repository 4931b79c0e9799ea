// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

// Package config loads and validates the layered application
// configuration: struct defaults, then an optional YAML file, then
// environment variables.
package config

import (
	"time"

	"github.com/MimiFromParis/agoa-sentinel/internal/rules"
)

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig       `koanf:"server"`
	Logging    LoggingConfig      `koanf:"logging"`
	Ledger     LedgerConfig       `koanf:"ledger"`
	Dataset    DatasetConfig      `koanf:"dataset"`
	Directory  DirectoryConfig    `koanf:"directory"`
	Transports TransportsConfig   `koanf:"transports"`
	Dispatch   DispatchConfig     `koanf:"dispatch"`
	Scheduler  SchedulerConfig    `koanf:"scheduler"`
	Rules      []rules.Definition `koanf:"rules" validate:"required,min=1,dive"`
	Triggers   []TriggerConfig    `koanf:"triggers" validate:"required,min=1,dive"`
}

// ServerConfig holds the HTTP listener settings for the health and
// metrics surface.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// LedgerConfig selects and configures the notification ledger backend.
type LedgerConfig struct {
	Backend    string        `koanf:"backend" validate:"oneof=badger memory"`
	Path       string        `koanf:"path"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// DatasetConfig configures the tracked record source and its refresh
// cadence.
type DatasetConfig struct {
	Path            string        `koanf:"path" validate:"required"`
	RefreshInterval time.Duration `koanf:"refresh_interval"`
	LoadTimeout     time.Duration `koanf:"load_timeout"`
}

// AddressConfig is one directory entry mapping an identity to a
// deliverable address.
type AddressConfig struct {
	Transport   string `koanf:"transport" validate:"required,oneof=slack webhook"`
	Target      string `koanf:"target"`
	DisplayName string `koanf:"display_name"`
}

// DirectoryConfig is the static recipient directory.
type DirectoryConfig struct {
	Entries map[string]AddressConfig `koanf:"entries"`
}

// SlackConfig configures the Slack incoming-webhook transport.
type SlackConfig struct {
	Enabled    bool   `koanf:"enabled"`
	WebhookURL string `koanf:"webhook_url"`
}

// WebhookConfig configures the generic outbound webhook transport.
type WebhookConfig struct {
	Enabled bool `koanf:"enabled"`
}

// TransportsConfig holds per-transport settings, plus the circuit
// breaker that wraps every enabled transport.
type TransportsConfig struct {
	Slack          SlackConfig   `koanf:"slack"`
	Webhook        WebhookConfig `koanf:"webhook"`
	BreakerEnabled bool          `koanf:"breaker_enabled"`
}

// DispatchConfig holds delivery retry and parallelism settings.
type DispatchConfig struct {
	MaxRetries  int               `koanf:"max_retries" validate:"gte=0,lte=10"`
	BaseDelay   time.Duration     `koanf:"base_delay"`
	MaxDelay    time.Duration     `koanf:"max_delay"`
	Parallelism int               `koanf:"parallelism" validate:"gte=1,lte=100"`
	Templates   map[string]string `koanf:"templates"`
}

// SchedulerConfig holds trigger loop settings.
type SchedulerConfig struct {
	Enabled    bool          `koanf:"enabled"`
	RunTimeout time.Duration `koanf:"run_timeout"`
}

// TriggerConfig declares one scheduled evaluation cadence.
type TriggerConfig struct {
	Name     string `koanf:"name" validate:"required"`
	Cron     string `koanf:"cron" validate:"required"`
	Timezone string `koanf:"timezone"`
	Subset   string `koanf:"subset" validate:"required"`
}

// defaultConfig returns a Config with all defaults applied. These are
// layered first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8710,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Ledger: LedgerConfig{
			Backend:    "badger",
			Path:       "/data/sentinel/ledger",
			GCInterval: 10 * time.Minute,
		},
		Dataset: DatasetConfig{
			Path:            "/data/sentinel/records.json",
			RefreshInterval: 15 * time.Minute,
			LoadTimeout:     time.Minute,
		},
		Transports: TransportsConfig{
			Slack:          SlackConfig{Enabled: false},
			Webhook:        WebhookConfig{Enabled: false},
			BreakerEnabled: true,
		},
		Dispatch: DispatchConfig{
			MaxRetries:  3,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
			Parallelism: 10,
		},
		Scheduler: SchedulerConfig{
			Enabled:    true,
			RunTimeout: 5 * time.Minute,
		},
	}
}
