// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// DefaultPath is used when no config path is given.
const DefaultPath = "./config.yaml"

// Mail is the SMTP provider configuration
type Mail struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	// SenderAddress defaults to noreply@<host> when empty
	SenderAddress string `yaml:"senderAddress"`
	SenderName    string `yaml:"senderName"`
	// InsecureSkipVerify disables TLS certificate verification for the SMTP connection
	InsecureSkipVerify bool `yaml:"insecureSkipVerify"`
	// UseBcc puts recipients in Bcc instead of To so they do not see each other
	UseBcc bool `yaml:"useBcc"`
	// SendRatePerSecond paces SMTP dials; zero disables pacing
	SendRatePerSecond float64 `yaml:"sendRatePerSecond"`
}

// Quota holds the four send ceilings and the sweep interval (e.g. "5m").
type Quota struct {
	RecipientPerMinute int    `yaml:"recipientPerMinute"`
	RecipientPerHour   int    `yaml:"recipientPerHour"`
	GlobalPerMinute    int    `yaml:"globalPerMinute"`
	GlobalPerHour      int    `yaml:"globalPerHour"`
	SweepInterval      string `yaml:"sweepInterval"`
}

// Retry holds send retry settings. Delays are Go duration strings.
type Retry struct {
	// MaxRetries counts total attempts, including the first one
	MaxRetries        int     `yaml:"maxRetries"`
	InitialDelay      string  `yaml:"initialDelay"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier"`
	MaxDelay          string  `yaml:"maxDelay"`
}

type Validation struct {
	AllowEmpty bool `yaml:"allowEmpty"`
	// BlockDisposable overrides the environment-derived default when set
	BlockDisposable *bool `yaml:"blockDisposable"`
	MaxLength       int   `yaml:"maxLength"`
}

type Queue struct {
	Size int `yaml:"size"`
	// MaxDeferrals bounds how often a rate-limited message is re-scheduled
	MaxDeferrals int `yaml:"maxDeferrals"`
}

type Server struct {
	ListenAddress string `yaml:"listenAddress"`
	// AllowedOrigins enables CORS for the listed origins when non-empty
	AllowedOrigins  []string        `yaml:"allowedOrigins"`
	Timeouts        *ServerTimeouts `yaml:"timeouts"`
	ShutdownTimeout string          `yaml:"shutdownTimeout"`
}

// Telemetry configures OpenTelemetry tracing of dispatches.
type Telemetry struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"serviceName"`
	// Exporter is one of otlp, stdout or none
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	Insecure     bool    `yaml:"insecure"`
	SamplingRate float64 `yaml:"samplingRate"`
}

type Config struct {
	// Environment is compared against "production" to decide default
	// disposable-domain blocking
	Environment string     `yaml:"environment"`
	Server      Server     `yaml:"server"`
	Mail        Mail       `yaml:"mail"`
	Quota       Quota      `yaml:"quota"`
	Retry       Retry      `yaml:"retry"`
	Validation  Validation `yaml:"validation"`
	Queue       Queue      `yaml:"queue"`
	Telemetry   Telemetry  `yaml:"telemetry"`
}

// Default returns a configuration with every default applied.
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":8080"
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	if c.Mail.SenderName == "" {
		c.Mail.SenderName = "Mailguard"
	}
	if c.Quota.RecipientPerMinute <= 0 {
		c.Quota.RecipientPerMinute = 5
	}
	if c.Quota.RecipientPerHour <= 0 {
		c.Quota.RecipientPerHour = 20
	}
	if c.Quota.GlobalPerMinute <= 0 {
		c.Quota.GlobalPerMinute = 100
	}
	if c.Quota.GlobalPerHour <= 0 {
		c.Quota.GlobalPerHour = 500
	}
	if c.Quota.SweepInterval == "" {
		c.Quota.SweepInterval = "5m"
	}
	if c.Retry.MaxRetries <= 0 {
		c.Retry.MaxRetries = 3
	}
	if c.Retry.InitialDelay == "" {
		c.Retry.InitialDelay = "1s"
	}
	if c.Retry.BackoffMultiplier <= 0 {
		c.Retry.BackoffMultiplier = 2
	}
	if c.Retry.MaxDelay == "" {
		c.Retry.MaxDelay = "30s"
	}
	if c.Validation.MaxLength <= 0 {
		c.Validation.MaxLength = 254
	}
	if c.Queue.Size <= 0 {
		c.Queue.Size = 1000
	}
	if c.Queue.MaxDeferrals <= 0 {
		c.Queue.MaxDeferrals = 10
	}
}

// IsProduction reports whether Environment is exactly "production".
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// BlockDisposable returns the explicit override or the environment default.
func (c Config) BlockDisposable() bool {
	if c.Validation.BlockDisposable != nil {
		return *c.Validation.BlockDisposable
	}
	return c.IsProduction()
}

// Sender returns the configured sender address or noreply@<host>.
func (m Mail) Sender() string {
	if m.SenderAddress != "" {
		return m.SenderAddress
	}
	if m.Host != "" {
		return "noreply@" + m.Host
	}
	return "noreply@localhost"
}

// ParseDuration parses value, returning def for an empty value. On a parse
// error def is returned together with the error.
func ParseDuration(name, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def, fmt.Errorf("invalid %s %q; using default %s: %w", name, value, def.String(), err)
	}
	if d <= 0 {
		return def, fmt.Errorf("invalid %s %q; using default %s: must be positive", name, value, def.String())
	}
	return d, nil
}

// Load loads the configuration from a file path.
// If configPath is empty, defaults to "./config.yaml".
// Defaults are applied to every field the file leaves empty.
func Load(configPath ...string) (Config, error) {
	path := DefaultPath
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	}

	var config Config

	content, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("trying to open mailguard config file %s: %w", path, err)
	}

	if err := yaml.UnmarshalStrict(content, &config); err != nil {
		return config, fmt.Errorf("error unmarshaling YAML %s: %w", path, err)
	}
	config.ApplyDefaults()
	return config, nil
}
