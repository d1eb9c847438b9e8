// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigSecureDefaults(t *testing.T) {
	var cfg Config
	// Zero value config should be secure: insecure skip flags must be false
	assert.False(t, cfg.Mail.InsecureSkipVerify, "mail.InsecureSkipVerify should be false by default")
	assert.False(t, cfg.BlockDisposable(), "disposable blocking is off outside production")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8080", cfg.Server.ListenAddress)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.Equal(t, 5, cfg.Quota.RecipientPerMinute)
	assert.Equal(t, 20, cfg.Quota.RecipientPerHour)
	assert.Equal(t, 100, cfg.Quota.GlobalPerMinute)
	assert.Equal(t, 500, cfg.Quota.GlobalPerHour)
	assert.Equal(t, "5m", cfg.Quota.SweepInterval)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, "1s", cfg.Retry.InitialDelay)
	assert.Equal(t, 2.0, cfg.Retry.BackoffMultiplier)
	assert.Equal(t, "30s", cfg.Retry.MaxDelay)
	assert.Equal(t, 254, cfg.Validation.MaxLength)
	assert.Equal(t, 1000, cfg.Queue.Size)
	assert.Equal(t, 10, cfg.Queue.MaxDeferrals)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{}
	cfg.Quota.GlobalPerHour = 42
	cfg.Retry.InitialDelay = "10ms"
	cfg.ApplyDefaults()
	assert.Equal(t, 42, cfg.Quota.GlobalPerHour)
	assert.Equal(t, "10ms", cfg.Retry.InitialDelay)
}
