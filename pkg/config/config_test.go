package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/mailguard/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name               string
		configContent      string
		expectedListenAddr string
		expectedPerMinute  int
		expectedProduction bool
		expectError        bool
	}{
		{
			name: "full config",
			configContent: `
environment: production
server:
  listenAddress: ":9090"
mail:
  host: "smtp.example.com"
  port: 465
  senderAddress: "noreply@example.com"
quota:
  recipientPerMinute: 2
  sweepInterval: "1m"
retry:
  maxRetries: 4
  initialDelay: "500ms"
`,
			expectedListenAddr: ":9090",
			expectedPerMinute:  2,
			expectedProduction: true,
		},
		{
			name: "minimal config",
			configContent: `
mail:
  host: "localhost"
`,
			expectedListenAddr: ":8080",
			expectedPerMinute:  5,
		},
		{
			name:          "invalid yaml",
			configContent: "server: [",
			expectError:   true,
		},
		{
			name: "unknown field",
			configContent: `
mail:
  hots: "typo"
`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load(writeConfig(t, tt.configContent))
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedListenAddr, cfg.Server.ListenAddress)
			assert.Equal(t, tt.expectedPerMinute, cfg.Quota.RecipientPerMinute)
			assert.Equal(t, tt.expectedProduction, cfg.IsProduction())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBlockDisposable(t *testing.T) {
	yes, no := true, false

	assert.True(t, config.Config{Environment: "production"}.BlockDisposable())
	assert.False(t, config.Config{Environment: "staging"}.BlockDisposable())
	assert.False(t, config.Config{Environment: "PRODUCTION"}.BlockDisposable())

	cfg := config.Config{Environment: "production"}
	cfg.Validation.BlockDisposable = &no
	assert.False(t, cfg.BlockDisposable())

	cfg = config.Config{}
	cfg.Validation.BlockDisposable = &yes
	assert.True(t, cfg.BlockDisposable())
}

func TestMailSender(t *testing.T) {
	assert.Equal(t, "a@b.c", config.Mail{SenderAddress: "a@b.c", Host: "smtp"}.Sender())
	assert.Equal(t, "noreply@smtp.example.com", config.Mail{Host: "smtp.example.com"}.Sender())
	assert.Equal(t, "noreply@localhost", config.Mail{}.Sender())
}

func TestParseDuration(t *testing.T) {
	d, err := config.ParseDuration("initialDelay", "", time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)

	d, err = config.ParseDuration("initialDelay", "250ms", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	d, err = config.ParseDuration("initialDelay", "soon", time.Second)
	assert.Error(t, err)
	assert.Equal(t, time.Second, d)

	d, err = config.ParseDuration("initialDelay", "-1s", time.Second)
	assert.Error(t, err)
	assert.Equal(t, time.Second, d)
}
