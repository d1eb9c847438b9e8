package cli

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetEnvString(t *testing.T) {
	t.Setenv("MAILGUARD_TEST_ENV", "custom-value")

	if got := getEnvString("MAILGUARD_TEST_ENV", "default"); got != "custom-value" {
		t.Fatalf("expected env override, got %s", got)
	}
	if got := EnvString("MAILGUARD_UNKNOWN_ENV", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %s", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("MAILGUARD_BOOL_TRUE", "true")
	if !getEnvBool("MAILGUARD_BOOL_TRUE", false) {
		t.Fatal("expected true when env variable explicitly true")
	}

	t.Setenv("MAILGUARD_BOOL_FALSE", "false")
	if EnvBool("MAILGUARD_BOOL_FALSE", true) {
		t.Fatal("expected false when env variable explicitly false")
	}

	t.Setenv("MAILGUARD_BOOL_INVALID", "sometimes")
	if !getEnvBool("MAILGUARD_BOOL_INVALID", true) {
		t.Fatal("expected fallback default when env value invalid")
	}

	if getEnvBool("MAILGUARD_BOOL_MISSING", false) {
		t.Fatal("expected default false when env missing")
	}
}

func TestGetEnvBool_Variants(t *testing.T) {
	for _, val := range []string{"true", "TRUE", "True", "1", "yes", "YES"} {
		t.Run(val, func(t *testing.T) {
			t.Setenv("TEST_BOOL", val)
			assert.True(t, getEnvBool("TEST_BOOL", false), "expected true for %q", val)
		})
	}
	for _, val := range []string{"false", "FALSE", "0", "no", "No"} {
		t.Run(val, func(t *testing.T) {
			t.Setenv("TEST_BOOL", val)
			assert.False(t, getEnvBool("TEST_BOOL", true), "expected false for %q", val)
		})
	}
}

func TestBindFlags(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var c Config
		fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
		c.BindFlags(fs)
		require.NoError(t, fs.Parse(nil))

		assert.False(t, c.Debug)
		assert.Equal(t, "./config.yaml", c.ConfigPath)
		assert.Empty(t, c.ListenAddress)
		assert.False(t, c.DisableEmail)
	})

	t.Run("environment fallbacks", func(t *testing.T) {
		t.Setenv("MAILGUARD_CONFIG_PATH", "/etc/mailguard/config.yaml")
		t.Setenv("MAILGUARD_DISABLE_EMAIL", "yes")

		var c Config
		fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
		c.BindFlags(fs)
		require.NoError(t, fs.Parse(nil))

		assert.Equal(t, "/etc/mailguard/config.yaml", c.ConfigPath)
		assert.True(t, c.DisableEmail)
	})

	t.Run("flags win over environment", func(t *testing.T) {
		t.Setenv("MAILGUARD_LISTEN_ADDRESS", ":7000")

		var c Config
		fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
		c.BindFlags(fs)
		require.NoError(t, fs.Parse([]string{"--listen-address", ":9000", "--environment", "production", "--debug"}))

		assert.Equal(t, ":9000", c.ListenAddress)
		assert.Equal(t, "production", c.Environment)
		assert.True(t, c.Debug)
	})
}

func TestPrint(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	c := Config{ConfigPath: "cfg.yaml", Environment: "staging"}
	c.Print(zap.New(core).Sugar())

	entries := recorded.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "cfg.yaml", fields["config_path"])
	assert.Equal(t, "staging", fields["environment"])
}
