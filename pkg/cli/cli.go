package cli

import (
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Config holds the flags of the serve command. Values from the config file
// are overridden by non-empty flag values.
type Config struct {
	// Application flags
	Debug bool

	// Configuration flags
	ConfigPath    string
	ListenAddress string
	Environment   string
	DisableEmail  bool

	// Interval flags
	SweepInterval string
}

// BindFlags registers the server flags on fs with environment fallbacks.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&c.Debug, "debug", getEnvBool("MAILGUARD_DEBUG", false), "Enable debug level logging")
	fs.StringVar(&c.ConfigPath, "config-path", getEnvString("MAILGUARD_CONFIG_PATH", "./config.yaml"),
		"Path to the mailguard configuration file")
	fs.StringVar(&c.ListenAddress, "listen-address", getEnvString("MAILGUARD_LISTEN_ADDRESS", ""),
		"Address the API server binds to (overrides server.listenAddress)")
	fs.StringVar(&c.Environment, "environment", getEnvString("MAILGUARD_ENVIRONMENT", ""),
		"Deployment environment; \"production\" blocks disposable domains (overrides environment)")
	fs.BoolVar(&c.DisableEmail, "disable-email", getEnvBool("MAILGUARD_DISABLE_EMAIL", false),
		"Accept and validate messages but never contact the SMTP server")
	fs.StringVar(&c.SweepInterval, "sweep-interval", getEnvString("MAILGUARD_SWEEP_INTERVAL", ""),
		"How often expired quota counters are removed (overrides quota.sweepInterval)")
}

func (c *Config) Print(log *zap.SugaredLogger) {
	log.Infow("CLI Configuration",
		"debug", c.Debug,
		"config_path", c.ConfigPath,
		"listen_address", c.ListenAddress,
		"environment", c.Environment,
		"disable_email", c.DisableEmail,
		"sweep_interval", c.SweepInterval,
	)
}

// EnvString returns the value of an environment variable, or the provided default if not set.
func EnvString(key, defaultVal string) string {
	return getEnvString(key, defaultVal)
}

// EnvBool is the exported form of getEnvBool.
func EnvBool(key string, defaultVal bool) bool {
	return getEnvBool(key, defaultVal)
}

func getEnvString(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvBool returns the value of an environment variable as a bool, or the provided default if not set.
// Valid true values are "true", "1", "yes" (case-insensitive).
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(val) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultVal
}
