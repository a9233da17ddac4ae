package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/raaihank/pii-anonymizer/internal/anonymizer"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. ANONYMIZER_SERVER_PORT
const EnvPrefix = "ANONYMIZER"

// Loader reads configuration through its own viper instance so tests and
// binaries do not share global state.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader with the standard search paths and env overrides
func NewLoader(configPath string) *Loader {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/pii-anonymizer/")
	v.AddConfigPath("$HOME/.pii-anonymizer/")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	return &Loader{v: v}
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}

// Load reads the file (if any), applies env overrides and validates
func (l *Loader) Load() (*Config, error) {
	config := GetDefaults()

	// AutomaticEnv only applies to keys viper already knows about
	bindDefaults(l.v, config)

	if err := l.v.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := l.v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// ConfigFile returns the file viper resolved, or an empty string
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

func bindDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("server.port", c.Server.Port)
	v.SetDefault("server.read_timeout", c.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", c.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", c.Server.IdleTimeout)
	v.SetDefault("server.dashboard_path", c.Server.DashboardPath)
	v.SetDefault("anonymization.max_text_length", c.Anonymizer.MaxTextLength)
	v.SetDefault("sentiment.enabled", c.Sentiment.Enabled)
	v.SetDefault("sentiment.url", c.Sentiment.URL)
	v.SetDefault("sentiment.timeout", c.Sentiment.Timeout)
	v.SetDefault("sentiment.cache.enabled", c.Sentiment.Cache.Enabled)
	v.SetDefault("sentiment.cache.addr", c.Sentiment.Cache.Addr)
	v.SetDefault("sentiment.cache.password", c.Sentiment.Cache.Password)
	v.SetDefault("history.backend", c.History.Backend)
	v.SetDefault("history.capacity", c.History.Capacity)
	v.SetDefault("history.dsn", c.History.DSN)
	v.SetDefault("history.retention", c.History.Retention)
	v.SetDefault("telemetry.enabled", c.Telemetry.Enabled)
	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.format", c.Logging.Format)
	v.SetDefault("rate_limit.enabled", c.RateLimit.Enabled)
	v.SetDefault("rate_limit.requests_per_minute", c.RateLimit.RequestsPerMinute)
	v.SetDefault("batch.workers", c.Batch.Workers)
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	if err := anonymizer.ConfigFromMap(config.Anonymizer.Defaults).Validate(); err != nil {
		return fmt.Errorf("invalid anonymization defaults: %w", err)
	}

	if config.Anonymizer.MaxTextLength < 0 {
		return fmt.Errorf("invalid max text length: %d", config.Anonymizer.MaxTextLength)
	}

	switch config.History.Backend {
	case "memory":
		if config.History.Capacity <= 0 {
			return fmt.Errorf("invalid history capacity: %d", config.History.Capacity)
		}
	case "postgres", "sqlite", "bolt":
		if config.History.DSN == "" {
			return fmt.Errorf("history dsn is required for the %s backend", config.History.Backend)
		}
	default:
		return fmt.Errorf("invalid history backend: %s (must be memory, postgres, sqlite or bolt)", config.History.Backend)
	}

	if config.History.Retention < 0 {
		return fmt.Errorf("invalid history retention: %s", config.History.Retention)
	}

	if config.Sentiment.Enabled && config.Sentiment.URL == "" {
		return fmt.Errorf("sentiment url is required when sentiment is enabled")
	}

	if config.RateLimit.Enabled && config.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("invalid requests per minute: %d", config.RateLimit.RequestsPerMinute)
	}

	if config.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d", config.Batch.Workers)
	}

	return nil
}

// Watch starts watching the configuration file for changes. Reloads that fail
// to parse or validate are reported to onError and otherwise ignored.
func (l *Loader) Watch(callback func(*Config), onError func(error)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		newConfig := GetDefaults()
		if err := l.v.Unmarshal(newConfig); err != nil {
			if onError != nil {
				onError(fmt.Errorf("failed to unmarshal %s: %w", e.Name, err))
			}
			return
		}

		if err := validateConfig(newConfig); err != nil {
			if onError != nil {
				onError(fmt.Errorf("invalid configuration in %s: %w", e.Name, err))
			}
			return
		}

		callback(newConfig)
	})
	l.v.WatchConfig()
}
