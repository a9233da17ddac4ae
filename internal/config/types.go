package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Anonymizer AnonymizerConfig `yaml:"anonymization" mapstructure:"anonymization"`
	Sentiment  SentimentConfig  `yaml:"sentiment" mapstructure:"sentiment"`
	History    HistoryConfig    `yaml:"history" mapstructure:"history"`
	Logging    LoggingConfig    `yaml:"logging" mapstructure:"logging"`
	WebSocket  WebSocketConfig  `yaml:"websocket" mapstructure:"websocket"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS       CORSConfig       `yaml:"cors" mapstructure:"cors"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" mapstructure:"telemetry"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port          int           `yaml:"port" mapstructure:"port"`
	ReadTimeout   time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	DashboardPath string        `yaml:"dashboard_path" mapstructure:"dashboard_path"`
}

// AnonymizerConfig contains the entity detection defaults
type AnonymizerConfig struct {
	// Defaults are the per-class flags applied when a request omits them
	Defaults        map[string]bool `yaml:"defaults" mapstructure:"defaults"`
	ExtraFirstNames []string        `yaml:"extra_first_names" mapstructure:"extra_first_names"`
	ExtraExclusions []string        `yaml:"extra_exclusions" mapstructure:"extra_exclusions"`
	// MaxTextLength caps request text in bytes; 0 disables the cap
	MaxTextLength int `yaml:"max_text_length" mapstructure:"max_text_length"`
}

// SentimentConfig contains the external sentiment scorer configuration
type SentimentConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	URL     string        `yaml:"url" mapstructure:"url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
}

// CacheConfig contains Redis cache configuration for sentiment scores
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Addr     string        `yaml:"addr" mapstructure:"addr"`
	Password string        `yaml:"password" mapstructure:"password"`
	DB       int           `yaml:"db" mapstructure:"db"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Prefix   string        `yaml:"prefix" mapstructure:"prefix"`
}

// HistoryConfig selects where analysis records are kept
type HistoryConfig struct {
	Backend       string        `yaml:"backend" mapstructure:"backend"` // memory, postgres, sqlite or bolt
	Capacity      int           `yaml:"capacity" mapstructure:"capacity"`
	DSN           string        `yaml:"dsn" mapstructure:"dsn"` // connection string or file path
	MaxConns      int           `yaml:"max_conns" mapstructure:"max_conns"`
	Retention     time.Duration `yaml:"retention" mapstructure:"retention"`
	PruneSchedule string        `yaml:"prune_schedule" mapstructure:"prune_schedule"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	Path            string        `yaml:"path" mapstructure:"path"`
	MaxConnections  int           `yaml:"max_connections" mapstructure:"max_connections"`
	ReadBufferSize  int           `yaml:"read_buffer_size" mapstructure:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size" mapstructure:"write_buffer_size"`
	PingInterval    time.Duration `yaml:"ping_interval" mapstructure:"ping_interval"`
	PongTimeout     time.Duration `yaml:"pong_timeout" mapstructure:"pong_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	MaxMessageSize  int64         `yaml:"max_message_size" mapstructure:"max_message_size"`
	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	BasicAuth       struct {
		Username string `yaml:"username" mapstructure:"username"`
		Password string `yaml:"password" mapstructure:"password"`
	} `yaml:"basic_auth" mapstructure:"basic_auth"`
}

// RateLimitConfig contains per-client request limits
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int           `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// CORSConfig contains cross-origin settings for the dashboard
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// BatchConfig contains dataset processing defaults
type BatchConfig struct {
	Workers    int    `yaml:"workers" mapstructure:"workers"`
	TextColumn string `yaml:"text_column" mapstructure:"text_column"`
	IDColumn   string `yaml:"id_column" mapstructure:"id_column"`
	MaxRecords int    `yaml:"max_records" mapstructure:"max_records"`
}

// TelemetryConfig toggles OpenTelemetry export
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:          8000,
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  30 * time.Second,
			IdleTimeout:   60 * time.Second,
			DashboardPath: "web/index.html",
		},
		Anonymizer: AnonymizerConfig{
			Defaults: map[string]bool{
				"names":     true,
				"emails":    true,
				"phones":    true,
				"ids":       true,
				"cards":     true,
				"addresses": true,
				"companies": false,
				"locations": false,
			},
			MaxTextLength: 100_000,
		},
		Sentiment: SentimentConfig{
			Enabled: false,
			URL:     "http://localhost:8001/score",
			Timeout: 10 * time.Second,
			Cache: CacheConfig{
				Enabled: false,
				Addr:    "localhost:6379",
				TTL:     time.Hour,
				Prefix:  "anonymizer:sentiment:",
			},
		},
		History: HistoryConfig{
			Backend:       "memory",
			Capacity:      500,
			MaxConns:      10,
			Retention:     30 * 24 * time.Hour,
			PruneSchedule: "@hourly",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		WebSocket: WebSocketConfig{
			Enabled:         true,
			Path:            "/ws",
			MaxConnections:  100,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingInterval:    54 * time.Second,
			PongTimeout:     60 * time.Second,
			WriteTimeout:    10 * time.Second,
			MaxMessageSize:  512,
			AllowedOrigins:  []string{"*"},
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 120,
			Burst:             20,
			CleanupInterval:   5 * time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Batch: BatchConfig{
			Workers:    4,
			TextColumn: "text",
			IDColumn:   "id",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "pii-anonymizer",
		},
	}
	cfg.Logging.File.Path = "logs/anonymizer.log"
	return cfg
}
