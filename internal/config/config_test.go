package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := GetDefaults()
	require.NoError(t, validateConfig(cfg))

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.True(t, cfg.Anonymizer.Defaults["names"])
	assert.False(t, cfg.Anonymizer.Defaults["companies"])
	assert.Equal(t, "memory", cfg.History.Backend)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  read_timeout: 5s
anonymization:
  defaults:
    locations: true
  extra_first_names: [xiomara]
history:
  backend: memory
  capacity: 10
logging:
  level: debug
  format: console
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.True(t, cfg.Anonymizer.Defaults["locations"])
	assert.True(t, cfg.Anonymizer.Defaults["names"], "unlisted classes keep their defaults")
	assert.Equal(t, []string{"xiomara"}, cfg.Anonymizer.ExtraFirstNames)
	assert.Equal(t, 10, cfg.History.Capacity)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ANONYMIZER_SERVER_PORT", "7070")
	t.Setenv("ANONYMIZER_LOGGING_LEVEL", "warn")

	cfg, err := NewLoader(writeConfig(t, "server:\n  port: 9090\n")).Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"bad port", "server:\n  port: 70000\n", "invalid server port"},
		{"bad level", "logging:\n  level: verbose\n", "invalid log level"},
		{"bad format", "logging:\n  format: xml\n", "invalid log format"},
		{"unknown class", "anonymization:\n  defaults:\n    passwords: true\n", "unknown entity classes: passwords"},
		{"postgres without dsn", "history:\n  backend: postgres\n", "history dsn is required"},
		{"unknown backend", "history:\n  backend: mongo\n", "invalid history backend"},
		{"bolt without path", "history:\n  backend: bolt\n", "history dsn is required for the bolt backend"},
		{"no workers", "batch:\n  workers: 0\n", "invalid batch workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMalformedFile(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
