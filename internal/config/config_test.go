package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/voice-budget/internal/extraction"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadWithFile_DefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	cfg, err := LoadWithFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.False(t, cfg.BigQuery.Enabled())
	assert.Equal(t, extraction.DefaultModelName, cfg.Gemini.Model)
}

func TestLoadWithFile_YAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  shutdown_timeout: 5s
gemini:
  model: gemini-2.5-pro
  temperature: 0.4
jobs:
  workers: 2
bigquery:
  project_id: my-project
log:
  format: json
`)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout, "unset fields keep defaults")
	assert.Equal(t, "gemini-2.5-pro", cfg.Gemini.Model)
	assert.InDelta(t, 0.4, cfg.Gemini.Temperature, 1e-6)
	assert.Equal(t, 2, cfg.Jobs.Workers)
	assert.Equal(t, 100, cfg.Jobs.BufferSize)
	assert.True(t, cfg.BigQuery.Enabled())
	assert.Equal(t, "extraction_runs", cfg.BigQuery.Table)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\ngemini:\n  api_key: from-file\n")

	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("GEMINI_REQUESTS_PER_MINUTE", "30")
	t.Setenv("JOBS_BACKOFF", "250ms")
	t.Setenv("LOG", "ignored")
	t.Setenv("UNRELATED_SETTING", "ignored")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Gemini.APIKey)
	assert.Equal(t, 30.0, cfg.Gemini.RequestsPerMinute)
	assert.Equal(t, 250*time.Millisecond, cfg.Jobs.Backoff)
}

func TestLoadWithFile_Errors(t *testing.T) {
	t.Run("invalid yaml", func(t *testing.T) {
		_, err := LoadWithFile(writeConfig(t, "server: [unclosed"))
		assert.Error(t, err)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := LoadWithFile(writeConfig(t, "# "+strings.Repeat("x", maxConfigFileSize)))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds")
	})

	t.Run("directory", func(t *testing.T) {
		_, err := LoadWithFile(t.TempDir())
		assert.Error(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := LoadWithFile(writeConfig(t, "log:\n  format: xml\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "log.format")
	})
}

func TestDefaultPath(t *testing.T) {
	t.Setenv(PathEnv, "/tmp/custom.yaml")
	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.yaml", p)

	t.Setenv(PathEnv, "")
	t.Setenv("HOME", "/home/tester")
	p, err = DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", ".config", "voicebudget", "config.yaml"), p)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"temperature too high", func(c *Config) { c.Gemini.Temperature = 2.5 }, "gemini.temperature"},
		{"negative temperature", func(c *Config) { c.Gemini.Temperature = -0.1 }, "gemini.temperature"},
		{"zero temperature is allowed", func(c *Config) { c.Gemini.Temperature = 0 }, ""},
		{"negative buffer", func(c *Config) { c.Jobs.BufferSize = -1 }, "jobs.buffer_size"},
		{"no workers", func(c *Config) { c.Jobs.Workers = 0 }, "jobs.workers"},
		{"negative retries", func(c *Config) { c.Jobs.MaxRetries = -1 }, "jobs.max_retries"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bigquery without table", func(c *Config) {
			c.BigQuery.ProjectID = "p"
			c.BigQuery.Table = ""
		}, "bigquery.table"},
		{"unknown log format", func(c *Config) { c.Log.Format = "text" }, "log.format"},
		{"log format is case insensitive", func(c *Config) { c.Log.Format = "JSON" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "gemini.api_key", envKey("GEMINI_API_KEY"))
	assert.Equal(t, "bigquery.project_id", envKey("BIGQUERY_PROJECT_ID"))
	assert.Equal(t, "", envKey("HOME"))
	assert.Equal(t, "", envKey("PATH_INFO"))
	assert.Equal(t, "", envKey("LOG_"))
}
