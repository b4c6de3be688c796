// Package config loads service configuration from defaults, an optional YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/voice-budget/internal/extraction"
)

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Gemini   GeminiConfig   `koanf:"gemini"`
	Jobs     JobsConfig     `koanf:"jobs"`
	BigQuery BigQueryConfig `koanf:"bigquery"`
	Storage  StorageConfig  `koanf:"storage"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// GeminiConfig holds extraction service settings. An empty APIKey leaves the
// engine unconfigured until a key is supplied at runtime.
type GeminiConfig struct {
	APIKey            string  `koanf:"api_key"`
	Model             string  `koanf:"model"`
	Temperature       float32 `koanf:"temperature"`
	RequestsPerMinute float64 `koanf:"requests_per_minute"`
	Burst             int     `koanf:"burst"`
}

// JobsConfig sizes the asynchronous extraction queue.
type JobsConfig struct {
	BufferSize int           `koanf:"buffer_size"`
	Workers    int           `koanf:"workers"`
	MaxRetries int           `koanf:"max_retries"`
	Backoff    time.Duration `koanf:"backoff"`
}

// BigQueryConfig enables run auditing when ProjectID is set.
type BigQueryConfig struct {
	ProjectID       string `koanf:"project_id"`
	Dataset         string `koanf:"dataset"`
	Table           string `koanf:"table"`
	CredentialsFile string `koanf:"credentials_file"`
}

// Enabled reports whether runs should be written to BigQuery.
func (c BigQueryConfig) Enabled() bool {
	return c.ProjectID != ""
}

// StorageConfig names the bucket CSV exports are uploaded to.
type StorageConfig struct {
	Bucket          string `koanf:"bucket"`
	Prefix          string `koanf:"prefix"`
	CredentialsFile string `koanf:"credentials_file"`
}

// LogConfig selects the logger level and output format.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the configuration used for every field not set elsewhere.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Gemini: GeminiConfig{
			Model:             extraction.DefaultModelName,
			Temperature:       0.1,
			RequestsPerMinute: 60,
			Burst:             5,
		},
		Jobs: JobsConfig{
			BufferSize: 100,
			Workers:    5,
			MaxRetries: 3,
			Backoff:    time.Second,
		},
		BigQuery: BigQueryConfig{
			Dataset: "voice_budget",
			Table:   "extraction_runs",
		},
		Storage: StorageConfig{
			Prefix: "exports",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server timeouts must not be negative"))
	}

	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		errs = append(errs, fmt.Errorf("gemini.temperature must be within [0, 2], got %g", c.Gemini.Temperature))
	}
	if c.Gemini.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("gemini.requests_per_minute must not be negative"))
	}
	if c.Gemini.Burst < 0 {
		errs = append(errs, errors.New("gemini.burst must not be negative"))
	}

	if c.Jobs.BufferSize < 0 {
		errs = append(errs, errors.New("jobs.buffer_size must not be negative"))
	}
	if c.Jobs.Workers < 1 {
		errs = append(errs, errors.New("jobs.workers must be at least 1"))
	}
	if c.Jobs.MaxRetries < 0 {
		errs = append(errs, errors.New("jobs.max_retries must not be negative"))
	}
	if c.Jobs.Backoff < 0 {
		errs = append(errs, errors.New("jobs.backoff must not be negative"))
	}

	if c.BigQuery.Enabled() && (c.BigQuery.Dataset == "" || c.BigQuery.Table == "") {
		errs = append(errs, errors.New("bigquery.dataset and bigquery.table are required when bigquery.project_id is set"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be \"console\" or \"json\", got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
