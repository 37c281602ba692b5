package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config drives a mpscload run
type Config struct {
	Producers int           `yaml:"producers"` // Number of concurrent senders
	Messages  int           `yaml:"messages"`  // Messages per producer
	LogLevel  string        `yaml:"log_level"`
	Spool     SpoolConfig   `yaml:"spool"`
	Metrics   MetricsConfig `yaml:"metrics"`
}

// SpoolConfig selects durable queue storage. An empty path keeps the queue in memory.
type SpoolConfig struct {
	Path       string `yaml:"path"`
	RecordSize int    `yaml:"record_size"` // Including the 12 byte record header
	Capacity   int    `yaml:"capacity"`    // Initial number of records
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr   string        `yaml:"addr"`
	Linger time.Duration `yaml:"linger"` // Keep serving after the run, so the final values can be scraped
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Producers: 4,
		Messages:  1000,
		LogLevel:  "info",
		Spool: SpoolConfig{
			RecordSize: 64,
			Capacity:   1024,
		},
	}
}

// Load reads and validates a YAML config file. Fields missing from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := Default()

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// Validate checks that the config can drive a run.
func (c *Config) Validate() error {
	if c.Producers <= 0 {
		return fmt.Errorf("producers must be positive, got %d", c.Producers)
	}

	if c.Messages <= 0 {
		return fmt.Errorf("messages must be positive, got %d", c.Messages)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}

	if c.Spool.Path != "" {
		if c.Spool.RecordSize <= 12 {
			return fmt.Errorf("spool.record_size must be larger than 12, got %d", c.Spool.RecordSize)
		}

		if c.Spool.Capacity <= 0 {
			return fmt.Errorf("spool.capacity must be positive, got %d", c.Spool.Capacity)
		}
	}

	if c.Metrics.Linger < 0 {
		return fmt.Errorf("metrics.linger must not be negative, got %s", c.Metrics.Linger)
	}

	return nil
}
