package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"census/internal/census"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all service and CLI configuration.
type Config struct {
	Census  CensusConfig  `yaml:"census"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// CensusConfig configures the Census API client.
type CensusConfig struct {
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Timeout          string `yaml:"timeout"`
	DecennialTimeout string `yaml:"decennial_timeout"`
	BatchSize        int    `yaml:"batch_size"`
	Concurrency      int    `yaml:"concurrency"` // batches in flight, 1 = sequential
}

// ServerConfig configures the HTTP service and its PocketBase export sink.
type ServerConfig struct {
	Port           string   `yaml:"port"`
	DataDir        string   `yaml:"data_dir"`
	PocketBaseAddr string   `yaml:"pocketbase_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Census: CensusConfig{
			BaseURL:          census.DefaultBaseURL,
			Timeout:          census.DefaultTimeout.String(),
			DecennialTimeout: census.DefaultDecennialTimeout.String(),
			BatchSize:        census.DefaultBatchSize,
			Concurrency:      1,
		},
		Server: ServerConfig{
			Port:           "8080",
			DataDir:        "./pb_data",
			PocketBaseAddr: "0.0.0.0:8090",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML config file over the defaults, then applies .env and
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	// .env is optional; existing environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("CENSUS_API_KEY"); v != "" {
		c.Census.APIKey = v
	}
	if v := os.Getenv("CENSUS_BASE_URL"); v != "" {
		c.Census.BaseURL = v
	}
	if v := os.Getenv("CENSUS_TIMEOUT"); v != "" {
		c.Census.Timeout = v
	}
	if v := os.Getenv("CENSUS_DECENNIAL_TIMEOUT"); v != "" {
		c.Census.DecennialTimeout = v
	}
	if v := os.Getenv("CENSUS_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CENSUS_BATCH_SIZE %q: %w", v, err)
		}
		c.Census.BatchSize = n
	}
	if v := os.Getenv("CENSUS_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CENSUS_CONCURRENCY %q: %w", v, err)
		}
		c.Census.Concurrency = n
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Server.DataDir = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks the configuration for values the client would reject.
func (c *Config) Validate() error {
	if c.Census.BatchSize < 1 || c.Census.BatchSize > census.MaxBatchSize {
		return fmt.Errorf("census.batch_size must be between 1 and %d, got %d", census.MaxBatchSize, c.Census.BatchSize)
	}
	if c.Census.Concurrency < 1 {
		return fmt.Errorf("census.concurrency must be at least 1, got %d", c.Census.Concurrency)
	}
	if _, err := c.Census.GetTimeout(); err != nil {
		return err
	}
	if _, err := c.Census.GetDecennialTimeout(); err != nil {
		return err
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

// GetTimeout returns the parsed general request timeout.
func (c CensusConfig) GetTimeout() (time.Duration, error) {
	return parsePositiveDuration("census.timeout", c.Timeout)
}

// GetDecennialTimeout returns the parsed decennial request timeout.
func (c CensusConfig) GetDecennialTimeout() (time.Duration, error) {
	return parsePositiveDuration("census.decennial_timeout", c.DecennialTimeout)
}

// ClientOptions translates the config into census client options.
func (c CensusConfig) ClientOptions() ([]census.Option, error) {
	timeout, err := c.GetTimeout()
	if err != nil {
		return nil, err
	}
	decennial, err := c.GetDecennialTimeout()
	if err != nil {
		return nil, err
	}
	return []census.Option{
		census.WithBaseURL(c.BaseURL),
		census.WithTimeout(timeout),
		census.WithDecennialTimeout(decennial),
		census.WithBatchSize(c.BatchSize),
		census.WithConcurrency(c.Concurrency),
	}, nil
}

func parsePositiveDuration(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, s)
	}
	return d, nil
}
