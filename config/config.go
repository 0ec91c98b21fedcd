// Package config provides configuration loading for ontocloud.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/twinfer/ontocloud/fuseki"
	"github.com/twinfer/ontocloud/rdf"
	"github.com/twinfer/ontocloud/ttl"
)

// Config represents the complete ontocloud configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Fuseki    FusekiConfig    `yaml:"fuseki"`
	Converter ConverterConfig `yaml:"converter"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	// Addr is the listen address (default: :5001)
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// MaxBodyBytes caps request bodies, uploaded datasets included
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// DatabaseConfig selects the store backend
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres"
	Driver string `yaml:"driver"`
	// DSN is a file path (":memory:" allowed) for sqlite or a connection
	// string for postgres
	DSN string `yaml:"dsn"`
	// Pragmas override the default SQLite pragmas
	Pragmas map[string]string `yaml:"pragmas"`
}

// FusekiConfig configures the triple store client
type FusekiConfig struct {
	URL         string        `yaml:"url"`
	Dataset     string        `yaml:"dataset"`
	Timeout     time.Duration `yaml:"timeout"`
	PingTimeout time.Duration `yaml:"ping_timeout"`
	RetryCount  int           `yaml:"retry_count"`
}

// ConverterConfig holds the defaults used when a request leaves them out
type ConverterConfig struct {
	BaseURI           string `yaml:"base_uri"`
	Namespace         string `yaml:"namespace"`
	Format            string `yaml:"format"`
	MaxDepth          int    `yaml:"max_depth"`
	Strict            bool   `yaml:"strict"`
	QuoteArrayScalars bool   `yaml:"quote_array_scalars"`
}

// LogConfig configures logging
type LogConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":5001",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    32 << 20,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "ontocloud.db",
		},
		Fuseki: FusekiConfig{
			URL:         fuseki.DefaultURL,
			Dataset:     fuseki.DefaultDataset,
			Timeout:     fuseki.DefaultTimeout,
			PingTimeout: fuseki.DefaultPingTimeout,
			RetryCount:  fuseki.RetryCount,
		},
		Converter: ConverterConfig{
			BaseURI:   "http://example.org/ontology#",
			Namespace: "ex",
			Format:    string(rdf.FormatTurtle),
			MaxDepth:  ttl.DefaultMaxDepth,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Fuseki.URL == "" {
		return fmt.Errorf("fuseki.url is required")
	}
	if err := fuseki.ValidateDatasetName(c.Fuseki.Dataset); err != nil {
		return fmt.Errorf("fuseki.dataset: %w", err)
	}
	if c.Fuseki.Timeout <= 0 || c.Fuseki.PingTimeout <= 0 {
		return fmt.Errorf("fuseki timeouts must be positive")
	}
	if c.Fuseki.RetryCount < 0 {
		return fmt.Errorf("fuseki.retry_count must not be negative")
	}
	if _, ok := rdf.GetFormatInfo(rdf.Format(c.Converter.Format)); !ok {
		return fmt.Errorf("converter.format: %w: %q", rdf.ErrUnknownFormat, c.Converter.Format)
	}
	if c.Converter.MaxDepth < 1 {
		return fmt.Errorf("converter.max_depth must be at least 1")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SerializerOptions translates the converter section into serializer options.
func (c ConverterConfig) SerializerOptions() []ttl.Option {
	opts := []ttl.Option{ttl.WithMaxDepth(c.MaxDepth)}
	if c.Strict {
		opts = append(opts, ttl.WithStrictValidation())
	}
	if c.QuoteArrayScalars {
		opts = append(opts, ttl.WithQuotedArrayScalars())
	}
	return opts
}

// ClientOptions translates the fuseki section into client options.
func (c FusekiConfig) ClientOptions(logger *zap.Logger) []fuseki.Option {
	return []fuseki.Option{
		fuseki.WithTimeout(c.Timeout),
		fuseki.WithPingTimeout(c.PingTimeout),
		fuseki.WithRetry(c.RetryCount, fuseki.RetryWaitTime),
		fuseki.WithLogger(logger),
	}
}

// Build returns a zap logger for the configured level.
func (c LogConfig) Build() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	config := zap.NewProductionConfig()
	if c.Development {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(level)

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
