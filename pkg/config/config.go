package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultManifest is the default manifest object name inside the
	// configured storage backend.
	DefaultManifest = "index.json"

	// DefaultRunWindow is the default number of most recent runs kept
	// in view.
	DefaultRunWindow = 10

	// DefaultListen is the default API listen address.
	DefaultListen = ":8080"

	// DefaultSQLitePath is the default run index database path.
	DefaultSQLitePath = "healthoor.db"

	// DefaultIndexInterval is the default background indexing period.
	DefaultIndexInterval = "5m"

	// DefaultIndexConcurrency is the default number of run files
	// fetched in parallel per indexing pass.
	DefaultIndexConcurrency = 4
)

// Config is the root configuration for healthoor.
type Config struct {
	Global GlobalConfig `yaml:"global"`
	Source SourceConfig `yaml:"source"`
	API    APIConfig    `yaml:"api"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level"`
}

// SourceConfig describes where run payloads come from.
type SourceConfig struct {
	// Manifest is the name of the manifest file listing available runs.
	Manifest string `yaml:"manifest"`
	// RunWindow bounds the history to the N most recent runs.
	RunWindow int           `yaml:"run_window"`
	Storage   StorageConfig `yaml:"storage"`
}

// StorageConfig selects the backend run files are read from. Exactly
// one backend may be enabled.
type StorageConfig struct {
	Local *LocalStorageConfig `yaml:"local,omitempty"`
	S3    *S3StorageConfig    `yaml:"s3,omitempty"`
}

// LocalStorageConfig reads manifest and run files from a directory.
type LocalStorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// S3StorageConfig reads manifest and run files from an S3 bucket.
type S3StorageConfig struct {
	Enabled         bool   `yaml:"enabled"`
	EndpointURL     string `yaml:"endpoint_url,omitempty"`
	Region          string `yaml:"region,omitempty"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
}

// Load reads and parses a configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.Source.Manifest == "" {
		c.Source.Manifest = DefaultManifest
	}

	if c.Source.RunWindow == 0 {
		c.Source.RunWindow = DefaultRunWindow
	}

	if c.API.Server.Listen == "" {
		c.API.Server.Listen = DefaultListen
	}

	if c.API.Database.Driver == "" {
		c.API.Database.Driver = "sqlite"
	}

	if c.API.Database.Driver == "sqlite" && c.API.Database.SQLite.Path == "" {
		c.API.Database.SQLite.Path = DefaultSQLitePath
	}

	if c.API.Indexing != nil {
		if c.API.Indexing.Interval == "" {
			c.API.Indexing.Interval = DefaultIndexInterval
		}

		if c.API.Indexing.Concurrency == 0 {
			c.API.Indexing.Concurrency = DefaultIndexConcurrency
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Source.RunWindow < 0 {
		return fmt.Errorf("source: run_window must not be negative")
	}

	enabled := 0

	if c.Source.Storage.Local != nil && c.Source.Storage.Local.Enabled {
		enabled++

		if c.Source.Storage.Local.Dir == "" {
			return fmt.Errorf("source: local storage requires dir")
		}
	}

	if c.Source.Storage.S3 != nil && c.Source.Storage.S3.Enabled {
		enabled++

		if c.Source.Storage.S3.Bucket == "" {
			return fmt.Errorf("source: s3 storage requires bucket")
		}
	}

	if enabled == 0 {
		return fmt.Errorf("source: exactly one storage backend must be enabled")
	}

	if enabled > 1 {
		return fmt.Errorf("source: only one storage backend may be enabled")
	}

	switch c.API.Database.Driver {
	case "sqlite":
		if c.API.Database.SQLite.Path == "" {
			return fmt.Errorf("api: sqlite database requires path")
		}
	case "postgres":
		pg := c.API.Database.Postgres
		if pg.Host == "" || pg.User == "" || pg.Database == "" {
			return fmt.Errorf("api: postgres database requires host, user and database")
		}
	default:
		return fmt.Errorf("api: unknown database driver %q", c.API.Database.Driver)
	}

	if c.API.Indexing != nil && c.API.Indexing.Enabled {
		if c.API.Indexing.Concurrency < 1 {
			return fmt.Errorf("api: indexing concurrency must be at least 1")
		}
	}

	return nil
}
