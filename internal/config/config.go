package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vjranagit/healthdash/pkg/health"
	"github.com/vjranagit/healthdash/pkg/storage"
)

const envPrefix = "HEALTHDASH_"

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Source  SourceConfig  `yaml:"source"`
	Extract ExtractConfig `yaml:"extract"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
}

// SourceConfig points at the default export
type SourceConfig struct {
	Path string `yaml:"path"`
}

// ExtractConfig holds the malformed-record policy ("abort" or "skip")
type ExtractConfig struct {
	RecordPolicy string `yaml:"record_policy"`
}

// CacheConfig holds dashboard cache configuration
type CacheConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Capacity         int           `yaml:"capacity"`
	TTL              time.Duration `yaml:"ttl"`
	SnapshotEnabled  bool          `yaml:"snapshot_enabled"`
	SnapshotPath     string        `yaml:"snapshot_path"`
	SnapshotTTL      time.Duration `yaml:"snapshot_ttl"`
	CompressionLevel int           `yaml:"compression_level"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:     ":8080",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxUploadBytes: 512 << 20,
		},
		Source: SourceConfig{
			Path: "export.xml",
		},
		Extract: ExtractConfig{
			RecordPolicy: "abort",
		},
		Cache: CacheConfig{
			Enabled:          true,
			Capacity:         8,
			TTL:              time.Hour,
			SnapshotEnabled:  false,
			SnapshotPath:     "./data",
			SnapshotTTL:      7 * 24 * time.Hour,
			CompressionLevel: 3,
		},
		Log: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path and HEALTHDASH_* environment variables, in that order of precedence.
// A missing file is not an error when path is empty.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file not found: %s", path)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.ListenAddr = getEnv("LISTEN_ADDR", c.Server.ListenAddr)
	c.Server.ReadTimeout = getEnvDuration("READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.MaxUploadBytes = int64(getEnvInt("MAX_UPLOAD_BYTES", int(c.Server.MaxUploadBytes)))

	c.Source.Path = getEnv("EXPORT_PATH", c.Source.Path)
	c.Extract.RecordPolicy = getEnv("RECORD_POLICY", c.Extract.RecordPolicy)

	c.Cache.Enabled = getEnvBool("CACHE_ENABLED", c.Cache.Enabled)
	c.Cache.Capacity = getEnvInt("CACHE_CAPACITY", c.Cache.Capacity)
	c.Cache.TTL = getEnvDuration("CACHE_TTL", c.Cache.TTL)
	c.Cache.SnapshotEnabled = getEnvBool("SNAPSHOT_ENABLED", c.Cache.SnapshotEnabled)
	c.Cache.SnapshotPath = getEnv("SNAPSHOT_PATH", c.Cache.SnapshotPath)
	c.Cache.SnapshotTTL = getEnvDuration("SNAPSHOT_TTL", c.Cache.SnapshotTTL)
	c.Cache.CompressionLevel = getEnvInt("COMPRESSION_LEVEL", c.Cache.CompressionLevel)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Development = getEnvBool("LOG_DEVELOPMENT", c.Log.Development)
}

// RecordPolicy returns the parsed malformed-record policy
func (c *Config) RecordPolicy() health.RecordPolicy {
	policy, _ := health.ParseRecordPolicy(c.Extract.RecordPolicy)
	return policy
}

// ToStorageConfig converts to storage.Config
func (c *Config) ToStorageConfig() *storage.Config {
	return &storage.Config{
		Path:             c.Cache.SnapshotPath,
		TTL:              c.Cache.SnapshotTTL,
		CompressionLevel: c.Cache.CompressionLevel,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server listen address is required")
	}

	if c.Server.MaxUploadBytes < 1 {
		return fmt.Errorf("max upload bytes must be positive")
	}

	if _, err := health.ParseRecordPolicy(c.Extract.RecordPolicy); err != nil {
		return err
	}

	if c.Cache.Enabled && c.Cache.Capacity < 1 {
		return fmt.Errorf("cache capacity must be at least 1")
	}

	if c.Cache.CompressionLevel < 1 || c.Cache.CompressionLevel > 4 {
		return fmt.Errorf("compression level must be between 1 and 4")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(envPrefix + key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(envPrefix + key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
