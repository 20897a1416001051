// Package config loads application configuration from a TOML file, with an
// optional .env overlay and ELICIT_* environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"

	"github.com/elicitlabs/elicit/pkg/pathway"
)

// Storage backends.
const (
	StorageFile  = "file"
	StorageMongo = "mongo"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNull  = "null"
)

// Config is the full application configuration.
type Config struct {
	Log     LogConfig              `toml:"log"`
	Layout  pathway.LayoutSettings `toml:"layout"`
	Storage StorageConfig          `toml:"storage"`
	Cache   CacheConfig            `toml:"cache"`
	Server  ServerConfig           `toml:"server"`
}

// Validate validates all sections.
func (c *Config) Validate() error {
	if err := validateLayout(c.Layout); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// LogConfig controls logging output.
type LogConfig struct {
	Level   string `toml:"level"`
	Verbose bool   `toml:"verbose"`
}

// validateLayout checks the column layout geometry used when positioning
// pathway nodes.
func validateLayout(s pathway.LayoutSettings) error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.ColumnWidth, validation.Required, validation.Min(50)),
		validation.Field(&s.NodeMargin, validation.Min(0)),
		validation.Field(&s.ColumnMargin, validation.Min(0)),
		validation.Field(&s.InitialX, validation.Min(0)),
		validation.Field(&s.InitialY, validation.Min(0)),
	)
}

// StorageConfig selects where the rule collection is persisted.
type StorageConfig struct {
	Backend string      `toml:"backend"`
	Path    string      `toml:"path"`
	Mongo   MongoConfig `toml:"mongo"`
}

// Validate validates the storage section.
func (c *StorageConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(StorageFile, StorageMongo)),
	); err != nil {
		return err
	}
	if c.Backend == StorageMongo && c.Mongo.URI == "" {
		return fmt.Errorf("backend is %q but mongo.uri is empty", StorageMongo)
	}
	return nil
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// CacheConfig selects the render artifact cache backend.
type CacheConfig struct {
	Backend string        `toml:"backend"`
	Dir     string        `toml:"dir"`
	TTL     time.Duration `toml:"ttl"`
	Redis   RedisConfig   `toml:"redis"`
}

// Validate validates the cache section.
func (c *CacheConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(CacheFile, CacheRedis, CacheNull)),
	); err != nil {
		return err
	}
	if c.Backend == CacheRedis && c.Redis.Addr == "" {
		return fmt.Errorf("backend is %q but redis.addr is empty", CacheRedis)
	}
	return nil
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// ServerConfig holds HTTP server settings for serve mode.
type ServerConfig struct {
	Port int `toml:"port"`
}

// Address returns the HTTP listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the server section.
func (c *ServerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// Default returns a configuration with working defaults for local use.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Layout: pathway.DefaultLayoutSettings(),
		Storage: StorageConfig{
			Backend: StorageFile,
			Mongo: MongoConfig{
				Database:   "elicit",
				Collection: "collections",
			},
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			TTL:     24 * time.Hour,
		},
		Server: ServerConfig{
			Port: 8321,
		},
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "elicit.toml"
	}
	return filepath.Join(home, ".config", "elicit", "config.toml")
}

// Load builds the configuration. Defaults are applied first, then the TOML
// file at path (missing files are fine), then ELICIT_* environment
// variables. A .env file in the working directory is loaded before the
// environment is read.
func Load(path string) (*Config, error) {
	// Ignore a missing .env; it is an optional local convenience.
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// No config file; defaults plus environment apply.
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides individual settings from ELICIT_* variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("ELICIT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ELICIT_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("ELICIT_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("ELICIT_MONGO_URI"); v != "" {
		cfg.Storage.Mongo.URI = v
	}
	if v := os.Getenv("ELICIT_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("ELICIT_REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}
	if v := os.Getenv("ELICIT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}
