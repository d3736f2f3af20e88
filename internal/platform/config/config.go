package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"`
	SQLitePath  string `yaml:"sqlite_path"`
	DatabaseURL string `yaml:"database_url"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns the configuration used when no file or env override is present.
func Default() Config {
	return Config{
		Server:  ServerConfig{Port: 8080},
		Storage: StorageConfig{Backend: BackendSQLite, SQLitePath: "family-health.db"},
		Log:     LogConfig{Level: "info", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
	}
}

// Load reads configFile (when non-empty) over the defaults, then applies env
// overrides. An explicitly named file must exist.
func Load(configFile string) (Config, error) {
	c := Default()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", configFile, err)
		}
	}

	envOverride(&c.Storage.Backend, "STORAGE_BACKEND")
	envOverride(&c.Storage.SQLitePath, "SQLITE_PATH")
	envOverride(&c.Storage.DatabaseURL, "DATABASE_URL")
	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.File, "LOG_FILE")
	if err := envOverrideInt(&c.Server.Port, "PORT"); err != nil {
		return Config{}, err
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	switch strings.ToLower(c.Storage.Backend) {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("storage.sqlite_path is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("storage.database_url (DATABASE_URL) is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend must be one of memory|sqlite|postgres, got %q", c.Storage.Backend)
	}
	return nil
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}
