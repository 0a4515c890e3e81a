package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultStorePath is used when neither the config file nor the environment
// names a store.
const DefaultStorePath = "trailstore"

// Environment overrides.
const (
	EnvStorePath   = "TRAILSTORE_DB_PATH"
	EnvLogLevel    = "TRAILSTORE_LOG_LEVEL"
	EnvMetricsAddr = "TRAILSTORE_METRICS_ADDR"
	EnvWorkers     = "TRAILSTORE_IMPORT_WORKERS"
)

// Config is the trailstore configuration file.
type Config struct {
	Store  StoreConfig  `toml:"store"`
	Import ImportConfig `toml:"import"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
}

// StoreConfig selects the store file.
type StoreConfig struct {
	Path  string `toml:"path"`
	Clear bool   `toml:"clear"`
}

// ImportConfig tunes the fact importer.
type ImportConfig struct {
	Workers     int      `toml:"workers"`
	CommitEvery int      `toml:"commit_every"`
	Include     []string `toml:"include"`
	Exclude     []string `toml:"exclude"`
}

// ServerConfig holds the observability listener. An empty MetricsAddr
// disables it.
type ServerConfig struct {
	MetricsAddr string `toml:"metrics_addr"`
}

// LogConfig holds the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used without a config file.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// Load reads the TOML file at path, then applies .env and environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	// A missing .env is fine
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	ApplyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnvOverrides copies TRAILSTORE_* environment variables into cfg.
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Store.Path, EnvStorePath)
	setEnvString(&cfg.Log.Level, EnvLogLevel)
	setEnvString(&cfg.Server.MetricsAddr, EnvMetricsAddr)
	setEnvInt(&cfg.Import.Workers, EnvWorkers)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Import.CommitEvery == 0 {
		cfg.Import.CommitEvery = 1000
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
}

func validate(cfg *Config) error {
	var errs []error
	if cfg.Import.Workers < 0 {
		errs = append(errs, fmt.Errorf("import.workers must not be negative, got %d", cfg.Import.Workers))
	}
	if cfg.Import.CommitEvery < 0 {
		errs = append(errs, fmt.Errorf("import.commit_every must not be negative, got %d", cfg.Import.CommitEvery))
	}
	if _, err := cfg.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel converts the configured level to a slog.Level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
