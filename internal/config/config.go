package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the analysis service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Cache    CacheConfig    `yaml:"cache"`
	Accounts AccountsConfig `yaml:"accounts"`
	Regions  RegionsConfig  `yaml:"regions"`
	Limits   LimitsConfig   `yaml:"limits"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls Redis-backed memoization of parsed datasets. When
// disabled an in-process cache is used instead.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	DatasetTTL   time.Duration `yaml:"datasetTTL"`
}

// AccountsConfig locates the user accounts database.
type AccountsConfig struct {
	DBPath string `yaml:"dbPath"`
}

// RegionsConfig locates the emergency-contact directory.
type RegionsConfig struct {
	Path string `yaml:"path"`
}

// LimitsConfig bounds request sizes and session lifetime.
type LimitsConfig struct {
	MaxUploadBytes int64         `yaml:"maxUploadBytes"`
	SessionTTL     time.Duration `yaml:"sessionTTL"`
	MaxHorizonDays int           `yaml:"maxHorizonDays"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CRIMELENS_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			DatasetTTL:   30 * time.Minute,
		},
		Accounts: AccountsConfig{DBPath: "crimelens.db"},
		Regions:  RegionsConfig{Path: "configs/regions.yaml"},
		Limits: LimitsConfig{
			MaxUploadBytes: 32 << 20,
			SessionTTL:     2 * time.Hour,
			MaxHorizonDays: 90,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CRIMELENS_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("CRIMELENS_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("CRIMELENS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CRIMELENS_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("CRIMELENS_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("CRIMELENS_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("CRIMELENS_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("CRIMELENS_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("CRIMELENS_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("CRIMELENS_CACHE_DATASET_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.DatasetTTL = d
		}
	}
	if v := os.Getenv("CRIMELENS_ACCOUNTS_DB"); v != "" {
		cfg.Accounts.DBPath = v
	}
	if v := os.Getenv("CRIMELENS_REGIONS_PATH"); v != "" {
		cfg.Regions.Path = v
	}
	if v := os.Getenv("CRIMELENS_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Limits.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("CRIMELENS_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Limits.SessionTTL = d
		}
	}
	if v := os.Getenv("CRIMELENS_MAX_HORIZON_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Limits.MaxHorizonDays = n
		}
	}
}
