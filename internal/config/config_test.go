package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("default server address = %q", cfg.Server.Address)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.JSON {
		t.Fatalf("unexpected default logging config: %+v", cfg.Logging)
	}
	if cfg.Cache.Enabled {
		t.Fatal("cache enabled by default")
	}
	if cfg.Limits.SessionTTL != 2*time.Hour {
		t.Fatalf("default session ttl = %v", cfg.Limits.SessionTTL)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  address: ":9090"
  gracefulTimeout: 5s
logging:
  level: debug
  json: true
cache:
  enabled: true
  addr: localhost:6379
  datasetTTL: 10m
limits:
  maxHorizonDays: 30
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Fatalf("server address = %q, want :9090", cfg.Server.Address)
	}
	if cfg.Server.GracefulTimeout != 5*time.Second {
		t.Fatalf("graceful timeout = %v, want 5s", cfg.Server.GracefulTimeout)
	}
	if !cfg.Logging.JSON || cfg.Logging.Level != "debug" {
		t.Fatalf("logging config = %+v", cfg.Logging)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Addr != "localhost:6379" {
		t.Fatalf("cache config = %+v", cfg.Cache)
	}
	if cfg.Cache.DatasetTTL != 10*time.Minute {
		t.Fatalf("dataset ttl = %v, want 10m", cfg.Cache.DatasetTTL)
	}
	if cfg.Limits.MaxHorizonDays != 30 {
		t.Fatalf("max horizon = %d, want 30", cfg.Limits.MaxHorizonDays)
	}
	// Unset fields keep their defaults.
	if cfg.Server.MetricsAddress != ":2112" {
		t.Fatalf("metrics address = %q, want default", cfg.Server.MetricsAddress)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load accepted a missing config path")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CRIMELENS_SERVER_ADDRESS", ":7070")
	t.Setenv("CRIMELENS_LOG_FORMAT", "json")
	t.Setenv("CRIMELENS_CACHE_ENABLED", "true")
	t.Setenv("CRIMELENS_CACHE_ADDR", "redis:6379")
	t.Setenv("CRIMELENS_SESSION_TTL", "45m")
	t.Setenv("CRIMELENS_MAX_HORIZON_DAYS", "14")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Fatalf("server address = %q, want :7070", cfg.Server.Address)
	}
	if !cfg.Logging.JSON {
		t.Fatal("log format override ignored")
	}
	if !cfg.Cache.Enabled || cfg.Cache.Addr != "redis:6379" {
		t.Fatalf("cache overrides ignored: %+v", cfg.Cache)
	}
	if cfg.Limits.SessionTTL != 45*time.Minute {
		t.Fatalf("session ttl = %v, want 45m", cfg.Limits.SessionTTL)
	}
	if cfg.Limits.MaxHorizonDays != 14 {
		t.Fatalf("max horizon = %d, want 14", cfg.Limits.MaxHorizonDays)
	}
}

func TestEnvOverrideIgnoresBadValues(t *testing.T) {
	t.Setenv("CRIMELENS_SESSION_TTL", "not-a-duration")
	t.Setenv("CRIMELENS_MAX_HORIZON_DAYS", "-3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Limits.SessionTTL != 2*time.Hour {
		t.Fatalf("session ttl = %v, want default", cfg.Limits.SessionTTL)
	}
	if cfg.Limits.MaxHorizonDays != 90 {
		t.Fatalf("max horizon = %d, want default", cfg.Limits.MaxHorizonDays)
	}
}
