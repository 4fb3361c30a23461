package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andygrunwald/fuel-tracker/internal/models"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.DSN = "postgres://localhost/fuel"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	names := cfg.ProductNames()
	if names[models.FuelGas95] != "無鉛汽油95" || names[models.FuelDiesel] != "超級柴油" {
		t.Errorf("unexpected product names: %v", names)
	}
	if got := cfg.IngestProducts(); len(got) != 4 || got[0].Code != "1" || got[0].FuelType != models.FuelGas92 {
		t.Errorf("unexpected ingest products: %+v", got)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FUELTRACKER_SYNC_HOUR", "9")
	t.Setenv("FUELTRACKER_DATABASE_DRIVER", "memory")
	t.Setenv("FUELTRACKER_FEED_TIMEOUT", "5s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SyncHour != 9 || cfg.Database.Driver != "memory" || cfg.Feed.Timeout != 5*time.Second {
		t.Errorf("environment not applied: %+v", cfg)
	}
	if len(cfg.Products) != len(DefaultProducts) {
		t.Errorf("expected default products, got %d", len(cfg.Products))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fueltracker.yaml")
	content := `
database:
  driver: mysql
  dsn: "user:pass@tcp(localhost:3306)/fuel"
log_format: console
sync_interval: 12h
products:
  - code: "2"
    fuel_type: gas95
    name: 無鉛汽油95
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("FUELTRACKER_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "mysql" || cfg.LogFormat != "console" || cfg.SyncInterval != 12*time.Hour {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected env to override log level, got %q", cfg.LogLevel)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if len(cfg.Products) != 1 || cfg.Products[0].Name != "無鉛汽油95" {
		t.Errorf("unexpected products: %+v", cfg.Products)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, "unknown database driver"},
		{"missing dsn", func(c *Config) { c.Database.Driver = "pgx"; c.Database.DSN = "" }, "dsn is required"},
		{"bad hour", func(c *Config) { c.SyncHour = 24 }, "sync hour"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "log format"},
		{"unknown fuel type", func(c *Config) { c.Products[0].FuelType = "kerosene" }, "unknown fuel type"},
		{"duplicate fuel type", func(c *Config) { c.Products[1].FuelType = "gas92" }, "configured twice"},
		{"missing code", func(c *Config) { c.Products[0].Code = "" }, "code and name"},
		{"duplicate code", func(c *Config) { c.Products[1].Code = " 1 " }, `code "1" configured twice`},
		{"duplicate name", func(c *Config) { c.Products[2].Name = c.Products[0].Name }, "name \"無鉛汽油92\" configured twice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Database.Driver = "memory"
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
