// Package config provides configuration structures and loading for the fuel
// tracker.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/andygrunwald/fuel-tracker/internal/api/cpc"
	"github.com/andygrunwald/fuel-tracker/internal/ingest"
	"github.com/andygrunwald/fuel-tracker/internal/models"
)

// EnvPrefix is the prefix of all configuration environment variables, e.g.
// FUELTRACKER_DATABASE_DSN.
const EnvPrefix = "FUELTRACKER"

// Config holds all configuration for the fuel tracker.
type Config struct {
	// Database connection
	Database DatabaseConfig `mapstructure:"database"`
	// Log level (debug, info, warn, error)
	LogLevel string `mapstructure:"log_level"`
	// Log format (json, console)
	LogFormat string `mapstructure:"log_format"`
	// HTTP server address
	HTTPAddr string `mapstructure:"http_addr"`
	// Sync hour (0-23)
	SyncHour int `mapstructure:"sync_hour"`
	// Maximum age of the last sync before syncing on start
	SyncInterval time.Duration `mapstructure:"sync_interval"`
	// Price feed client
	Feed FeedConfig `mapstructure:"feed"`
	// Tracked feed products
	Products []ProductConfig `mapstructure:"products"`
}

// DatabaseConfig selects the store.
type DatabaseConfig struct {
	// Driver is one of pgx, mysql or memory.
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// FeedConfig configures the price feed client.
type FeedConfig struct {
	URL               string        `mapstructure:"url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	// Concurrency bounds parallel product fetches.
	Concurrency int `mapstructure:"concurrency"`
}

// ProductConfig maps a fuel type to the feed product that prices it.
type ProductConfig struct {
	// Code is posted as prodid to the feed.
	Code string `mapstructure:"code"`
	// FuelType is the fuel type code, e.g. gas95.
	FuelType string `mapstructure:"fuel_type"`
	// Name is the product name reported by the feed.
	Name string `mapstructure:"name"`
}

// DefaultProducts are the CPC products for the four fuel types.
var DefaultProducts = []ProductConfig{
	{Code: "1", FuelType: "gas92", Name: "無鉛汽油92"},
	{Code: "2", FuelType: "gas95", Name: "無鉛汽油95"},
	{Code: "3", FuelType: "gas98", Name: "無鉛汽油98"},
	{Code: "4", FuelType: "diesel", Name: "超級柴油"},
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	products := make([]ProductConfig, len(DefaultProducts))
	copy(products, DefaultProducts)

	return &Config{
		Database: DatabaseConfig{
			Driver: "pgx",
			DSN:    "",
		},
		LogLevel:     "info",
		LogFormat:    "json",
		HTTPAddr:     ":8080",
		SyncHour:     6,
		SyncInterval: 24 * time.Hour,
		Feed: FeedConfig{
			URL:               cpc.DefaultURL,
			Timeout:           cpc.DefaultTimeout,
			RequestsPerMinute: 30,
			Concurrency:       1,
		},
		Products: products,
	}
}

// Load reads the configuration. Values are layered: defaults, then the
// config file, then FUELTRACKER_* environment variables. An empty path looks
// for fueltracker.yaml in the working directory and /etc/fueltracker and
// tolerates its absence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("fueltracker")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/fueltracker")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if len(cfg.Products) == 0 {
		cfg.Products = DefaultConfig().Products
	}
	return &cfg, nil
}

// setDefaults registers every scalar key so AutomaticEnv can override it.
// Products are a list and only come from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("http_addr", d.HTTPAddr)
	v.SetDefault("sync_hour", d.SyncHour)
	v.SetDefault("sync_interval", d.SyncInterval)
	v.SetDefault("feed.url", d.Feed.URL)
	v.SetDefault("feed.timeout", d.Feed.Timeout)
	v.SetDefault("feed.requests_per_minute", d.Feed.RequestsPerMinute)
	v.SetDefault("feed.concurrency", d.Feed.Concurrency)
}

// Validate checks the configuration for values the application cannot run
// with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "pgx", "mysql":
		if c.Database.DSN == "" {
			return fmt.Errorf("database dsn is required for driver %s", c.Database.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver %q (want pgx, mysql or memory)", c.Database.Driver)
	}

	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("unknown log format %q (want json or console)", c.LogFormat)
	}
	if c.SyncHour < 0 || c.SyncHour > 23 {
		return fmt.Errorf("sync hour must be between 0 and 23, got %d", c.SyncHour)
	}
	if c.Feed.Concurrency < 1 {
		return fmt.Errorf("feed concurrency must be at least 1, got %d", c.Feed.Concurrency)
	}

	// Ingest keys its per-product metrics by name, so names must be unique
	// as well as codes and fuel types.
	var (
		seen  = make(map[models.FuelType]bool, len(c.Products))
		codes = make(map[string]bool, len(c.Products))
		names = make(map[string]bool, len(c.Products))
	)
	for i, p := range c.Products {
		ft, ok := models.ParseFuelType(p.FuelType)
		if !ok {
			return fmt.Errorf("product %d: unknown fuel type %q", i, p.FuelType)
		}
		if seen[ft] {
			return fmt.Errorf("product %d: fuel type %s configured twice", i, ft)
		}
		seen[ft] = true

		code, name := strings.TrimSpace(p.Code), strings.TrimSpace(p.Name)
		if code == "" || name == "" {
			return fmt.Errorf("product %d: code and name are required", i)
		}
		if codes[code] {
			return fmt.Errorf("product %d: code %q configured twice", i, code)
		}
		if names[name] {
			return fmt.Errorf("product %d: name %q configured twice", i, name)
		}
		codes[code] = true
		names[name] = true
	}
	return nil
}

// IngestProducts converts the product list for the ingestion service. Call
// Validate first; unknown fuel types fall back to the default.
func (c *Config) IngestProducts() []ingest.Product {
	out := make([]ingest.Product, 0, len(c.Products))
	for _, p := range c.Products {
		ft, _ := models.ParseFuelType(p.FuelType)
		out = append(out, ingest.Product{Code: p.Code, FuelType: ft, Name: p.Name})
	}
	return out
}

// ProductNames returns the fuel type to product name mapping.
func (c *Config) ProductNames() map[models.FuelType]string {
	names := make(map[models.FuelType]string, len(c.Products))
	for _, p := range c.IngestProducts() {
		names[p.FuelType] = p.Name
	}
	return names
}
