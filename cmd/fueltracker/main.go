// Package main provides the entry point for the fuel tracker CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/andygrunwald/fuel-tracker/internal/api/cpc"
	"github.com/andygrunwald/fuel-tracker/internal/config"
	"github.com/andygrunwald/fuel-tracker/internal/database"
	"github.com/andygrunwald/fuel-tracker/internal/garage"
	"github.com/andygrunwald/fuel-tracker/internal/ingest"
	"github.com/andygrunwald/fuel-tracker/internal/pricing"
	"github.com/andygrunwald/fuel-tracker/internal/store"
	"github.com/andygrunwald/fuel-tracker/internal/store/memory"
)

var (
	// Version is set at build time.
	Version = "dev"
	// Commit is set at build time.
	Commit = "none"
	// BuildDate is set at build time.
	BuildDate = "unknown"
)

var cfg = config.DefaultConfig()

// flagValues holds the global flags. They are applied on top of the loaded
// configuration when set explicitly.
var flagValues struct {
	configPath string
	dbDriver   string
	dbDSN      string
	logLevel   string
	logFormat  string
	httpAddr   string
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "fueltracker",
		Short: "Fuel Tracker - fuel prices and fuel economy in one place",
		Long: `Fuel Tracker keeps a local history of the official CPC fuel list prices
and derives the fuel economy of your vehicles from their refueling records.

Features:
  - Daily price synchronization from the CPC historical price list
  - Current and upcoming prices per fuel type
  - Driven distance, consumption and cost per km for every refueling
  - PostgreSQL, MySQL or in-memory storage
  - Prometheus metrics and status endpoints`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagValues.configPath, "config", "", "Path to the config file (default ./fueltracker.yaml)")
	flags.StringVar(&flagValues.dbDriver, "db-driver", cfg.Database.Driver, "Database driver (pgx, mysql, memory)")
	flags.StringVar(&flagValues.dbDSN, "db-dsn", cfg.Database.DSN, "Database connection string")
	flags.StringVar(&flagValues.logLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&flagValues.logFormat, "log-format", cfg.LogFormat, "Log format (json, console)")
	flags.StringVar(&flagValues.httpAddr, "http-addr", cfg.HTTPAddr, "HTTP server address for /metrics, /status, /prices")

	// Add subcommands
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(pricesCmd())
	rootCmd.AddCommand(vehicleCmd())
	rootCmd.AddCommand(recordCmd())
	rootCmd.AddCommand(recalculateCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig layers defaults, config file, environment and explicit flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	loaded, err := config.Load(flagValues.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("db-driver") {
		loaded.Database.Driver = flagValues.dbDriver
	}
	if flags.Changed("db-dsn") {
		loaded.Database.DSN = flagValues.dbDSN
	}
	if flags.Changed("log-level") {
		loaded.LogLevel = flagValues.logLevel
	}
	if flags.Changed("log-format") {
		loaded.LogFormat = flagValues.logFormat
	}
	if flags.Changed("http-addr") {
		loaded.HTTPAddr = flagValues.httpAddr
	}

	cfg = loaded
	return nil
}

func setupLogger() zerolog.Logger {
	var logger zerolog.Logger

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set log format
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stderr).
			With().
			Timestamp().
			Logger()
	}

	return logger
}

// openStore connects to the configured store and makes sure the schema
// exists.
func openStore(ctx context.Context, logger zerolog.Logger) (store.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Database.Driver == "memory" {
		logger.Warn().Msg("using in-memory store, data is lost on exit")
		return memory.New(), nil
	}

	db, err := database.New(cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return db, nil
}

func newIngestService(s store.PriceStore, recorder ingest.Recorder, logger zerolog.Logger) *ingest.Service {
	provider := cpc.New(logger, cpc.Options{
		URL:               cfg.Feed.URL,
		Timeout:           cfg.Feed.Timeout,
		RequestsPerMinute: cfg.Feed.RequestsPerMinute,
	})
	return ingest.New(s, provider, cfg.IngestProducts(), logger, ingest.Options{
		Concurrency: cfg.Feed.Concurrency,
		Recorder:    recorder,
	})
}

func newResolver(s store.PriceReader, logger zerolog.Logger) *pricing.Resolver {
	return pricing.NewResolver(s, cfg.ProductNames(), logger)
}

func newGarage(s store.Store, logger zerolog.Logger) *garage.Service {
	return garage.NewService(s, newResolver(s, logger), logger)
}
