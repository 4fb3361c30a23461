// Package database provides SQL storage for the fuel tracker. PostgreSQL
// (pgx) and MySQL are supported through database/sql.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-tracker/internal/store"
)

// dialect captures the differences between the supported databases.
type dialect struct {
	// driver is the database/sql driver name.
	driver string
	// numbered switches "?" placeholders to "$1", "$2", ...
	numbered bool
	// schema holds the idempotent DDL statements run by Migrate.
	schema []string
	// prepareDSN normalizes the connection string.
	prepareDSN func(dsn string) (string, error)
}

var dialects = map[string]dialect{}

// Drivers returns the names of the supported SQL drivers.
func Drivers() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	return names
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps the database connection and implements store.Store.
type DB struct {
	db      *sql.DB
	dialect dialect
	logger  zerolog.Logger
}

var _ store.Store = (*DB)(nil)

// New creates a new database connection for the given driver ("pgx" or
// "mysql").
func New(driver, dsn string, logger zerolog.Logger) (*DB, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if d.prepareDSN != nil {
		var err error
		dsn, err = d.prepareDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("preparing dsn: %w", err)
		}
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test the connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{
		db:      db,
		dialect: d,
		logger:  logger.With().Str("component", "database").Str("driver", driver).Logger(),
	}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks if the database connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate creates the tables and indexes if they do not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range d.dialect.schema {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("running migration: %w", err)
		}
	}
	d.logger.Info().Int("statements", len(d.dialect.schema)).Msg("schema migrated")
	return nil
}

// inTx runs fn inside a transaction and commits when fn succeeds.
func (d *DB) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			d.logger.Error().Err(rbErr).Msg("failed to roll back transaction")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// rebind rewrites "?" placeholders for dialects using numbered parameters.
func rebind(d dialect, query string) string {
	if !d.numbered {
		return query
	}
	var (
		b strings.Builder
		n int
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type rowScanner interface {
	Scan(dest ...any) error
}
