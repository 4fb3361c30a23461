package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andygrunwald/fuel-tracker/internal/models"
	"github.com/andygrunwald/fuel-tracker/internal/store"
)

const priceColumns = "id, product_name, price, effective_date, fetched_at"

// LatestEffectiveDate returns the most recent effective date over all products.
func (d *DB) LatestEffectiveDate(ctx context.Context) (time.Time, bool, error) {
	var latest sql.NullTime
	err := d.db.QueryRowContext(ctx, "SELECT MAX(effective_date) FROM price_observations").Scan(&latest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("querying latest effective date: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return models.DateOf(latest.Time), true, nil
}

// CurrentPrice returns the price in effect for productName on asOf.
func (d *DB) CurrentPrice(ctx context.Context, productName string, asOf time.Time) (models.PriceObservation, bool, error) {
	query := rebind(d.dialect, `
		SELECT `+priceColumns+`
		FROM price_observations
		WHERE product_name = ? AND effective_date <= ?
		ORDER BY effective_date DESC
		LIMIT 1
	`)
	return d.queryOnePrice(ctx, query, productName, dateArg(asOf))
}

// NextPrice returns the first price for productName effective after after.
func (d *DB) NextPrice(ctx context.Context, productName string, after time.Time) (models.PriceObservation, bool, error) {
	query := rebind(d.dialect, `
		SELECT `+priceColumns+`
		FROM price_observations
		WHERE product_name = ? AND effective_date > ?
		ORDER BY effective_date ASC
		LIMIT 1
	`)
	return d.queryOnePrice(ctx, query, productName, dateArg(after))
}

// ListPrices returns the prices for productName between from and to, oldest first.
func (d *DB) ListPrices(ctx context.Context, productName string, from, to time.Time) ([]models.PriceObservation, error) {
	query := rebind(d.dialect, `
		SELECT `+priceColumns+`
		FROM price_observations
		WHERE product_name = ? AND effective_date >= ? AND effective_date <= ?
		ORDER BY effective_date ASC
	`)
	rows, err := d.db.QueryContext(ctx, query, productName, dateArg(from), dateArg(to))
	if err != nil {
		return nil, fmt.Errorf("querying prices: %w", err)
	}
	defer rows.Close()

	var out []models.PriceObservation
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating prices: %w", err)
	}
	return out, nil
}

// CountPrices returns the total number of price records.
func (d *DB) CountPrices(ctx context.Context) (int64, error) {
	var count int64
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM price_observations").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting prices: %w", err)
	}
	return count, nil
}

// InPriceTx runs fn inside a database transaction.
func (d *DB) InPriceTx(ctx context.Context, fn func(store.PriceWriter) error) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		return fn(&priceTx{q: tx, dialect: d.dialect})
	})
}

// RecordSyncRun stores the outcome of one ingestion cycle.
func (d *DB) RecordSyncRun(ctx context.Context, run models.SyncRun) error {
	query := rebind(d.dialect, `
		INSERT INTO sync_runs (id, started_at, finished_at, fetched, inserted, skipped, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := d.db.ExecContext(ctx, query,
		run.ID.String(), run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.Fetched, run.Inserted, run.Skipped, run.Failed,
	)
	if err != nil {
		return fmt.Errorf("inserting sync run: %w", err)
	}
	return nil
}

// LastSyncRun returns the most recently finished ingestion cycle.
func (d *DB) LastSyncRun(ctx context.Context) (models.SyncRun, bool, error) {
	query := `
		SELECT id, started_at, finished_at, fetched, inserted, skipped, failed
		FROM sync_runs
		ORDER BY finished_at DESC
		LIMIT 1
	`
	var run models.SyncRun
	err := d.db.QueryRowContext(ctx, query).Scan(
		&run.ID, &run.StartedAt, &run.FinishedAt,
		&run.Fetched, &run.Inserted, &run.Skipped, &run.Failed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SyncRun{}, false, nil
	}
	if err != nil {
		return models.SyncRun{}, false, fmt.Errorf("querying last sync run: %w", err)
	}
	return run, true, nil
}

func (d *DB) queryOnePrice(ctx context.Context, query string, args ...any) (models.PriceObservation, bool, error) {
	p, err := scanPrice(d.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.PriceObservation{}, false, nil
	}
	if err != nil {
		return models.PriceObservation{}, false, err
	}
	return p, true, nil
}

type priceTx struct {
	q       queryer
	dialect dialect
}

// ExistsForDate checks if a price already exists for the given product and date.
func (tx *priceTx) ExistsForDate(ctx context.Context, productName string, date time.Time) (bool, error) {
	query := rebind(tx.dialect, `
		SELECT COUNT(*) FROM price_observations
		WHERE product_name = ? AND effective_date = ?
	`)
	var count int
	if err := tx.q.QueryRowContext(ctx, query, productName, dateArg(date)).Scan(&count); err != nil {
		return false, fmt.Errorf("checking price existence: %w", err)
	}
	return count > 0, nil
}

// InsertPrice inserts a new price observation.
func (tx *priceTx) InsertPrice(ctx context.Context, p models.PriceObservation) error {
	query := rebind(tx.dialect, `
		INSERT INTO price_observations (`+priceColumns+`)
		VALUES (?, ?, ?, ?, ?)
	`)
	_, err := tx.q.ExecContext(ctx, query,
		p.ID.String(), p.ProductName, p.Price.String(), dateArg(p.EffectiveDate), p.FetchedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting price: %w", err)
	}
	return nil
}

func scanPrice(row rowScanner) (models.PriceObservation, error) {
	var p models.PriceObservation
	if err := row.Scan(&p.ID, &p.ProductName, &p.Price, &p.EffectiveDate, &p.FetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scanning price: %w", err)
	}
	p.EffectiveDate = models.DateOf(p.EffectiveDate)
	return p, nil
}

// dateArg formats t as a calendar date for DATE columns.
func dateArg(t time.Time) string {
	return models.DateOf(t).Format(models.DateLayout)
}
