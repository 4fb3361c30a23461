package database

import (
	_ "github.com/jackc/pgx/v5/stdlib"
)

func init() {
	dialects["pgx"] = dialect{
		driver:   "pgx",
		numbered: true,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS price_observations (
				id VARCHAR(36) PRIMARY KEY,
				product_name VARCHAR(64) NOT NULL,
				price NUMERIC(10, 3) NOT NULL,
				effective_date DATE NOT NULL,
				fetched_at TIMESTAMPTZ NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_price_observations_product_date
				ON price_observations (product_name, effective_date)`,
			`CREATE TABLE IF NOT EXISTS sync_runs (
				id VARCHAR(36) PRIMARY KEY,
				started_at TIMESTAMPTZ NOT NULL,
				finished_at TIMESTAMPTZ NOT NULL,
				fetched INTEGER NOT NULL,
				inserted INTEGER NOT NULL,
				skipped INTEGER NOT NULL,
				failed INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS vehicles (
				id VARCHAR(36) PRIMARY KEY,
				name VARCHAR(128) NOT NULL,
				vehicle_type VARCHAR(32) NOT NULL,
				default_fuel_type VARCHAR(32) NOT NULL,
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS refueling_records (
				id VARCHAR(36) PRIMARY KEY,
				vehicle_id VARCHAR(36) NOT NULL REFERENCES vehicles (id) ON DELETE CASCADE,
				seq BIGINT NOT NULL,
				refueled_at TIMESTAMPTZ NOT NULL,
				odometer DOUBLE PRECISION NOT NULL,
				fuel_amount DOUBLE PRECISION NOT NULL,
				cost DOUBLE PRECISION NOT NULL,
				fuel_type VARCHAR(32) NOT NULL,
				driven_distance DOUBLE PRECISION NOT NULL DEFAULT 0,
				average_consumption DOUBLE PRECISION NOT NULL DEFAULT 0,
				cost_per_distance DOUBLE PRECISION NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_refueling_records_vehicle
				ON refueling_records (vehicle_id, refueled_at, seq)`,
		},
	}
}
