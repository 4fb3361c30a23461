package database

import (
	"time"

	"github.com/go-sql-driver/mysql"
)

func init() {
	dialects["mysql"] = dialect{
		driver:     "mysql",
		prepareDSN: prepareMySQLDSN,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS price_observations (
				id VARCHAR(36) PRIMARY KEY,
				product_name VARCHAR(64) NOT NULL,
				price DECIMAL(10, 3) NOT NULL,
				effective_date DATE NOT NULL,
				fetched_at DATETIME(6) NOT NULL,
				created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
				INDEX idx_price_observations_product_date (product_name, effective_date)
			) DEFAULT CHARSET = utf8mb4`,
			`CREATE TABLE IF NOT EXISTS sync_runs (
				id VARCHAR(36) PRIMARY KEY,
				started_at DATETIME(6) NOT NULL,
				finished_at DATETIME(6) NOT NULL,
				fetched INT NOT NULL,
				inserted INT NOT NULL,
				skipped INT NOT NULL,
				failed INT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS vehicles (
				id VARCHAR(36) PRIMARY KEY,
				name VARCHAR(128) NOT NULL,
				vehicle_type VARCHAR(32) NOT NULL,
				default_fuel_type VARCHAR(32) NOT NULL,
				created_at DATETIME(6) NOT NULL
			) DEFAULT CHARSET = utf8mb4`,
			`CREATE TABLE IF NOT EXISTS refueling_records (
				id VARCHAR(36) PRIMARY KEY,
				vehicle_id VARCHAR(36) NOT NULL,
				seq BIGINT NOT NULL,
				refueled_at DATETIME(6) NOT NULL,
				odometer DOUBLE PRECISION NOT NULL,
				fuel_amount DOUBLE PRECISION NOT NULL,
				cost DOUBLE PRECISION NOT NULL,
				fuel_type VARCHAR(32) NOT NULL,
				driven_distance DOUBLE PRECISION NOT NULL DEFAULT 0,
				average_consumption DOUBLE PRECISION NOT NULL DEFAULT 0,
				cost_per_distance DOUBLE PRECISION NOT NULL DEFAULT 0,
				created_at DATETIME(6) NOT NULL,
				INDEX idx_refueling_records_vehicle (vehicle_id, refueled_at, seq),
				CONSTRAINT fk_refueling_records_vehicle FOREIGN KEY (vehicle_id)
					REFERENCES vehicles (id) ON DELETE CASCADE
			) DEFAULT CHARSET = utf8mb4`,
		},
	}
}

// prepareMySQLDSN makes sure DATE and DATETIME columns scan into time.Time
// in UTC and that UPDATE reports matched rather than changed rows.
func prepareMySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}
