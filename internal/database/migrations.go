package database

import "fmt"

// schema is the full store layout. Decimal fields are stored as TEXT so
// values round-trip through shopspring/decimal without precision loss.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS portfolios (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT NOT NULL,
		type       TEXT NOT NULL DEFAULT 'taxable',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS holdings (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		portfolio_id  INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
		symbol        TEXT NOT NULL,
		quantity      TEXT NOT NULL DEFAULT '0',
		current_price TEXT NOT NULL DEFAULT '0',
		current_value TEXT NOT NULL DEFAULT '0',
		cost_basis    TEXT NOT NULL DEFAULT '0',
		asset_type    TEXT NOT NULL DEFAULT '',
		sector        TEXT NOT NULL DEFAULT '',
		region        TEXT NOT NULL DEFAULT '',
		last_updated  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(portfolio_id, symbol)
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		portfolio_id INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
		symbol       TEXT NOT NULL,
		type         TEXT NOT NULL,
		quantity     TEXT NOT NULL DEFAULT '0',
		price        TEXT NOT NULL DEFAULT '0',
		fees         TEXT NOT NULL DEFAULT '0',
		date         TIMESTAMP NOT NULL,
		created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS target_models (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL,
		allocations TEXT NOT NULL DEFAULT '[]',
		is_default  INTEGER NOT NULL DEFAULT 0,
		created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS value_snapshots (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		date        DATE NOT NULL UNIQUE,
		total_value TEXT NOT NULL DEFAULT '0'
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_holdings_portfolio ON holdings(portfolio_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_portfolio ON transactions(portfolio_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date)`,
}

// Migrate applies the embedded schema. Statements are idempotent so the
// call is safe on every startup.
func (db *DB) Migrate() error {
	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	return nil
}
