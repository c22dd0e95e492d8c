package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Migrate creates the schema if it does not exist yet. Money columns hold
// amounts multiplied by 10^5; created_at holds epoch seconds.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == DriverPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			barcode     TEXT,
			price_minor BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_barcode ON products (barcode)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id         TEXT PRIMARY KEY,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions (created_at)`,
		`CREATE TABLE IF NOT EXISTS transaction_items (
			id                    ` + serial + `,
			transaction_id        TEXT NOT NULL REFERENCES transactions (id) ON DELETE CASCADE,
			product_id            TEXT REFERENCES products (id) ON DELETE SET NULL,
			quantity              INTEGER NOT NULL CHECK (quantity > 0),
			unit_price_minor      BIGINT NOT NULL,
			discount_amount_minor BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transaction_items_transaction_id ON transaction_items (transaction_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transaction_items_product_id ON transaction_items (product_id)`,
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("running migration: %w", err)
		}
	}

	return nil
}
