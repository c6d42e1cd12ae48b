package sqlite

import "database/sql"

func RunMigrations(db *sql.DB) error {
	stmts := []string{

		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS orders (
			ref TEXT PRIMARY KEY,
			amount TEXT NOT NULL,
			confirmations INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			currency_id TEXT NOT NULL,
			timeout_hours INTEGER NOT NULL DEFAULT 0,
			to_address TEXT NOT NULL,
			payment_data TEXT NOT NULL DEFAULT '{}',
			payment_id INTEGER NOT NULL DEFAULT 0,
			attempts INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL
		);`,

		`CREATE INDEX IF NOT EXISTS orders_payment_id ON orders (payment_id);`,

		`CREATE TABLE IF NOT EXISTS outbox_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload BLOB NOT NULL,
			published INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
