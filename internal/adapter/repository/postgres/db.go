package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=capflow sslmode=disable"
func NewDB(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// EnsureSchema creates the tables the repositories need
func (db *DB) EnsureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS counterparties (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			role TEXT NOT NULL,
			net_days INTEGER NOT NULL DEFAULT 0,
			discount_rate NUMERIC(9,6) NOT NULL DEFAULT 0,
			discount_days INTEGER NOT NULL DEFAULT 0,
			risk_score DOUBLE PRECISION NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS obligations (
			id TEXT PRIMARY KEY,
			direction TEXT NOT NULL,
			counterparty_id TEXT NOT NULL REFERENCES counterparties(id),
			amount NUMERIC(18,2) NOT NULL,
			issue_date DATE NOT NULL,
			due_date DATE NOT NULL,
			discount_rate NUMERIC(9,6),
			discount_by DATE,
			status TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_obligations_direction_due ON obligations(direction, due_date);
		CREATE INDEX IF NOT EXISTS idx_obligations_status ON obligations(status);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
