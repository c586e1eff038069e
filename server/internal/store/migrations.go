package store

import (
	"context"
	"fmt"
)

// migrations are applied in order; index i is schema version i+1. The SQL is
// portable between SQLite and PostgreSQL.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		psp TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('approved', 'declined', 'pending', 'timeout', 'error')),
		response_time_ms INTEGER NOT NULL CHECK (response_time_ms >= 0),
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tx_psp_created ON transactions(psp, created_at);
	CREATE INDEX IF NOT EXISTS idx_tx_status_created ON transactions(status, created_at);
	CREATE INDEX IF NOT EXISTS idx_tx_created ON transactions(created_at);`,

	`CREATE INDEX IF NOT EXISTS idx_tx_method_created ON transactions(payment_method, created_at);`,

	`ALTER TABLE transactions ADD COLUMN ingested_at TEXT NOT NULL DEFAULT '';`,
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return err
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for i := current; i < len(migrations); i++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("version %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind("INSERT INTO schema_version (version) VALUES (?)"), i+1); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v)
	return v, err
}
