package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// getSchemaVersion reads PRAGMA user_version from a SQLite database.
func getSchemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// schemaVersion returns the applied version for either dialect. Postgres has
// no user_version, so it keeps the number in a one-row table.
func (db *DB) schemaVersion(ctx context.Context) (int, error) {
	if db.dialect == dialectSQLite {
		return getSchemaVersion(db.conn)
	}
	if _, err := db.conn.ExecContext(ctx,
		"CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)"); err != nil {
		return 0, fmt.Errorf("creating schema_version: %w", err)
	}
	var version int
	err := db.conn.QueryRowContext(ctx, "SELECT version FROM schema_version").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

func (db *DB) setSchemaVersion(ctx context.Context, version int) error {
	if db.dialect == dialectSQLite {
		// Set user_version outside the transaction (modernc/sqlite requirement).
		_, err := db.conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version))
		return err
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_version"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES ($1)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// migrate brings the database schema up to the latest version.
func migrate(ctx context.Context, db *DB) error {
	current, err := db.schemaVersion(ctx)
	if err != nil {
		return err
	}

	latest := latestVersion()
	if current >= latest {
		return nil
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		log.Printf("applying %s migration %d: %s", db.dialect, m.Version, m.Description)

		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if err := m.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		// Safe: if we crash here, the idempotent DDL lets the migration re-run.
		if err := db.setSchemaVersion(ctx, m.Version); err != nil {
			return fmt.Errorf("setting version %d: %w", m.Version, err)
		}
	}

	return nil
}
