package database

import (
	"context"
	"database/sql"
	"fmt"
)

// GetSetting returns a stored setting, or nil if it is not set.
func (db *DB) GetSetting(ctx context.Context, key string) (*string, error) {
	var v string
	err := db.conn.QueryRowContext(ctx, db.rebind("SELECT value FROM settings WHERE key = ?"), key).Scan(&v)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading setting %s: %w", key, err)
	}
	return &v, nil
}

// SetSetting stores a setting, replacing any previous value.
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := db.setSetting(ctx, tx, key, value); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *DB) setSetting(ctx context.Context, tx *sql.Tx, key, value string) error {
	err := db.exec(ctx, tx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}

// IngestMarker returns the scrapedAt stamp of the last ingested batch, or ""
// if nothing was ingested.
func (db *DB) IngestMarker(ctx context.Context) (string, error) {
	v, err := db.GetSetting(ctx, keyIngestMarker)
	if err != nil || v == nil {
		return "", err
	}
	return *v, nil
}

// SetIngestMarker records the scrapedAt stamp of an ingested batch.
func (db *DB) SetIngestMarker(ctx context.Context, marker string) error {
	return db.SetSetting(ctx, keyIngestMarker, marker)
}
