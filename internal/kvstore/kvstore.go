// Package kvstore persists the dashboard snapshot as a single JSON value in
// an embedded Badger database.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v3"

	"github.com/TobiSchelling/reviewdash/internal/feedback"
)

// Keys used in the store.
const (
	StateKey  = "reviewdash_state_v2"
	MarkerKey = "reviewdash_ingest_marker"
)

// Store is a Badger-backed snapshot store.
type Store struct {
	db *badger.DB
}

// Open opens or creates a Badger database in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a Badger database that lives only in memory.
func OpenInMemory() (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the stored snapshot JSON, or nil if none was saved.
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	return s.get(ctx, StateKey)
}

// Save writes snap under the state key.
func (s *Store) Save(ctx context.Context, snap feedback.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return s.set(ctx, StateKey, data)
}

// Reset deletes the stored snapshot. The ingest marker is kept.
func (s *Store) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(StateKey))
	})
}

// IngestMarker returns the marker of the last ingested batch.
func (s *Store) IngestMarker(ctx context.Context) (string, error) {
	v, err := s.get(ctx, MarkerKey)
	return string(v), err
}

// SetIngestMarker records the marker of an ingested batch.
func (s *Store) SetIngestMarker(ctx context.Context, marker string) error {
	return s.set(ctx, MarkerKey, []byte(marker))
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return out, nil
}

func (s *Store) set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}
