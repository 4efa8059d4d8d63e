package state

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/TobiSchelling/reviewdash/internal/feedback"
)

// Persistence is the contract a storage backend fulfils.
type Persistence interface {
	// Load returns the last saved payload, or nil when nothing has been saved.
	Load(ctx context.Context) ([]byte, error)
	// Save stores the full snapshot atomically.
	Save(ctx context.Context, snap feedback.Snapshot) error
	// Reset clears the stored snapshot.
	Reset(ctx context.Context) error
}

// Marker is implemented by backends that remember which scraped batch was
// ingested last.
type Marker interface {
	IngestMarker(ctx context.Context) (string, error)
	SetIngestMarker(ctx context.Context, marker string) error
}

// Store runs every operation as load, mutate, save against a backend. It
// keeps no snapshot between calls.
type Store struct {
	backend   Persistence
	canonical func() feedback.Snapshot
	retry     RetryPolicy
	norm      Normalizer
}

// Option configures a Store.
type Option func(*Store)

// WithRetry sets the timeout and retry policy for backend calls.
func WithRetry(p RetryPolicy) Option {
	return func(s *Store) { s.retry = p }
}

// WithNormalizer sets the clock and id source used during reconciliation.
func WithNormalizer(n Normalizer) Option {
	return func(s *Store) { s.norm = n }
}

// NewStore creates a Store. canonical is called whenever a fresh default
// snapshot is needed.
func NewStore(backend Persistence, canonical func() feedback.Snapshot, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		canonical: canonical,
		retry:     DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the reconciled current snapshot. Backend failures are
// returned; malformed payloads fall back to the canonical snapshot.
func (s *Store) Load(ctx context.Context) (feedback.Snapshot, error) {
	var raw []byte
	err := s.retry.Do(ctx, "load", func(ctx context.Context) error {
		var err error
		raw, err = s.backend.Load(ctx)
		return err
	})
	if err != nil {
		return feedback.Snapshot{}, fmt.Errorf("loading state: %w", err)
	}
	if raw == nil {
		return s.canonical(), nil
	}
	return s.norm.Reconcile(raw, s.canonical()), nil
}

// Save persists snap.
func (s *Store) Save(ctx context.Context, snap feedback.Snapshot) error {
	err := s.retry.Do(ctx, "save", func(ctx context.Context) error {
		return s.backend.Save(ctx, snap)
	})
	if err != nil {
		return fmt.Errorf("saving state: %w", err)
	}
	return nil
}

// PatchItem applies patch to one item and persists the result. When the id is
// unknown the loaded snapshot is returned with found=false and nothing is
// written.
func (s *Store) PatchItem(ctx context.Context, id string, patch Patch) (snap feedback.Snapshot, found bool, err error) {
	snap, err = s.Load(ctx)
	if err != nil {
		return snap, false, err
	}
	next, found := PatchItem(snap, id, patch)
	if !found {
		return snap, false, nil
	}
	if err := s.Save(ctx, next); err != nil {
		return snap, true, err
	}
	return next, true, nil
}

// SetBrandPrimary replaces the brand color and persists the result.
func (s *Store) SetBrandPrimary(ctx context.Context, color string) (feedback.Snapshot, error) {
	snap, err := s.Load(ctx)
	if err != nil {
		return snap, err
	}
	next, err := SetBrandPrimary(snap, color)
	if err != nil {
		return snap, err
	}
	if err := s.Save(ctx, next); err != nil {
		return snap, err
	}
	return next, nil
}

// Reset clears stored state and returns a freshly generated snapshot.
func (s *Store) Reset(ctx context.Context) (feedback.Snapshot, error) {
	err := s.retry.Do(ctx, "reset", func(ctx context.Context) error {
		return s.backend.Reset(ctx)
	})
	if err != nil {
		return feedback.Snapshot{}, fmt.Errorf("resetting state: %w", err)
	}
	return s.canonical(), nil
}

// IngestResult reports the outcome of Ingest.
type IngestResult struct {
	MergeResult
	Skipped bool
}

// Ingest merges a scraped batch. When marker is non-empty and equals the
// marker stored by the previous ingest, the batch is skipped.
func (s *Store) Ingest(ctx context.Context, batch []feedback.Item, marker string, opts MergeOptions) (feedback.Snapshot, IngestResult, error) {
	var r IngestResult
	m, hasMarker := s.backend.(Marker)

	if hasMarker && marker != "" {
		var last string
		err := s.retry.Do(ctx, "read ingest marker", func(ctx context.Context) error {
			var err error
			last, err = m.IngestMarker(ctx)
			return err
		})
		if err != nil {
			return feedback.Snapshot{}, r, fmt.Errorf("reading ingest marker: %w", err)
		}
		if last == marker {
			log.Printf("Batch %s already ingested", marker)
			r.Skipped = true
			snap, err := s.Load(ctx)
			return snap, r, err
		}
	}

	snap, err := s.Load(ctx)
	if err != nil {
		return snap, r, err
	}
	next, mr := MergeItems(snap, batch, opts)
	r.MergeResult = mr
	if err := s.Save(ctx, next); err != nil {
		return snap, r, err
	}

	if hasMarker && marker != "" {
		err := s.retry.Do(ctx, "write ingest marker", func(ctx context.Context) error {
			return m.SetIngestMarker(ctx, marker)
		})
		if err != nil {
			return next, r, fmt.Errorf("writing ingest marker: %w", err)
		}
	}
	return next, r, nil
}

// Now returns the store's clock reading.
func (s *Store) Now() time.Time {
	return s.norm.now()
}
