package state

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/reviewdash/internal/feedback"
)

// memBackend is an in-memory Persistence that can inject failures.
type memBackend struct {
	data      []byte
	marker    string
	saves     int
	loadErrs  []error
	saveErrs  []error
	loadCalls int
}

func (m *memBackend) Load(context.Context) ([]byte, error) {
	m.loadCalls++
	if len(m.loadErrs) > 0 {
		err := m.loadErrs[0]
		m.loadErrs = m.loadErrs[1:]
		return nil, err
	}
	return m.data, nil
}

func (m *memBackend) Save(_ context.Context, snap feedback.Snapshot) error {
	if len(m.saveErrs) > 0 {
		err := m.saveErrs[0]
		m.saveErrs = m.saveErrs[1:]
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	m.data = data
	m.saves++
	return nil
}

func (m *memBackend) Reset(context.Context) error {
	m.data = nil
	return nil
}

func (m *memBackend) IngestMarker(context.Context) (string, error) { return m.marker, nil }

func (m *memBackend) SetIngestMarker(_ context.Context, marker string) error {
	m.marker = marker
	return nil
}

func newTestStore(b *memBackend) *Store {
	return NewStore(b, canonical,
		WithRetry(RetryPolicy{Timeout: time.Second, Retries: 1}),
		WithNormalizer(testNormalizer()),
	)
}

func TestStoreLoadEmptyReturnsCanonical(t *testing.T) {
	s := newTestStore(&memBackend{})
	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Items, 12)
}

func TestStorePatchPersists(t *testing.T) {
	b := &memBackend{}
	s := newTestStore(b)
	ctx := context.Background()

	first, err := s.Load(ctx)
	require.NoError(t, err)
	id := first.Items[0].ID

	snap, found, err := s.PatchItem(ctx, id, Patch{"status": feedback.StatusApproved})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, feedback.StatusApproved, snap.Items[0].Status)
	assert.Equal(t, 1, b.saves)

	reloaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, feedback.StatusApproved, reloaded.Items[0].Status)
}

func TestStorePatchUnknownDoesNotSave(t *testing.T) {
	b := &memBackend{}
	s := newTestStore(b)

	_, found, err := s.PatchItem(context.Background(), "nope", Patch{"status": "Approved"})
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, b.saves)
}

func TestStoreRetriesTransientLoadOnce(t *testing.T) {
	b := &memBackend{loadErrs: []error{context.DeadlineExceeded}}
	s := newTestStore(b)

	_, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, b.loadCalls)
}

func TestStoreSurfacesPersistentFailure(t *testing.T) {
	boom := errors.New("disk full")
	b := &memBackend{saveErrs: []error{boom}}
	s := newTestStore(b)

	_, err := s.SetBrandPrimary(context.Background(), "#000000")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, b.saves)
}

func TestStoreGivesUpAfterRetry(t *testing.T) {
	b := &memBackend{loadErrs: []error{context.DeadlineExceeded, context.DeadlineExceeded, nil}}
	s := newTestStore(b)

	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, b.loadCalls)
}

func TestStoreIngestSkipsSeenMarker(t *testing.T) {
	b := &memBackend{}
	s := newTestStore(b)
	ctx := context.Background()
	batch := []feedback.Item{{ID: "GR-1", CreatedAt: fixedNow, Status: feedback.StatusPending}}

	snap, r, err := s.Ingest(ctx, batch, "2026-02-11T08:00:00Z", MergeOptions{DropPrefix: "IT-"})
	require.NoError(t, err)
	assert.False(t, r.Skipped)
	assert.Equal(t, 1, r.Added)
	assert.Equal(t, 12, r.Removed)
	assert.Len(t, snap.Items, 1)

	_, r, err = s.Ingest(ctx, batch, "2026-02-11T08:00:00Z", MergeOptions{})
	require.NoError(t, err)
	assert.True(t, r.Skipped)
	assert.Equal(t, 1, b.saves)
}

func TestStoreReset(t *testing.T) {
	b := &memBackend{data: []byte(`{"items":[]}`)}
	s := newTestStore(b)

	snap, err := s.Reset(context.Background())
	require.NoError(t, err)
	assert.Nil(t, b.data)
	assert.Len(t, snap.Items, 12)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(errors.New("syntax error")))
	assert.False(t, IsTransient(nil))
}
