package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourname/timetracker/internal"
	"github.com/yourname/timetracker/internal/storage"
)

// brokenBackend fails every operation, simulating a cache outage.
type brokenBackend struct{}

var errBackendDown = errors.New("backend down")

func (brokenBackend) Get(ctx context.Context, userID string) (*Snapshot, error) {
	return nil, errBackendDown
}
func (brokenBackend) Set(ctx context.Context, userID string, snap *Snapshot, ttl time.Duration) error {
	return errBackendDown
}
func (brokenBackend) Delete(ctx context.Context, userID string) error { return errBackendDown }
func (brokenBackend) Keys(ctx context.Context) ([]string, error)      { return nil, errBackendDown }

func newFileStore(t *testing.T) *storage.FileStorage {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFileStorage(
		filepath.Join(dir, "users.json"),
		filepath.Join(dir, "entries.json"),
		filepath.Join(dir, "notifications.json"),
		filepath.Join(dir, "preferences.json"),
		internal.NopLogger{},
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func runningEntry(userID string) *internal.TimeEntry {
	now := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	return &internal.TimeEntry{
		ID: "e1", UserID: userID, TaskID: "t1", TaskName: "Task",
		StartTime: now, IsRunning: true, CreatedAt: now,
	}
}

func TestGetFallsBackToStoreWhenBackendDown(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)
	require.NoError(t, store.StartEntry(ctx, runningEntry("u1")))

	c := NewActiveTimerCache(brokenBackend{}, store, time.Hour, internal.NopLogger{})

	snap, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "e1", snap.EntryID)
	assert.Equal(t, "Task", snap.TaskName)

	// No running entry: still no error, just a nil snapshot.
	snap, err = c.Get(ctx, "u2")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestWritesAreFireAndForgetWhenBackendDown(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)
	c := NewActiveTimerCache(brokenBackend{}, store, time.Hour, internal.NopLogger{})

	// Neither call may panic or surface the backend failure.
	c.SetEntry(ctx, runningEntry("u1"))
	c.Invalidate(ctx, "u1")
}

func TestGetServesCachedSnapshotWithoutStore(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)
	backend := NewMemoryBackend()
	c := NewActiveTimerCache(backend, store, time.Hour, internal.NopLogger{})

	entry := runningEntry("u1")
	require.NoError(t, store.StartEntry(ctx, entry))
	c.SetEntry(ctx, entry)

	// Stop behind the cache's back; the stale hit is served until
	// invalidation or reconciliation, proving the backend was used.
	require.NoError(t, store.FinishEntry(ctx, entry.ID, entry.StartTime.Add(time.Minute), time.Minute))

	snap, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, entry.ID, snap.EntryID)

	c.Invalidate(ctx, "u1")
	snap, err = c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestMissRepopulatesBackend(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)
	backend := NewMemoryBackend()
	c := NewActiveTimerCache(backend, store, time.Hour, internal.NopLogger{})

	require.NoError(t, store.StartEntry(ctx, runningEntry("u1")))

	snap, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, snap)

	cached, err := backend.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, snap.EntryID, cached.EntryID)
}

func TestMemoryBackendTTLExpiry(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	snap := &Snapshot{EntryID: "e1", TaskID: "t", TaskName: "n", StartTime: time.Now()}
	require.NoError(t, backend.Set(ctx, "u1", snap, 10*time.Millisecond))

	got, err := backend.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "e1", got.EntryID)

	time.Sleep(20 * time.Millisecond)
	_, err = backend.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrMiss)

	keys, err := backend.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
