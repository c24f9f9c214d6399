package cache

import (
	"context"
	"errors"
	"time"

	"github.com/yourname/timetracker/internal"
	"github.com/yourname/timetracker/internal/storage"
)

// ActiveTimerCache is the fast read path for "is a timer running". The
// backend is strictly a latency optimization: every backend fault falls
// back to the entry repository and is logged, never surfaced. Writes are
// fire-and-forget for the same reason.
type ActiveTimerCache struct {
	backend Backend
	entries storage.EntryRepository
	ttl     time.Duration
	logger  internal.Logger
}

func NewActiveTimerCache(backend Backend, entries storage.EntryRepository, ttl time.Duration, logger internal.Logger) *ActiveTimerCache {
	return &ActiveTimerCache{backend: backend, entries: entries, ttl: ttl, logger: logger}
}

// Get returns the user's running entry snapshot, or nil when nothing is
// running. A cached hit is served without touching durable storage; a
// miss or backend failure reads through to the repository and, on a hit,
// repopulates the backend.
func (c *ActiveTimerCache) Get(ctx context.Context, userID string) (*Snapshot, error) {
	snap, err := c.backend.Get(ctx, userID)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, ErrMiss) {
		c.logger.Warnf("cache backend read failed for user %s, falling back to store: %v", userID, err)
	}

	entry, err := c.entries.GetActiveEntry(ctx, userID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	snap = &Snapshot{
		EntryID:   entry.ID,
		TaskID:    entry.TaskID,
		TaskName:  entry.TaskName,
		StartTime: entry.StartTime,
	}
	c.SetEntry(ctx, entry)
	return snap, nil
}

// SetEntry writes through the snapshot for a freshly started entry.
func (c *ActiveTimerCache) SetEntry(ctx context.Context, entry *internal.TimeEntry) {
	snap := &Snapshot{
		EntryID:   entry.ID,
		TaskID:    entry.TaskID,
		TaskName:  entry.TaskName,
		StartTime: entry.StartTime,
	}
	if err := c.backend.Set(ctx, entry.UserID, snap, c.ttl); err != nil {
		c.logger.Warnf("cache backend write failed for user %s: %v", entry.UserID, err)
	}
}

// Invalidate drops the user's snapshot after stop/discard/edit.
func (c *ActiveTimerCache) Invalidate(ctx context.Context, userID string) {
	if err := c.backend.Delete(ctx, userID); err != nil {
		c.logger.Warnf("cache backend delete failed for user %s: %v", userID, err)
	}
}

// Keys exposes the backend's tracked users to the reconciler.
func (c *ActiveTimerCache) Keys(ctx context.Context) ([]string, error) {
	return c.backend.Keys(ctx)
}

// Peek reads the backend without the store fallback. Reconciler-only.
func (c *ActiveTimerCache) Peek(ctx context.Context, userID string) (*Snapshot, error) {
	return c.backend.Get(ctx, userID)
}
