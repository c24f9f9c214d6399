package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is the deliberate miss signal: the backend answered and has no
// snapshot for the user. Any other error means the backend itself failed.
var ErrMiss = errors.New("cache miss")

// Snapshot is the minimal view of a running timer kept in the cache.
type Snapshot struct {
	EntryID   string    `json:"entry_id"`
	TaskID    string    `json:"task_id"`
	TaskName  string    `json:"task_name"`
	StartTime time.Time `json:"start_time"`
}

// Backend is a minimal key/value store for active-timer snapshots. Keys
// are user ids. Implementations must honor the TTL so a crashed writer
// cannot leave a stale snapshot forever.
type Backend interface {
	Get(ctx context.Context, userID string) (*Snapshot, error)
	Set(ctx context.Context, userID string, snap *Snapshot, ttl time.Duration) error
	Delete(ctx context.Context, userID string) error

	// Keys lists user ids currently holding a snapshot. Used only by the
	// reconciler.
	Keys(ctx context.Context) ([]string, error)
}
