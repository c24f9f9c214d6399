package storage

import (
	"context"
	"time"

	"github.com/yourname/timetracker/internal"
)

// EntryRepository is the durable truth for time entries. Implementations
// must enforce the one-running-entry-per-user invariant atomically:
// StartEntry for a user with a running entry fails with
// internal.ErrTimerConflict even under concurrent calls.
type EntryRepository interface {
	StartEntry(ctx context.Context, entry *internal.TimeEntry) error

	// FinishEntry transitions a running entry to stopped. The duration is
	// computed (and possibly rounded) by the caller. Fails with
	// internal.ErrTimerNotRunning when the entry is already stopped, as an
	// atomic check-and-update.
	FinishEntry(ctx context.Context, entryID string, endTime time.Time, duration time.Duration) error

	GetEntry(ctx context.Context, entryID string) (*internal.TimeEntry, error)

	// GetActiveEntry returns the user's running entry, or (nil, nil) when
	// none is running. This is the canonical read path.
	GetActiveEntry(ctx context.Context, userID string) (*internal.TimeEntry, error)

	// ListActiveEntries returns every running entry across all users.
	ListActiveEntries(ctx context.Context) ([]internal.TimeEntry, error)

	ListEntries(ctx context.Context, userID string, limit int) ([]internal.TimeEntry, error)
}

// NotificationRepository persists idle notifications. At most one pending
// (action=none) notification may exist per entry; CreatePending is a
// no-op when one already does.
type NotificationRepository interface {
	CreatePending(ctx context.Context, n *internal.IdleNotification) error
	HasPending(ctx context.Context, entryID string) (bool, error)
	ListPending(ctx context.Context, userID string) ([]internal.IdleNotification, error)
	GetNotification(ctx context.Context, id string) (*internal.IdleNotification, error)

	// ResolveNotification is a compare-and-set from pending to a terminal
	// action. Fails with internal.ErrNotificationActioned when the
	// notification already left the pending state.
	ResolveNotification(ctx context.Context, id string, action internal.NotificationAction, at time.Time) error
}

// PreferencesRepository is read-only here; preference management is out
// of scope. A missing record yields internal.DefaultPreferences.
type PreferencesRepository interface {
	GetPreferences(ctx context.Context, userID string) (*internal.TimePreferences, error)
}

type UserRepository interface {
	GetUserByToken(ctx context.Context, token string) (*internal.User, error)
}
