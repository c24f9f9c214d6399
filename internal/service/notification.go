package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourname/timetracker/internal"
	"github.com/yourname/timetracker/internal/realtime"
	"github.com/yourname/timetracker/internal/storage"
)

type NotificationActionRequest struct {
	Action string `json:"action" validate:"required,oneof=keep discard stop_at_idle"`
}

func ValidateNotificationActionRequest(body *NotificationActionRequest) error {
	return validate.Struct(body)
}

// PendingNotification is the polling view of an unresolved idle episode,
// joined with the entry's task display info.
type PendingNotification struct {
	ID            string    `json:"id"`
	EntryID       string    `json:"entry_id"`
	TaskID        string    `json:"task_id"`
	TaskName      string    `json:"task_name"`
	IdleStartTime time.Time `json:"idle_start_time"`
	CreatedAt     time.Time `json:"created_at"`
}

// NotificationService applies user decisions to idle notifications. The
// pending→terminal transition is a storage-level compare-and-set, so a
// duplicate submission loses with internal.ErrNotificationActioned and
// has no side effect.
type NotificationService struct {
	notifications storage.NotificationRepository
	entries       storage.EntryRepository
	timers        *TimerService
	logger        internal.Logger
}

func NewNotificationService(notifications storage.NotificationRepository, entries storage.EntryRepository, timers *TimerService, logger internal.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		entries:       entries,
		timers:        timers,
		logger:        logger,
	}
}

func (s *NotificationService) ListPending(ctx context.Context, userID string) ([]PendingNotification, error) {
	pending, err := s.notifications.ListPending(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]PendingNotification, 0, len(pending))
	for _, n := range pending {
		view := PendingNotification{
			ID:            n.ID,
			EntryID:       n.EntryID,
			IdleStartTime: n.IdleStartTime,
			CreatedAt:     n.CreatedAt,
		}
		entry, err := s.entries.GetEntry(ctx, n.EntryID)
		if err != nil {
			s.logger.Warnf("pending notification %s references missing entry %s: %v", n.ID, n.EntryID, err)
		} else {
			view.TaskID = entry.TaskID
			view.TaskName = entry.TaskName
		}
		out = append(out, view)
	}
	return out, nil
}

// Apply resolves a pending notification with the actor's decision and
// returns the entry in its resulting state. The notification is claimed
// first (CAS); the entry mutation follows. If the entry was already
// stopped by other means, the recorded decision stands and the entry is
// returned as found.
func (s *NotificationService) Apply(ctx context.Context, actor *internal.User, notificationID string, action internal.NotificationAction, now time.Time) (*internal.TimeEntry, error) {
	if !action.Terminal() {
		return nil, fmt.Errorf("invalid notification action %q", action)
	}

	n, err := s.notifications.GetNotification(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != actor.ID {
		return nil, internal.ErrNotOwned
	}

	if err := s.notifications.ResolveNotification(ctx, notificationID, action, now); err != nil {
		return nil, err
	}

	entry, err := s.entries.GetEntry(ctx, n.EntryID)
	if err != nil {
		return nil, err
	}

	switch action {
	case internal.ActionKept:
		// Decision recorded, timer untouched.
		return entry, nil
	case internal.ActionDiscarded:
		return s.finishAtIdle(ctx, entry, n.IdleStartTime, false, realtime.TimerDiscarded)
	case internal.ActionStoppedAtIdle:
		return s.finishAtIdle(ctx, entry, n.IdleStartTime, true, realtime.TimerStopped)
	}
	return entry, nil
}

func (s *NotificationService) finishAtIdle(ctx context.Context, entry *internal.TimeEntry, idleStart time.Time, applyRounding bool, eventType realtime.EventType) (*internal.TimeEntry, error) {
	updated, err := s.timers.finish(ctx, entry, idleStart, applyRounding, eventType)
	if errors.Is(err, internal.ErrTimerNotRunning) {
		// Stopped manually in the meantime; the decision still stands.
		s.logger.Infof("entry %s already stopped, idle resolution recorded without mutation", entry.ID)
		return entry, nil
	}
	return updated, err
}
