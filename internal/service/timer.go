package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/yourname/timetracker/internal"
	"github.com/yourname/timetracker/internal/cache"
	"github.com/yourname/timetracker/internal/realtime"
	"github.com/yourname/timetracker/internal/storage"
)

var validate = validator.New()

type StartTimerRequest struct {
	TaskID       string  `json:"task_id" validate:"required"`
	TaskName     string  `json:"task_name" validate:"required"`
	BillableRate float64 `json:"billable_rate" validate:"gte=0"`
	Currency     string  `json:"currency" validate:"omitempty,len=3"`
}

func ValidateStartTimerRequest(body *StartTimerRequest) error {
	return validate.Struct(body)
}

// TimerService orchestrates the timer lifecycle on top of the durable
// entry repository. The repository is the arbiter of the one-running
// invariant; cache writes and realtime publishes here are best-effort
// side effects that never fail the operation.
type TimerService struct {
	entries     storage.EntryRepository
	prefs       storage.PreferencesRepository
	cache       *cache.ActiveTimerCache
	broadcaster realtime.Broadcaster
	logger      internal.Logger
}

func NewTimerService(entries storage.EntryRepository, prefs storage.PreferencesRepository, activeCache *cache.ActiveTimerCache, broadcaster realtime.Broadcaster, logger internal.Logger) *TimerService {
	return &TimerService{
		entries:     entries,
		prefs:       prefs,
		cache:       activeCache,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Start creates a running entry for the user at now. Fails with
// internal.ErrTimerConflict when one is already running; the conflict
// check and the insert are a single atomic storage operation.
func (s *TimerService) Start(ctx context.Context, user *internal.User, body *StartTimerRequest, now time.Time) (*internal.TimeEntry, error) {
	entry := &internal.TimeEntry{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		TaskID:       body.TaskID,
		TaskName:     body.TaskName,
		StartTime:    now,
		IsRunning:    true,
		BillableRate: body.BillableRate,
		Currency:     body.Currency,
		CreatedAt:    now,
	}
	if err := s.entries.StartEntry(ctx, entry); err != nil {
		return nil, err
	}
	s.cache.SetEntry(ctx, entry)
	s.broadcaster.Publish(user.ID, realtime.Event{
		Type:      realtime.TimerStarted,
		EntryID:   entry.ID,
		TaskName:  entry.TaskName,
		StartTime: &entry.StartTime,
	})
	return entry, nil
}

// StopActive stops the user's running entry at the given instant,
// rounding the duration per the user's preferences.
func (s *TimerService) StopActive(ctx context.Context, user *internal.User, at time.Time) (*internal.TimeEntry, error) {
	entry, err := s.entries.GetActiveEntry(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, internal.ErrTimerNotRunning
	}
	return s.finish(ctx, entry, at, true, realtime.TimerStopped)
}

// DiscardActive truncates the user's running entry at the given instant
// without rounding; the removed segment is exact.
func (s *TimerService) DiscardActive(ctx context.Context, user *internal.User, at time.Time) (*internal.TimeEntry, error) {
	entry, err := s.entries.GetActiveEntry(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, internal.ErrTimerNotRunning
	}
	return s.finish(ctx, entry, at, false, realtime.TimerDiscarded)
}

// finish is the single stop path shared by live stop/discard and idle
// resolution. Rounding applies to the recorded duration only; end_time
// stays the exact instant.
func (s *TimerService) finish(ctx context.Context, entry *internal.TimeEntry, at time.Time, applyRounding bool, eventType realtime.EventType) (*internal.TimeEntry, error) {
	duration := at.Sub(entry.StartTime)
	if applyRounding {
		prefs, err := s.prefs.GetPreferences(ctx, entry.UserID)
		if err != nil {
			s.logger.Warnf("failed to load preferences for user %s, skipping rounding: %v", entry.UserID, err)
		} else {
			duration = RoundDuration(duration, prefs.RoundingIntervalMinutes, prefs.RoundingMethod)
		}
	}

	if err := s.entries.FinishEntry(ctx, entry.ID, at, duration); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, entry.UserID)

	end := at
	seconds := int64(duration.Seconds())
	updated := *entry
	updated.EndTime = &end
	updated.DurationSeconds = &seconds
	updated.IsRunning = false

	s.broadcaster.Publish(entry.UserID, realtime.Event{
		Type:     eventType,
		EntryID:  entry.ID,
		TaskName: entry.TaskName,
		EndTime:  &end,
	})
	return &updated, nil
}

// Active returns the user's running timer snapshot via the cache, or
// nil when nothing is running.
func (s *TimerService) Active(ctx context.Context, userID string) (*cache.Snapshot, error) {
	return s.cache.Get(ctx, userID)
}

func (s *TimerService) ListEntries(ctx context.Context, userID string, limit int) ([]internal.TimeEntry, error) {
	return s.entries.ListEntries(ctx, userID, limit)
}
