package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourname/timetracker/internal"
	"github.com/yourname/timetracker/internal/storage"
)

// IdleDetector periodically scans running entries and records an idle
// notification once a timer has run past its owner's idle threshold.
// Re-scanning unchanged state is idempotent: the pending check here plus
// the storage dedup constraint guarantee at most one pending
// notification per entry.
type IdleDetector struct {
	entries       storage.EntryRepository
	notifications storage.NotificationRepository
	prefs         storage.PreferencesRepository
	interval      time.Duration
	logger        internal.Logger
}

func NewIdleDetector(entries storage.EntryRepository, notifications storage.NotificationRepository, prefs storage.PreferencesRepository, interval time.Duration, logger internal.Logger) *IdleDetector {
	return &IdleDetector{
		entries:       entries,
		notifications: notifications,
		prefs:         prefs,
		interval:      interval,
		logger:        logger,
	}
}

// Run ticks until the context is cancelled. A failed tick is logged and
// the next one proceeds independently.
func (d *IdleDetector) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Infof("idle detector running every %s", d.interval)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("idle detector stopped")
			return
		case <-ticker.C:
			if err := d.Scan(ctx, time.Now()); err != nil {
				d.logger.Errorf("idle scan failed: %v", err)
			}
		}
	}
}

// Scan processes every running entry once. A failure on one entry is
// logged and does not abort the rest of the scan.
func (d *IdleDetector) Scan(ctx context.Context, now time.Time) error {
	active, err := d.entries.ListActiveEntries(ctx)
	if err != nil {
		return err
	}
	for i := range active {
		if err := d.scanEntry(ctx, &active[i], now); err != nil {
			d.logger.Errorf("idle scan: entry %s (user %s): %v", active[i].ID, active[i].UserID, err)
		}
	}
	return nil
}

func (d *IdleDetector) scanEntry(ctx context.Context, entry *internal.TimeEntry, now time.Time) error {
	prefs, err := d.prefs.GetPreferences(ctx, entry.UserID)
	if err != nil {
		return err
	}
	// Threshold 0 disables detection for the user. A missing record has
	// already been defaulted by the repository.
	if prefs.IdleThresholdMinutes <= 0 {
		return nil
	}

	idleBoundary := entry.StartTime.Add(time.Duration(prefs.IdleThresholdMinutes) * time.Minute)
	if now.Before(idleBoundary) {
		return nil
	}

	pending, err := d.notifications.HasPending(ctx, entry.ID)
	if err != nil {
		return err
	}
	if pending {
		return nil
	}

	return d.notifications.CreatePending(ctx, &internal.IdleNotification{
		ID:            uuid.NewString(),
		UserID:        entry.UserID,
		EntryID:       entry.ID,
		IdleStartTime: idleBoundary,
		CreatedAt:     now,
		Action:        internal.ActionNone,
	})
}
