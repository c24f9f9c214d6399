package service

import (
	"context"
	"errors"
	"time"

	"github.com/yourname/timetracker/internal"
	"github.com/yourname/timetracker/internal/cache"
	"github.com/yourname/timetracker/internal/storage"
)

// CacheReconciler repairs divergence between the active-timer cache and
// the durable store in both directions: snapshots missing or wrong for
// running entries, and stale snapshots for users with nothing running.
// It runs on its own interval, independent of the idle detector.
type CacheReconciler struct {
	cache    *cache.ActiveTimerCache
	entries  storage.EntryRepository
	interval time.Duration
	logger   internal.Logger
}

func NewCacheReconciler(activeCache *cache.ActiveTimerCache, entries storage.EntryRepository, interval time.Duration, logger internal.Logger) *CacheReconciler {
	return &CacheReconciler{
		cache:    activeCache,
		entries:  entries,
		interval: interval,
		logger:   logger,
	}
}

func (r *CacheReconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Infof("cache reconciler running every %s", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("cache reconciler stopped")
			return
		case <-ticker.C:
			if err := r.ReconcileOnce(ctx); err != nil {
				r.logger.Errorf("cache reconciliation failed: %v", err)
			}
		}
	}
}

func (r *CacheReconciler) ReconcileOnce(ctx context.Context) error {
	active, err := r.entries.ListActiveEntries(ctx)
	if err != nil {
		return err
	}

	runningUsers := make(map[string]struct{}, len(active))
	for i := range active {
		entry := &active[i]
		runningUsers[entry.UserID] = struct{}{}

		snap, err := r.cache.Peek(ctx, entry.UserID)
		if errors.Is(err, cache.ErrMiss) {
			r.logger.Infof("reconcile: restoring missing snapshot for user %s", entry.UserID)
			r.cache.SetEntry(ctx, entry)
			continue
		}
		if err != nil {
			r.logger.Warnf("reconcile: cache read failed for user %s: %v", entry.UserID, err)
			continue
		}
		if snap.EntryID != entry.ID {
			r.logger.Warnf("reconcile: snapshot for user %s points at entry %s, store says %s", entry.UserID, snap.EntryID, entry.ID)
			r.cache.SetEntry(ctx, entry)
		}
	}

	cached, err := r.cache.Keys(ctx)
	if err != nil {
		return err
	}
	for _, userID := range cached {
		if _, running := runningUsers[userID]; !running {
			r.logger.Infof("reconcile: dropping stale snapshot for user %s", userID)
			r.cache.Invalidate(ctx, userID)
		}
	}
	return nil
}
