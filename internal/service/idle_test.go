package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourname/timetracker/internal"
)

func TestIdleDetectionAtBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	start := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)

	_, err := env.timers.Start(ctx, testUser, &StartTimerRequest{TaskID: "t", TaskName: "n"}, start)
	require.NoError(t, err)

	// Default threshold is 5 minutes; just before the boundary nothing
	// is detected.
	require.NoError(t, env.detector.Scan(ctx, start.Add(5*time.Minute-time.Second)))
	pending, err := env.notifications.ListPending(ctx, testUser.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, env.detector.Scan(ctx, start.Add(6*time.Minute)))
	pending, err = env.notifications.ListPending(ctx, testUser.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, start.Add(5*time.Minute), pending[0].IdleStartTime)
	assert.Equal(t, "n", pending[0].TaskName)
}

func TestIdleScanIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	start := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)

	_, err := env.timers.Start(ctx, testUser, &StartTimerRequest{TaskID: "t", TaskName: "n"}, start)
	require.NoError(t, err)

	require.NoError(t, env.detector.Scan(ctx, start.Add(10*time.Minute)))
	require.NoError(t, env.detector.Scan(ctx, start.Add(11*time.Minute)))
	require.NoError(t, env.detector.Scan(ctx, start.Add(12*time.Minute)))

	pending, err := env.notifications.ListPending(ctx, testUser.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestIdleDetectionDisabledByZeroThreshold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.store.SetPreferences(&internal.TimePreferences{
		UserID:               testUser.ID,
		IdleThresholdMinutes: 0,
	})

	start := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	_, err := env.timers.Start(ctx, testUser, &StartTimerRequest{TaskID: "t", TaskName: "n"}, start)
	require.NoError(t, err)

	require.NoError(t, env.detector.Scan(ctx, start.Add(2*time.Hour)))
	pending, err := env.notifications.ListPending(ctx, testUser.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestIdleDetectionCustomThreshold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.store.SetPreferences(&internal.TimePreferences{
		UserID:               testUser.ID,
		IdleThresholdMinutes: 30,
	})

	start := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	_, err := env.timers.Start(ctx, testUser, &StartTimerRequest{TaskID: "t", TaskName: "n"}, start)
	require.NoError(t, err)

	require.NoError(t, env.detector.Scan(ctx, start.Add(10*time.Minute)))
	pending, err := env.notifications.ListPending(ctx, testUser.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, env.detector.Scan(ctx, start.Add(31*time.Minute)))
	pending, err = env.notifications.ListPending(ctx, testUser.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, start.Add(30*time.Minute), pending[0].IdleStartTime)
}

func TestIdleScanContinuesPastFailingEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	start := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)

	other := &internal.User{ID: "u2", Token: "OTHER", Name: "Other"}
	_, err := env.timers.Start(ctx, testUser, &StartTimerRequest{TaskID: "t", TaskName: "n"}, start)
	require.NoError(t, err)
	_, err = env.timers.Start(ctx, other, &StartTimerRequest{TaskID: "t", TaskName: "n"}, start)
	require.NoError(t, err)

	// A preferences source that fails for the first user must not stop
	// the second from being scanned.
	detector := NewIdleDetector(env.store, env.store, failingPrefs{inner: env.store, failFor: testUser.ID}, time.Minute, internal.NopLogger{})
	require.NoError(t, detector.Scan(ctx, start.Add(10*time.Minute)))

	pending, err := env.notifications.ListPending(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

type failingPrefs struct {
	inner interface {
		GetPreferences(ctx context.Context, userID string) (*internal.TimePreferences, error)
	}
	failFor string
}

func (f failingPrefs) GetPreferences(ctx context.Context, userID string) (*internal.TimePreferences, error) {
	if userID == f.failFor {
		return nil, assert.AnError
	}
	return f.inner.GetPreferences(ctx, userID)
}
