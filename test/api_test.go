package test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourname/timetracker/internal"
	"github.com/yourname/timetracker/internal/api"
	"github.com/yourname/timetracker/internal/auth"
	"github.com/yourname/timetracker/internal/cache"
	"github.com/yourname/timetracker/internal/realtime"
	"github.com/yourname/timetracker/internal/service"
	"github.com/yourname/timetracker/internal/storage"
)

type testApp struct {
	logger        internal.Logger
	timers        *service.TimerService
	notifications *service.NotificationService
	preferences   storage.PreferencesRepository
	hub           *realtime.Hub
}

func (a *testApp) Logger() internal.Logger                     { return a.logger }
func (a *testApp) Timers() *service.TimerService               { return a.timers }
func (a *testApp) Notifications() *service.NotificationService { return a.notifications }
func (a *testApp) Preferences() storage.PreferencesRepository  { return a.preferences }
func (a *testApp) Hub() *realtime.Hub                          { return a.hub }

type fixture struct {
	router   *gin.Engine
	store    *storage.FileStorage
	detector *service.IdleDetector
}

func setupRouter(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	usersFile := filepath.Join(dir, "users.json")
	require.NoError(t, os.WriteFile(usersFile, []byte(`[{"id":"u1","token":"MOCK-TOKEN","name":"Test User"}]`), 0644))

	store, err := storage.NewFileStorage(
		usersFile,
		filepath.Join(dir, "entries.json"),
		filepath.Join(dir, "notifications.json"),
		filepath.Join(dir, "preferences.json"),
		internal.NopLogger{},
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := internal.NopLogger{}
	activeCache := cache.NewActiveTimerCache(cache.NewMemoryBackend(), store, time.Hour, logger)
	hub := realtime.NewHub(logger)
	timers := service.NewTimerService(store, store, activeCache, hub, logger)
	notifications := service.NewNotificationService(store, store, timers, logger)
	detector := service.NewIdleDetector(store, store, store, time.Minute, logger)

	app := &testApp{
		logger:        logger,
		timers:        timers,
		notifications: notifications,
		preferences:   store,
		hub:           hub,
	}

	r := gin.New()
	protected := r.Group("/")
	protected.Use(api.RequestIDMiddleware())
	protected.Use(auth.Middleware(auth.NewLocalProvider(store, logger)))
	protected.POST("/timer/start", api.PostTimerStart(app))
	protected.POST("/timer/stop", api.PostTimerStop(app))
	protected.POST("/timer/discard", api.PostTimerDiscard(app))
	protected.GET("/timer/active", api.GetTimerActive(app))
	protected.GET("/timer/entries", api.GetTimerEntries(app))
	protected.GET("/notifications", api.GetNotifications(app))
	protected.POST("/notifications/:id/action", api.PostNotificationAction(app))
	protected.GET("/preferences", api.GetPreferences(app))

	return &fixture{router: r, store: store, detector: detector}
}

func doRequest(r *gin.Engine, method, path, body string, authed bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	if authed {
		req.Header.Set("Authorization", "Bearer MOCK-TOKEN")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data  json.RawMessage    `json:"data"`
	Meta  map[string]any     `json:"meta"`
	Error *internal.AppError `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	f := setupRouter(t)
	w := doRequest(f.router, "GET", "/timer/active", "", false)
	assert.Equal(t, 401, w.Code)

	w = doRequest(f.router, "POST", "/timer/start", `{"task_id":"t1","task_name":"Task"}`, false)
	assert.Equal(t, 401, w.Code)
}

func TestTimerStartStopFlow(t *testing.T) {
	f := setupRouter(t)

	w := doRequest(f.router, "POST", "/timer/start", `{"task_id":"t1","task_name":"Write report"}`, true)
	require.Equal(t, 200, w.Code)
	env := decodeEnvelope(t, w)
	var started internal.TimeEntry
	require.NoError(t, json.Unmarshal(env.Data, &started))
	assert.True(t, started.IsRunning)

	// A second start conflicts while the first is running.
	w = doRequest(f.router, "POST", "/timer/start", `{"task_id":"t2","task_name":"Other"}`, true)
	assert.Equal(t, 409, w.Code)

	w = doRequest(f.router, "GET", "/timer/active", "", true)
	require.Equal(t, 200, w.Code)
	env = decodeEnvelope(t, w)
	assert.Equal(t, true, env.Meta["running"])

	w = doRequest(f.router, "POST", "/timer/stop", "", true)
	require.Equal(t, 200, w.Code)
	env = decodeEnvelope(t, w)
	assert.Contains(t, env.Meta, "duration_seconds")

	w = doRequest(f.router, "GET", "/timer/active", "", true)
	require.Equal(t, 200, w.Code)
	env = decodeEnvelope(t, w)
	assert.Equal(t, false, env.Meta["running"])

	// Nothing left to stop.
	w = doRequest(f.router, "POST", "/timer/stop", "", true)
	assert.Equal(t, 409, w.Code)

	w = doRequest(f.router, "GET", "/timer/entries", "", true)
	require.Equal(t, 200, w.Code)
	env = decodeEnvelope(t, w)
	var entries []internal.TimeEntry
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	assert.Len(t, entries, 1)
}

func TestTimerStartValidation(t *testing.T) {
	f := setupRouter(t)

	w := doRequest(f.router, "POST", "/timer/start", `{"task_name":"Missing task id"}`, true)
	assert.Equal(t, 400, w.Code)

	w = doRequest(f.router, "POST", "/timer/start", `{not json`, true)
	assert.Equal(t, 400, w.Code)
}

func TestNotificationActionFlow(t *testing.T) {
	f := setupRouter(t)

	w := doRequest(f.router, "POST", "/timer/start", `{"task_id":"t1","task_name":"Task"}`, true)
	require.Equal(t, 200, w.Code)

	// Run the detector past the default 5 minute threshold.
	require.NoError(t, f.detector.Scan(context.Background(), time.Now().Add(6*time.Minute)))

	w = doRequest(f.router, "GET", "/notifications", "", true)
	require.Equal(t, 200, w.Code)
	env := decodeEnvelope(t, w)
	var pending []service.PendingNotification
	require.NoError(t, json.Unmarshal(env.Data, &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "Task", pending[0].TaskName)

	w = doRequest(f.router, "POST", "/notifications/"+pending[0].ID+"/action", `{"action":"stop_at_idle"}`, true)
	require.Equal(t, 200, w.Code)
	env = decodeEnvelope(t, w)
	assert.Contains(t, env.Meta, "duration_seconds")

	// Duplicate submission loses.
	w = doRequest(f.router, "POST", "/notifications/"+pending[0].ID+"/action", `{"action":"stop_at_idle"}`, true)
	assert.Equal(t, 409, w.Code)

	w = doRequest(f.router, "POST", "/notifications/missing/action", `{"action":"keep"}`, true)
	assert.Equal(t, 404, w.Code)

	w = doRequest(f.router, "POST", "/notifications/"+pending[0].ID+"/action", `{"action":"banana"}`, true)
	assert.Equal(t, 400, w.Code)
}

func TestGetPreferencesDefaults(t *testing.T) {
	f := setupRouter(t)

	w := doRequest(f.router, "GET", "/preferences", "", true)
	require.Equal(t, 200, w.Code)
	env := decodeEnvelope(t, w)
	var prefs internal.TimePreferences
	require.NoError(t, json.Unmarshal(env.Data, &prefs))
	assert.Equal(t, internal.DefaultIdleThresholdMinutes, prefs.IdleThresholdMinutes)
}
