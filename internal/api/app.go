package api

import (
	"github.com/yourname/timetracker/internal"
	"github.com/yourname/timetracker/internal/realtime"
	"github.com/yourname/timetracker/internal/service"
	"github.com/yourname/timetracker/internal/storage"
)

type App interface {
	Logger() internal.Logger
	Timers() *service.TimerService
	Notifications() *service.NotificationService
	Preferences() storage.PreferencesRepository
	Hub() *realtime.Hub
}
