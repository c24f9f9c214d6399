package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourname/timetracker/internal"
	"github.com/yourname/timetracker/internal/api"
	"github.com/yourname/timetracker/internal/auth"
	"github.com/yourname/timetracker/internal/cache"
	"github.com/yourname/timetracker/internal/config"
	"github.com/yourname/timetracker/internal/realtime"
	"github.com/yourname/timetracker/internal/service"
	"github.com/yourname/timetracker/internal/storage"
)

type appState struct {
	logger        internal.Logger
	timers        *service.TimerService
	notifications *service.NotificationService
	preferences   storage.PreferencesRepository
	hub           *realtime.Hub
}

func (a *appState) Logger() internal.Logger                     { return a.logger }
func (a *appState) Timers() *service.TimerService               { return a.timers }
func (a *appState) Notifications() *service.NotificationService { return a.notifications }
func (a *appState) Preferences() storage.PreferencesRepository  { return a.preferences }
func (a *appState) Hub() *realtime.Hub                          { return a.hub }

func main() {
	cfg := config.Load()

	logger, err := internal.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	repos, err := buildRepositories(cfg, logger)
	if err != nil {
		logger.Fatalf("failed to init storage: %v", err)
	}
	defer func() {
		if err := repos.Close(); err != nil {
			logger.Errorf("failed to close storage: %v", err)
		}
	}()

	var backend cache.Backend
	if cfg.CacheBackend == "redis" {
		backend = cache.NewRedisBackend(cfg.RedisAddr)
	} else {
		backend = cache.NewMemoryBackend()
	}
	snapshotTTL := time.Duration(cfg.CacheSnapshotTTLHours) * time.Hour
	activeCache := cache.NewActiveTimerCache(backend, repos.Entries, snapshotTTL, logger)

	hub := realtime.NewHub(logger)
	timers := service.NewTimerService(repos.Entries, repos.Preferences, activeCache, hub, logger)
	notifications := service.NewNotificationService(repos.Notifications, repos.Entries, timers, logger)

	detector := service.NewIdleDetector(repos.Entries, repos.Notifications, repos.Preferences,
		time.Duration(cfg.IdleScanSeconds)*time.Second, logger)
	reconciler := service.NewCacheReconciler(activeCache, repos.Entries,
		time.Duration(cfg.CacheReconcileSeconds)*time.Second, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go detector.Run(ctx)
	go reconciler.Run(ctx)

	var provider auth.Provider
	if cfg.Env == "development" {
		provider = auth.NewLocalProvider(repos.Users, logger)
	} else {
		provider = auth.NewRemoteProvider(cfg.AuthServiceURL, logger)
	}

	app := &appState{
		logger:        logger,
		timers:        timers,
		notifications: notifications,
		preferences:   repos.Preferences,
		hub:           hub,
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	protected := r.Group("/")
	protected.Use(api.RequestIDMiddleware())
	protected.Use(auth.Middleware(provider))
	protected.POST("/timer/start", api.PostTimerStart(app))
	protected.POST("/timer/stop", api.PostTimerStop(app))
	protected.POST("/timer/discard", api.PostTimerDiscard(app))
	protected.GET("/timer/active", api.GetTimerActive(app))
	protected.GET("/timer/entries", api.GetTimerEntries(app))
	protected.GET("/notifications", api.GetNotifications(app))
	protected.POST("/notifications/:id/action", api.PostNotificationAction(app))
	protected.GET("/preferences", api.GetPreferences(app))
	protected.GET("/events", api.GetEvents(app))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		logger.Infof("server running on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown failed: %v", err)
	}
}

func buildRepositories(cfg *config.Config, logger internal.Logger) (*storage.Repositories, error) {
	if cfg.DBType == "postgres" {
		return storage.NewPostgresRepositories(cfg.DBDSN, logger)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FileEntries), 0755); err != nil {
		return nil, err
	}
	// Seed a demo user so a fresh development checkout is usable.
	if _, err := os.Stat(cfg.FileUsers); os.IsNotExist(err) && cfg.Env == "development" {
		seed := fmt.Sprintf(`[{"id":"u1","token":"%s","name":"Demo User"}]`, cfg.LocalAuthToken)
		if err := os.WriteFile(cfg.FileUsers, []byte(seed), 0644); err != nil {
			return nil, err
		}
	}
	return storage.NewFileRepositories(cfg.FileUsers, cfg.FileEntries, cfg.FileNotifications, cfg.FilePreferences, logger)
}
