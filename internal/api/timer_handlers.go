package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourname/timetracker/internal"
	"github.com/yourname/timetracker/internal/service"
)

var errInvalidLimit = errors.New("limit must be a positive integer")

// StopTimerRequest covers both live stops (no at_time, server now) and
// callers that know the exact instant, like idle-resolution replays.
type StopTimerRequest struct {
	AtTime *time.Time `json:"at_time"`
}

func stopTime(body *StopTimerRequest) time.Time {
	if body.AtTime != nil {
		return *body.AtTime
	}
	return time.Now()
}

func PostTimerStart(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)

		var body service.StartTimerRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}
		if err := service.ValidateStartTimerRequest(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Validation failed")
			return
		}

		entry, err := app.Timers().Start(c.Request.Context(), user, &body, time.Now())
		if err != nil {
			HandleDomainError(c, app.Logger(), err, "Failed to start timer")
			return
		}
		HandleSuccess(c, app.Logger(), entry, nil)
	}
}

func PostTimerStop(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)

		var body StopTimerRequest
		if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}

		entry, err := app.Timers().StopActive(c.Request.Context(), user, stopTime(&body))
		if err != nil {
			HandleDomainError(c, app.Logger(), err, "Failed to stop timer")
			return
		}
		HandleSuccess(c, app.Logger(), entry, durationMeta(entry))
	}
}

func PostTimerDiscard(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)

		var body StopTimerRequest
		if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}

		entry, err := app.Timers().DiscardActive(c.Request.Context(), user, stopTime(&body))
		if err != nil {
			HandleDomainError(c, app.Logger(), err, "Failed to discard timer")
			return
		}
		HandleSuccess(c, app.Logger(), entry, durationMeta(entry))
	}
}

func GetTimerActive(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)

		snap, err := app.Timers().Active(c.Request.Context(), user.ID)
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to read active timer")
			return
		}
		if snap == nil {
			HandleSuccess(c, app.Logger(), nil, map[string]any{"running": false})
			return
		}
		HandleSuccess(c, app.Logger(), snap, map[string]any{"running": true})
	}
}

func GetTimerEntries(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)

		limit := 50
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				HandleError(c, app.Logger(), errInvalidLimit, 400, "Invalid limit")
				return
			}
			limit = parsed
		}

		entries, err := app.Timers().ListEntries(c.Request.Context(), user.ID, limit)
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to fetch entries")
			return
		}
		HandleSuccess(c, app.Logger(), entries, nil)
	}
}

func GetPreferences(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)

		prefs, err := app.Preferences().GetPreferences(c.Request.Context(), user.ID)
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to fetch preferences")
			return
		}
		HandleSuccess(c, app.Logger(), prefs, nil)
	}
}

func durationMeta(entry *internal.TimeEntry) map[string]any {
	if entry == nil || entry.DurationSeconds == nil {
		return nil
	}
	return map[string]any{"duration_seconds": *entry.DurationSeconds}
}
