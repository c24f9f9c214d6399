package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourname/timetracker/internal"
	"github.com/yourname/timetracker/internal/service"
)

func GetNotifications(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)

		pending, err := app.Notifications().ListPending(c.Request.Context(), user.ID)
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to fetch notifications")
			return
		}
		HandleSuccess(c, app.Logger(), pending, nil)
	}
}

func PostNotificationAction(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)
		notificationID := c.Param("id")

		var body service.NotificationActionRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}
		if err := service.ValidateNotificationActionRequest(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Validation failed")
			return
		}

		entry, err := app.Notifications().Apply(c.Request.Context(), user, notificationID, internal.NotificationAction(body.Action), time.Now())
		if err != nil {
			HandleDomainError(c, app.Logger(), err, "Failed to apply notification action")
			return
		}
		HandleSuccess(c, app.Logger(), entry, durationMeta(entry))
	}
}
