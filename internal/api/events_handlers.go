package api

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/yourname/timetracker/internal"
)

// GetEvents streams the authenticated user's timer events over SSE. The
// subscription is per-user: the auth middleware has already resolved the
// subscriber, and only that user's channel is joined. Delivery is
// best-effort; clients re-query the active timer on reconnect.
func GetEvents(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)

		events, cancel := app.Hub().Subscribe(user.ID)
		defer cancel()

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")

		c.Stream(func(w io.Writer) bool {
			select {
			case event, ok := <-events:
				if !ok {
					return false
				}
				c.SSEvent(string(event.Type), event)
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}
