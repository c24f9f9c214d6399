package realtime

import "time"

type EventType string

const (
	TimerStarted   EventType = "timer_started"
	TimerStopped   EventType = "timer_stopped"
	TimerDiscarded EventType = "timer_discarded"
	TimerUpdated   EventType = "timer_updated"
)

// Event carries the minimal identifying data another session needs to
// refresh its view. Never the full entry.
type Event struct {
	Type      EventType  `json:"type"`
	EntryID   string     `json:"entry_id"`
	TaskName  string     `json:"task_name,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// Broadcaster fans an event out to a user's connected sessions. Delivery
// is best-effort and at-most-once; a client that missed an event
// recovers by re-querying the active timer on reconnect. Publishing must
// never fail the originating operation.
type Broadcaster interface {
	Publish(userID string, event Event)
}

// NoopBroadcaster drops everything. Used in tests and when the realtime
// surface is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) Publish(userID string, event Event) {}

var _ Broadcaster = NoopBroadcaster{}
