package internal

import "time"

type User struct {
	ID    string `json:"id"`
	Token string `json:"token"`
	Name  string `json:"name"`
}

// TimeEntry is one continuous span of tracked work. EndTime and Duration
// are nil while the entry is running; IsRunning mirrors EndTime == nil.
type TimeEntry struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	TaskID          string     `json:"task_id"`
	TaskName        string     `json:"task_name"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
	IsRunning       bool       `json:"is_running"`
	BillableRate    float64    `json:"billable_rate,omitempty"`
	Currency        string     `json:"currency,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NotificationAction is the decision recorded on an idle notification.
// ActionNone is the only non-terminal value.
type NotificationAction string

const (
	ActionNone          NotificationAction = "none"
	ActionKept          NotificationAction = "keep"
	ActionDiscarded     NotificationAction = "discard"
	ActionStoppedAtIdle NotificationAction = "stop_at_idle"
)

func (a NotificationAction) Valid() bool {
	switch a {
	case ActionNone, ActionKept, ActionDiscarded, ActionStoppedAtIdle:
		return true
	}
	return false
}

// Terminal reports whether the action can never transition again.
func (a NotificationAction) Terminal() bool {
	return a.Valid() && a != ActionNone
}

// IdleNotification records one detected idle episode on a running entry.
// It is created by the idle detector and acted on exactly once.
type IdleNotification struct {
	ID            string             `json:"id"`
	UserID        string             `json:"user_id"`
	EntryID       string             `json:"entry_id"`
	IdleStartTime time.Time          `json:"idle_start_time"`
	CreatedAt     time.Time          `json:"created_at"`
	Action        NotificationAction `json:"action"`
	ActionAt      *time.Time         `json:"action_at,omitempty"`
}

func (n *IdleNotification) Pending() bool {
	return n.Action == ActionNone
}

type RoundingMethod string

const (
	RoundUp      RoundingMethod = "up"
	RoundDown    RoundingMethod = "down"
	RoundNearest RoundingMethod = "nearest"
)

func (m RoundingMethod) Valid() bool {
	switch m {
	case RoundUp, RoundDown, RoundNearest:
		return true
	}
	return false
}

const DefaultIdleThresholdMinutes = 5

// TimePreferences is consumed read-only. Management lives elsewhere.
type TimePreferences struct {
	UserID                  string         `json:"user_id"`
	IdleThresholdMinutes    int            `json:"idle_threshold_minutes"`
	RoundingIntervalMinutes int            `json:"rounding_interval_minutes"`
	RoundingMethod          RoundingMethod `json:"rounding_method"`
}

// DefaultPreferences is what a user without a stored record gets.
func DefaultPreferences(userID string) *TimePreferences {
	return &TimePreferences{
		UserID:               userID,
		IdleThresholdMinutes: DefaultIdleThresholdMinutes,
		RoundingMethod:       RoundNearest,
	}
}
