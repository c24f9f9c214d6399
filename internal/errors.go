package internal

import "errors"

// Domain errors surfaced by the storage and service layers. Handlers map
// them to HTTP statuses; everything else is a 500.
var (
	// ErrTimerConflict: a start attempt while the user already has a
	// running entry. The storage layer raises this from its uniqueness
	// constraint so concurrent starts cannot both succeed.
	ErrTimerConflict = errors.New("timer already running for user")

	// ErrTimerNotRunning: stop/discard on an entry that is not running.
	ErrTimerNotRunning = errors.New("time entry is not running")

	// ErrNotificationActioned: the notification already left the pending
	// state. Raised by the storage-level compare-and-set.
	ErrNotificationActioned = errors.New("notification already actioned")

	// ErrNotOwned: the actor is not the owner of the resource.
	ErrNotOwned = errors.New("resource not owned by actor")

	ErrNotFound = errors.New("not found")
)

type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewAppError(code int, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

func (e *AppError) Error() string {
	return e.Message
}
