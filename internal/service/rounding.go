package service

import (
	"time"

	"github.com/yourname/timetracker/internal"
)

// RoundDuration rounds d to a multiple of intervalMinutes. An interval
// of zero (or an unknown method) is the identity. Nearest rounds an
// exact half-interval tie up.
func RoundDuration(d time.Duration, intervalMinutes int, method internal.RoundingMethod) time.Duration {
	if intervalMinutes <= 0 {
		return d
	}
	interval := time.Duration(intervalMinutes) * time.Minute
	rem := d % interval
	switch method {
	case internal.RoundUp:
		if rem == 0 {
			return d
		}
		return d - rem + interval
	case internal.RoundDown:
		return d - rem
	case internal.RoundNearest:
		if rem*2 >= interval {
			return d - rem + interval
		}
		return d - rem
	}
	return d
}
