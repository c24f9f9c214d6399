package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yourname/timetracker/internal"
)

func TestRoundDurationZeroIntervalIsIdentity(t *testing.T) {
	durations := []time.Duration{0, time.Second, 90 * time.Second, 7*time.Hour + 13*time.Minute}
	for _, d := range durations {
		assert.Equal(t, d, RoundDuration(d, 0, internal.RoundUp))
		assert.Equal(t, d, RoundDuration(d, 0, internal.RoundDown))
		assert.Equal(t, d, RoundDuration(d, 0, internal.RoundNearest))
	}
}

func TestRoundDuration(t *testing.T) {
	cases := []struct {
		name     string
		d        time.Duration
		interval int
		method   internal.RoundingMethod
		want     time.Duration
	}{
		{"up to next minute", 90 * time.Second, 1, internal.RoundUp, 120 * time.Second},
		{"up exact multiple unchanged", 120 * time.Second, 1, internal.RoundUp, 120 * time.Second},
		{"down to previous minute", 90 * time.Second, 1, internal.RoundDown, 60 * time.Second},
		{"down exact multiple unchanged", 60 * time.Second, 1, internal.RoundDown, 60 * time.Second},
		{"nearest rounds half up", 30 * time.Second, 1, internal.RoundNearest, 60 * time.Second},
		{"nearest below half rounds down", 29 * time.Second, 1, internal.RoundNearest, 0},
		{"nearest above half rounds up", 31 * time.Second, 1, internal.RoundNearest, 60 * time.Second},
		{"fifteen minute billing up", 22 * time.Minute, 15, internal.RoundUp, 30 * time.Minute},
		{"fifteen minute billing nearest", 22 * time.Minute, 15, internal.RoundNearest, 15 * time.Minute},
		{"half of fifteen rounds up", 7*time.Minute + 30*time.Second, 15, internal.RoundNearest, 15 * time.Minute},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RoundDuration(tc.d, tc.interval, tc.method))
		})
	}
}
