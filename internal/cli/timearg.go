package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/calvinalkan/timelog/internal/item"
)

var errInvalidTime = errors.New("invalid time (want now, HH:MM, HH:MM:SS, YYYY-MM-DD or YYYY-MM-DD_HH:MM:SS)")

// parseTime parses a time argument relative to now. Clock-only forms refer to
// the day of now, a bare date to its midnight.
func parseTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)

	if s == "now" {
		return now, nil
	}

	if len(s) == item.TimestampLen {
		if t, ok := item.ParseTimestamp(s); ok {
			return t, nil
		}
	}

	now = now.In(time.Local)

	for _, layout := range []string{"15:04", "15:04:05"} {
		clock, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return time.Date(now.Year(), now.Month(), now.Day(),
				clock.Hour(), clock.Minute(), clock.Second(), 0, time.Local), nil
		}
	}

	day, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err == nil {
		return day, nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", errInvalidTime, s)
}

// parseTimeFlag parses a time flag if it was set, returning fallback otherwise.
func parseTimeFlag(value string, set bool, now, fallback time.Time) (time.Time, error) {
	if !set {
		return fallback, nil
	}

	return parseTime(value, now)
}
