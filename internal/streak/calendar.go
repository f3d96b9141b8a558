// Package streak implements the Modle daily-streak engine: UTC day-key
// arithmetic, the per-language streak state machine, and the cross-language
// global aggregation.
package streak

import (
	"errors"
	"fmt"
	"time"
)

// DayKeyLayout is the calendar-day key format. Keys sort lexicographically
// in chronological order.
const DayKeyLayout = "2006-01-02"

// ErrInvalidDayKey is returned when a day key does not parse as YYYY-MM-DD.
var ErrInvalidDayKey = errors.New("invalid day key")

// DayKey formats a moment as its UTC calendar-day key.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayKeyLayout)
}

// Today returns the current UTC calendar-day key. This is the sole source
// of truth for "what day is it"; client-supplied dates are never consulted.
func Today() string {
	return DayKey(time.Now())
}

// PreviousDay returns the day key immediately before key, handling month
// and year rollover (2024-03-01 yields 2024-02-29).
func PreviousDay(key string) (string, error) {
	t, err := time.ParseInLocation(DayKeyLayout, key, time.UTC)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDayKey, key)
	}
	return DayKey(t.AddDate(0, 0, -1)), nil
}

// ValidDayKey reports whether key parses as a calendar-day key.
func ValidDayKey(key string) bool {
	_, err := time.ParseInLocation(DayKeyLayout, key, time.UTC)
	return err == nil
}
