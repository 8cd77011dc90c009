package services

import (
	"errors"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// DayStart returns local midnight of the day containing value.
func DayStart(value time.Time, location *time.Location) time.Time {
	if location == nil {
		location = time.Local
	}
	localized := value.In(location)
	year, month, day := localized.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, location)
}

// DayWindow returns [midnight, next midnight) of the local day containing
// value. The window follows the wall clock, so it is 23 or 25 hours long on
// DST transitions.
func DayWindow(value time.Time, location *time.Location) (time.Time, time.Time) {
	start := DayStart(value, location)
	return start, start.AddDate(0, 0, 1)
}

// ParseDateBound parses a filter bound given as YYYY-MM-DD (local midnight)
// or RFC 3339. An empty string yields nil.
func ParseDateBound(raw string, location *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if location == nil {
		location = time.Local
	}
	if parsed, err := time.ParseInLocation(dateLayout, raw, location); err == nil {
		return &parsed, nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return &parsed, nil
	}
	return nil, errors.New("invalid date " + raw)
}
