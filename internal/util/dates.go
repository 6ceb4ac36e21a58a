package util

import (
	"errors"
	"strings"
	"time"
)

// ParseDateRange turns optional start/end filter strings (RFC3339 or
// YYYY-MM-DD) into an inclusive start and an exclusive end. A date-only end
// is extended by one day so the whole end date is covered; reversed inputs
// are swapped.
func ParseDateRange(startStr, endStr *string) (start time.Time, hasStart bool, endExclusive time.Time, hasEnd bool, err error) {
	var rawStart, rawEnd time.Time
	var startOk, endOk, endDateOnly bool

	if startStr != nil {
		t, ok, _, e := parseFilterDate(*startStr)
		if e != nil {
			return time.Time{}, false, time.Time{}, false, e
		}
		rawStart, startOk = t, ok
	}
	if endStr != nil {
		t, ok, dateOnly, e := parseFilterDate(*endStr)
		if e != nil {
			return time.Time{}, false, time.Time{}, false, e
		}
		rawEnd, endOk, endDateOnly = t, ok, dateOnly
	}

	if startOk && endOk && rawEnd.Before(rawStart) {
		rawStart, rawEnd = rawEnd, rawStart
	}

	if startOk {
		start = rawStart
		hasStart = true
	}
	if endOk {
		endExclusive = rawEnd
		if endDateOnly {
			endExclusive = rawEnd.AddDate(0, 0, 1)
		}
		hasEnd = true
	}
	return start, hasStart, endExclusive, hasEnd, nil
}

func parseFilterDate(s string) (t time.Time, ok bool, isDateOnly bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, false, nil
	}
	if tt, e := time.Parse(time.RFC3339, s); e == nil {
		return tt, true, false, nil
	}
	if tt, e := time.Parse("2006-01-02", s); e == nil {
		return tt, true, true, nil
	}
	return time.Time{}, false, false, errors.New("invalid date format (use YYYY-MM-DD or RFC3339)")
}
