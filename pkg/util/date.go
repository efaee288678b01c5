package util

import (
	"strconv"
	"time"
)

// unixMillisThreshold separates unix seconds from unix milliseconds.
const unixMillisThreshold = 1e11

// ParseTime accepts RFC3339, RFC3339Nano, unix seconds and unix milliseconds.
// Returns (t, true) if any worked. Results are in UTC.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return FromUnix(ts), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		sec := int64(f)
		return time.Unix(sec, int64((f-float64(sec))*1e9)).UTC(), true
	}
	return time.Time{}, false
}

// FromUnix converts unix seconds or milliseconds to a UTC time.
func FromUnix(ts int64) time.Time {
	if ts > unixMillisThreshold {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}
