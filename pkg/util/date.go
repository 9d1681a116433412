package util

import (
	"strconv"
	"time"
)

// KeepaEpoch is the reference instant for minute-offset timestamps in
// market-data price records.
var KeepaEpoch = time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// FromKeepaMinutes converts a minute offset to an absolute UTC instant.
func FromKeepaMinutes(m int64) time.Time {
	return KeepaEpoch.Add(time.Duration(m) * time.Minute)
}

// ToKeepaMinutes converts an instant to its minute offset, truncating seconds.
func ToKeepaMinutes(t time.Time) int64 {
	return int64(t.Sub(KeepaEpoch) / time.Minute)
}
