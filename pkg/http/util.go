package http

import (
	"time"

	xutil "SignalForge/pkg/util"
)

// ParseTimeDefault parses RFC3339(Nano), unix seconds or unix millis, or returns def if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time { return xutil.ParseTimeDefault(s, def) }

// ParseBool reports whether s is one of "1", "true", "yes" (case-insensitive).
func ParseBool(s string) bool {
	switch s {
	case "1", "true", "TRUE", "True", "yes", "YES":
		return true
	}
	return false
}
