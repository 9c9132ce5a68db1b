// Package timeparse normalizes the ad-hoc timestamp formats emitted by the
// various upstream artifact parsers into timezone-aware instants.
package timeparse

import (
	"strings"
	"time"
)

// Fallback layouts tried in order after the generic RFC 3339 parse fails.
// The order is fixed: adding new layouts at the front would change which
// format wins for ambiguous inputs.
var layouts = []string{
	"2006-01-02 15:04:05",
	"01/02/2006 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006 15:04:05.000000",
	"2006-01-02T15:04:05.000000",
}

// Coerce parses a raw timestamp string. Naive values (no zone information)
// are assigned the system's local zone, because all stored timestamps are
// compared within one zone context. Empty or unparseable input returns
// ok=false; coercion never fails with an error and never yields epoch zero
// for missing values.
func Coerce(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// CoercePtr is Coerce for nullable record fields: nil means absent.
func CoercePtr(s string) *time.Time {
	if t, ok := Coerce(s); ok {
		return &t
	}
	return nil
}
