// Package record converts database rows to JSON-safe values and inbound
// payloads to native values. The legacy schema stores "no date set" as the
// sentinel 1900-01-01, which collapses to null in both directions, and the
// external date format is fixed at MM-DD-YYYY.
package record

import (
	"strings"
	"time"
)

// outboundLayout is the fixed external date format.
const outboundLayout = "01-02-2006"

// inboundLayouts are tried in order when parsing date strings. ISO first.
var inboundLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"01-02-2006",
	"2006/01/02",
}

// IsSentinelDate reports whether t falls on the legacy "unset" date,
// regardless of the time-of-day component.
func IsSentinelDate(t time.Time) bool {
	return t.Year() == 1900 && t.Month() == time.January && t.Day() == 1
}

// tryParseDate attempts the known layouts in order.
func tryParseDate(s string) (time.Time, bool) {
	for _, layout := range inboundLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDateValue renders a date-like value in the external format. The
// sentinel date becomes nil. Strings that do not parse as dates pass through
// unchanged, including blank strings.
func FormatDateValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		if IsSentinelDate(x) {
			return nil
		}
		return x.Format(outboundLayout)
	case *time.Time:
		if x == nil {
			return nil
		}
		return FormatDateValue(*x)
	case string:
		trimmed := strings.TrimSpace(x)
		if trimmed == "" {
			return x
		}
		if t, ok := tryParseDate(trimmed); ok {
			if IsSentinelDate(t) {
				return nil
			}
			return t.Format(outboundLayout)
		}
		return x
	default:
		return v
	}
}

// ParseDateInput converts an inbound date-like value to a native time. Blank
// strings and the sentinel date become nil. Unparseable strings pass through
// unchanged; rejecting bad dates is the validator's job, not this layer's.
func ParseDateInput(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		if IsSentinelDate(x) {
			return nil
		}
		return x
	case *time.Time:
		if x == nil {
			return nil
		}
		return ParseDateInput(*x)
	case string:
		trimmed := strings.TrimSpace(x)
		if trimmed == "" {
			return nil
		}
		if t, ok := tryParseDate(trimmed); ok {
			if IsSentinelDate(t) {
				return nil
			}
			return t
		}
		return x
	default:
		return v
	}
}

// isDateKey is the naming heuristic applied when no explicit field set is
// given: keys containing "date" or carrying a "dt" prefix or suffix.
func isDateKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "date") ||
		strings.HasPrefix(lower, "dt") ||
		strings.HasSuffix(lower, "dt")
}

// IsDateField reports whether a column name gets date treatment under the
// naming heuristic.
func IsDateField(key string) bool {
	return isDateKey(key)
}

// dateField reports whether a key should receive date treatment. An explicit
// field set overrides the heuristic entirely.
func dateField(key string, fields map[string]struct{}) bool {
	if fields != nil {
		_, ok := fields[key]
		return ok
	}
	return isDateKey(key)
}

// FormatRecords makes row records JSON-safe in place and returns them:
// []byte values become strings and date-like fields are rendered in the
// external format with the sentinel collapsed to null.
func FormatRecords(records []map[string]any, fields map[string]struct{}) []map[string]any {
	for _, rec := range records {
		for key, val := range rec {
			if b, ok := val.([]byte); ok {
				val = string(b)
				rec[key] = val
			}
			if dateField(key, fields) {
				rec[key] = FormatDateValue(val)
			}
		}
	}
	return records
}

// NormalizePayload returns a copy of an inbound payload with date-like
// fields parsed to native values. Non-date fields are untouched.
func NormalizePayload(payload map[string]any, fields map[string]struct{}) map[string]any {
	out := make(map[string]any, len(payload))
	for key, val := range payload {
		if dateField(key, fields) {
			out[key] = ParseDateInput(val)
		} else {
			out[key] = val
		}
	}
	return out
}
