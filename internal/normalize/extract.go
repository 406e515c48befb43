// Package normalize converts arbitrarily-shaped upstream trade and market
// payloads into canonical records with stable identities, millisecond
// timestamps, and normalized enumerations. Every extraction is an explicit
// ordered rule chain; the package performs no I/O.
package normalize

import (
	"strconv"
	"strings"
	"time"
)

// msThreshold separates second-precision from millisecond-precision Unix
// times: numeric values below it are seconds, at or above it milliseconds.
const msThreshold = 10_000_000_000

// firstField returns the first non-nil value among the given keys.
func firstField(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// nestedField walks each path through nested objects and returns the first
// fully-resolvable non-nil value.
func nestedField(m map[string]any, paths ...[]string) any {
	for _, path := range paths {
		var cur any = m
		ok := true
		for _, p := range path {
			obj, isMap := cur.(map[string]any)
			if !isMap {
				ok = false
				break
			}
			next, present := obj[p]
			if !present || next == nil {
				ok = false
				break
			}
			cur = next
		}
		if ok {
			return cur
		}
	}
	return nil
}

// isoLayouts are tried in order for string timestamps that are not numeric.
// The offset-less layouts are interpreted as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// asMillis interprets v as a Unix timestamp and returns epoch milliseconds.
// Numeric values (and numeric strings) below msThreshold are seconds;
// otherwise they are already milliseconds. Non-numeric strings are parsed as
// ISO-8601, with a trailing Z equivalent to +00:00. The second return is
// false when no interpretation applies.
func asMillis(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		return scaleUnix(int64(x)), true
	case int:
		return scaleUnix(int64(x)), true
	case int64:
		return scaleUnix(x), true
	case string:
		s := strings.TrimSpace(x)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return scaleUnix(int64(f)), true
		}
		for _, layout := range isoLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t.UnixMilli(), true
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

func scaleUnix(v int64) int64 {
	if v >= msThreshold {
		return v
	}
	return v * 1000
}

// isoUTC re-emits v as an RFC-3339 UTC string, or "" when unparseable.
func isoUTC(v any) string {
	ms, ok := asMillis(v)
	if !ok {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

// stringify renders a scalar extracted from decoded JSON. Floats that carry
// integral values (the common case for JSON ids and indexes) render without
// a fraction.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// toFloat coerces numeric JSON values and numeric strings; anything else is 0.
func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// toBool coerces v to a boolean, returning def when v is absent or unusable.
func toBool(v any, def bool) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(x)))
		if err != nil {
			return def
		}
		return b
	default:
		return def
	}
}
