package schema

import (
	"strconv"
	"time"
)

// millisThreshold separates unix seconds from unix milliseconds: numeric
// timestamps above 1e12 are read as milliseconds (1e12 seconds would be
// past year 33000).
const millisThreshold = 1e12

// textLayouts are tried in order for non-numeric timestamps.
var textLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp interprets a raw cell as a point in time. Accepts unix
// seconds, unix milliseconds, and common ISO-8601 text forms.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v > millisThreshold {
			ms := int64(v)
			return time.UnixMilli(ms).UTC(), true
		}
		sec := int64(v)
		nsec := int64((v - float64(sec)) * 1e9)
		return time.Unix(sec, nsec).UTC(), true
	}

	for _, layout := range textLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders a time in the canonical output form,
// second resolution with a fixed ".000Z" suffix.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05") + ".000Z"
}

// NormalizeTimestamp converts a raw cell to the canonical output form.
// Unparseable values pass through unchanged rather than failing the batch;
// the downstream tool treats the column as opaque text.
func NormalizeTimestamp(s string) string {
	t, ok := ParseTimestamp(s)
	if !ok {
		return s
	}
	return FormatTimestamp(t)
}
