// Package timefmt parses the timestamp shapes the fleet backend emits and
// formats them for display in the user's preferred timezone.
//
// Backend payloads are inconsistent: agents report RFC 3339 strings, the
// log store emits SQL-style timestamps, and some metric rows carry Unix
// epochs as numbers in seconds or milliseconds. Parse accepts all of them.
package timefmt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// layouts are tried in order. Layouts without a zone are read as UTC.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05-07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// Epoch magnitude cut-offs. A seconds value for any date before 5138 AD is
// below 1e11, milliseconds below 1e14, microseconds below 1e17.
const (
	maxEpochSeconds = 1e11
	maxEpochMillis  = 1e14
	maxEpochMicros  = 1e17
)

// Parse reads a timestamp in any of the supported formats.
// Empty input is an error; callers that treat absence as zero should check first.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return FromEpoch(f)
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FromEpoch converts a Unix epoch in seconds, milliseconds, or microseconds
// (chosen by magnitude) to a UTC time.
func FromEpoch(v float64) (time.Time, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return time.Time{}, fmt.Errorf("invalid epoch %v", v)
	}

	switch {
	case v < maxEpochSeconds:
		sec, frac := math.Modf(v)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	case v < maxEpochMillis:
		return time.UnixMilli(int64(v)).UTC(), nil
	case v < maxEpochMicros:
		return time.UnixMicro(int64(v)).UTC(), nil
	default:
		return time.Unix(0, int64(v)).UTC(), nil
	}
}

// Time is a time.Time that unmarshals from any supported JSON shape:
// a string in one of the layouts, a number epoch, or null.
type Time struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		parsed, err := Parse(s)
		if err != nil {
			return err
		}
		t.Time = parsed
		return nil
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("unrecognized timestamp %s", data)
	}
	parsed, err := FromEpoch(f)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON always writes RFC 3339 with nanoseconds, or null for the zero time.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// LoadLocation resolves a preference value to a location.
// "", "local" and "Local" mean the machine's zone; "utc" is accepted in any case.
func LoadLocation(name string) (*time.Location, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "local":
		return time.Local, nil
	case "utc", "z":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// Display layouts.
const (
	LayoutFull  = "2006-01-02 15:04:05 MST"
	LayoutShort = "15:04:05"
	LayoutDay   = "Jan 02 15:04"
)

// Format renders t in loc using layout. The zero time renders as "-".
func Format(t time.Time, loc *time.Location, layout string) string {
	if t.IsZero() {
		return "-"
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(layout)
}

// Relative renders how long ago t was relative to now ("just now", "42s ago",
// "5m ago", "3h ago", "2d ago"). Times in the future render as "in 5m".
func Relative(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}

	d := now.Sub(t)
	future := d < 0
	if future {
		d = -d
	}

	var text string
	switch {
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		text = fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		text = fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		text = fmt.Sprintf("%dh", int(d.Hours()))
	default:
		text = fmt.Sprintf("%dd", int(d.Hours()/24))
	}

	if future {
		return "in " + text
	}
	return text + " ago"
}
