package timefmt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	want := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339 utc", "2024-03-09T14:05:07Z", want},
		{"rfc3339 offset", "2024-03-09T16:05:07+02:00", want},
		{"rfc3339 nano", "2024-03-09T14:05:07.250Z", want.Add(250 * time.Millisecond)},
		{"compact offset", "2024-03-09T14:05:07+0000", want},
		{"sql with offset", "2024-03-09 14:05:07+00:00", want},
		{"postgres short offset", "2024-03-09 15:05:07.5+01", want.Add(500 * time.Millisecond)},
		{"naive T", "2024-03-09T14:05:07", want},
		{"naive space", "2024-03-09 14:05:07", want},
		{"naive fraction", "2024-03-09 14:05:07.000001", want.Add(time.Microsecond)},
		{"rfc1123", "Sat, 09 Mar 2024 14:05:07 GMT", want},
		{"date only", "2024-03-09", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)},
		{"epoch seconds", "1709993107", want},
		{"epoch fractional seconds", "1709993107.5", want.Add(500 * time.Millisecond)},
		{"epoch millis", "1709993107000", want},
		{"epoch micros", "1709993107000000", want},
		{"surrounding space", "  2024-03-09T14:05:07Z ", want},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{"", "   ", "yesterday", "2024-13-45", "-5"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.Error(t, err)
		})
	}
}

func TestTimeUnmarshalJSON(t *testing.T) {
	want := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"string", `{"ts":"2024-03-09T14:05:07Z"}`, want},
		{"sql string", `{"ts":"2024-03-09 14:05:07"}`, want},
		{"number seconds", `{"ts":1709993107}`, want},
		{"number millis", `{"ts":1709993107000}`, want},
		{"null", `{"ts":null}`, time.Time{}},
		{"empty string", `{"ts":""}`, time.Time{}},
		{"missing", `{}`, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v struct {
				TS Time `json:"ts"`
			}
			require.NoError(t, json.Unmarshal([]byte(tt.input), &v))
			assert.True(t, tt.want.Equal(v.TS.Time), "want %s, got %s", tt.want, v.TS.Time)
		})
	}
}

func TestTimeUnmarshalJSONInvalid(t *testing.T) {
	var v struct {
		TS Time `json:"ts"`
	}
	assert.Error(t, json.Unmarshal([]byte(`{"ts":"soon"}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"ts":true}`), &v))
}

func TestTimeMarshalJSON(t *testing.T) {
	ts := Time{Time: time.Date(2024, 3, 9, 16, 5, 7, 0, time.FixedZone("x", 2*3600))}
	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-09T14:05:07Z"`, string(data))

	data, err = json.Marshal(Time{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = LoadLocation("UTC")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())

	_, err = LoadLocation("Mars/Olympus")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	assert.Equal(t, "14:05:07", Format(ts, time.UTC, LayoutShort))
	assert.Equal(t, "15:05:07", Format(ts, time.FixedZone("CET", 3600), LayoutShort))
	assert.Equal(t, "-", Format(time.Time{}, time.UTC, LayoutFull))
}

func TestRelative(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		ago  time.Duration
		want string
	}{
		{0, "just now"},
		{42 * time.Second, "42s ago"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
		{-5 * time.Minute, "in 5m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Relative(now.Add(-tt.ago), now))
		})
	}

	assert.Equal(t, "never", Relative(time.Time{}, now))
}
