package schema

import (
	"testing"
	"time"
)

func TestNormalizeTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"unix seconds", "1700000000", "2023-11-14T22:13:20.000Z"},
		{"unix milliseconds", "1700000000000", "2023-11-14T22:13:20.000Z"},
		{"rfc3339", "2024-01-02T03:04:05Z", "2024-01-02T03:04:05.000Z"},
		{"iso no zone", "2024-01-02T03:04:05", "2024-01-02T03:04:05.000Z"},
		{"space separated", "2024-01-02 03:04:05", "2024-01-02T03:04:05.000Z"},
		{"date only", "2024-01-02", "2024-01-02T00:00:00.000Z"},
		{"unparseable passes through", "not-a-time", "not-a-time"},
		{"empty passes through", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTimestamp(tt.in); got != tt.want {
				t.Errorf("NormalizeTimestamp(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseTimestamp_MillisThreshold(t *testing.T) {
	// 1e12 is the cutover: values above it are milliseconds.
	sec, ok := ParseTimestamp("1700000000")
	if !ok {
		t.Fatal("seconds value did not parse")
	}
	ms, ok := ParseTimestamp("1700000000000")
	if !ok {
		t.Fatal("milliseconds value did not parse")
	}
	if !sec.Equal(ms) {
		t.Errorf("seconds %v and milliseconds %v should be the same instant", sec, ms)
	}
}

func TestParseTimestamp_FractionalSeconds(t *testing.T) {
	got, ok := ParseTimestamp("1700000000.5")
	if !ok {
		t.Fatal("fractional seconds did not parse")
	}
	want := time.Unix(1700000000, 500000000).UTC()
	if d := got.Sub(want); d > time.Millisecond || d < -time.Millisecond {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 30, 15, 987654321, time.UTC)
	if got := FormatTimestamp(ts); got != "2024-06-01T10:30:15.000Z" {
		t.Errorf("FormatTimestamp = %q, want second resolution with .000Z suffix", got)
	}
}
