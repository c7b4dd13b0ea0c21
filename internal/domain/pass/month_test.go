package pass

import (
	"errors"
	"testing"
	"time"
)

func TestIsValidMonth(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"2025-01", true},
		{"2025-12", true},
		{"1970-01", true},
		{"9999-12", true},
		{"2025-13", false},
		{"2025-00", false},
		{"2025-1", false},
		{"25-01", false},
		{"1969-12", false},
		{"2025/01", false},
		{"2025-0a", false},
		{" 2025-01", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := IsValidMonth(tc.in); got != tc.want {
			t.Errorf("IsValidMonth(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseMonth_Invalid(t *testing.T) {
	_, err := ParseMonth("2025-13")
	if !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestMonthOf_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*3600)
	// 2025-01-31 20:00 at UTC-8 is already February in UTC.
	ts := time.Date(2025, 1, 31, 20, 0, 0, 0, loc)
	if got := MonthOf(ts); got != "2025-02" {
		t.Errorf("MonthOf = %q, want 2025-02", got)
	}
}

func TestMonth_Next(t *testing.T) {
	tests := map[Month]Month{
		"2025-01": "2025-02",
		"2025-12": "2026-01",
		"1999-09": "1999-10",
	}
	for in, want := range tests {
		if got := in.Next(); got != want {
			t.Errorf("%s.Next() = %s, want %s", in, got, want)
		}
	}
}

func TestMonth_Start(t *testing.T) {
	got := Month("2025-03").Start()
	want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Start() = %v, want %v", got, want)
	}
	if !Month("bogus").Start().IsZero() {
		t.Error("Start() of an invalid token should be zero")
	}
}
