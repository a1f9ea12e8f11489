package interval

import (
	"testing"
	"time"
)

var day = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func at(clock string) time.Time {
	t, err := ParseClock(day, clock)
	if err != nil {
		panic(err)
	}
	return t
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Interval
		expected bool
	}{
		{"identical", Interval{at("10:00"), at("11:00")}, Interval{at("10:00"), at("11:00")}, true},
		{"partial", Interval{at("10:00"), at("11:00")}, Interval{at("10:30"), at("11:30")}, true},
		{"contained", Interval{at("10:00"), at("12:00")}, Interval{at("10:30"), at("11:00")}, true},
		{"touching endpoints", Interval{at("10:00"), at("11:00")}, Interval{at("11:00"), at("12:00")}, false},
		{"touching reversed", Interval{at("11:00"), at("12:00")}, Interval{at("10:00"), at("11:00")}, false},
		{"disjoint", Interval{at("09:00"), at("10:00")}, Interval{at("14:00"), at("15:00")}, false},
		{"one minute overlap", Interval{at("10:00"), at("11:01")}, Interval{at("11:00"), at("12:00")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.expected {
				t.Errorf("Overlaps: expected %v, got %v", tt.expected, got)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.expected {
				t.Errorf("Overlaps symmetric: expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestOverlapsAny(t *testing.T) {
	busy := []Interval{
		{at("09:00"), at("09:30")},
		{at("13:00"), at("13:30")},
	}

	if !(Interval{at("09:15"), at("09:45")}).OverlapsAny(busy) {
		t.Error("expected overlap with first busy interval")
	}
	if (Interval{at("09:30"), at("13:00")}).OverlapsAny(busy) {
		t.Error("interval exactly between busy intervals should not overlap")
	}
	if (Interval{at("10:00"), at("10:30")}).OverlapsAny(nil) {
		t.Error("no busy intervals means no overlap")
	}
}

func TestContains(t *testing.T) {
	window := Interval{at("09:00"), at("18:00")}

	if !window.Contains(Interval{at("09:00"), at("09:30")}) {
		t.Error("interval at window start should be contained")
	}
	if !window.Contains(Interval{at("17:30"), at("18:00")}) {
		t.Error("interval ending exactly at window end should be contained")
	}
	if window.Contains(Interval{at("17:31"), at("18:01")}) {
		t.Error("interval past window end should not be contained")
	}
	if window.Contains(Interval{at("08:59"), at("09:30")}) {
		t.Error("interval starting before window should not be contained")
	}
}

func TestParseClock(t *testing.T) {
	got, err := ParseClock(day, "09:05")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Hour() != 9 || got.Minute() != 5 {
		t.Errorf("expected 09:05, got %s", got.Format("15:04"))
	}

	// Seconds suffix from stored "HH:MM:SS" values is tolerated.
	got, err = ParseClock(day, "18:00:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if FormatClock(got) != "18:00" {
		t.Errorf("expected 18:00, got %s", FormatClock(got))
	}

	for _, bad := range []string{"", "9", "25:00", "10:61", "aa:bb"} {
		if _, err := ParseClock(day, bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestParseClockRange(t *testing.T) {
	iv, err := ParseClockRange(day, "09:00", "18:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iv.Duration() != 9*time.Hour {
		t.Errorf("expected 9h window, got %s", iv.Duration())
	}

	if _, err := ParseClockRange(day, "bad", "18:00"); err == nil {
		t.Error("expected error for invalid start")
	}
}
