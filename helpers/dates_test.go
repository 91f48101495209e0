package helpers

import (
	"testing"
	"time"
)

func TestDay(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	in := time.Date(2026, 10, 18, 23, 59, 59, 999, loc)

	got := Day(in)
	want := time.Date(2026, 10, 18, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("Day() = %v, want %v", got, want)
	}
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		a, b time.Time
		want int
	}{
		{"same day", time.Date(2026, 10, 18, 1, 0, 0, 0, time.UTC), time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC), 0},
		{"one week", time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC), time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), 7},
		{"backwards", time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysBetween(tt.a, tt.b); got != tt.want {
				t.Errorf("DaysBetween() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEndOfDay(t *testing.T) {
	now := time.Date(2026, 10, 18, 22, 30, 0, 0, time.UTC)
	if got := EndOfDay(now); got != 90*time.Minute {
		t.Errorf("EndOfDay() = %v, want 1h30m", got)
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	if !SameDay(a, a.Add(23*time.Hour)) {
		t.Error("expected same day")
	}
	if SameDay(a, a.Add(24*time.Hour)) {
		t.Error("expected different day")
	}
}
