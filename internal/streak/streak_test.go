package streak

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNextFirstEver(t *testing.T) {
	// No prior approved completion resets any stored value to 1.
	for _, current := range []int{0, 1, 7, 100} {
		if got := Next(current, nil, day("2024-01-01")); got != 1 {
			t.Errorf("Next(%d, nil, ...) = %d, want 1", current, got)
		}
	}
}

func TestNextContinuity(t *testing.T) {
	last := day("2024-01-01")

	tests := []struct {
		name    string
		newDate time.Time
		current int
		want    int
	}{
		{"same day", day("2024-01-01"), 3, 4},
		{"next day", day("2024-01-02"), 3, 4},
		{"two day gap", day("2024-01-03"), 3, 1},
		{"week gap", day("2024-01-08"), 9, 1},
		{"backdated claim", day("2023-12-31"), 3, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Next(tt.current, &last, tt.newDate); got != tt.want {
				t.Errorf("Next(%d, %s, %s) = %d, want %d",
					tt.current, last.Format("2006-01-02"), tt.newDate.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}

func TestGapDaysIgnoresTimeOfDay(t *testing.T) {
	from := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	to := time.Date(2024, 1, 2, 0, 1, 0, 0, time.UTC)
	if got := GapDays(from, to); got != 1 {
		t.Errorf("GapDays = %d, want 1", got)
	}
}

func TestShouldDecay(t *testing.T) {
	last := day("2024-01-01")

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"same day", day("2024-01-01"), false},
		{"next day", day("2024-01-02"), false},
		{"two days later", day("2024-01-03"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldDecay(&last, tt.now); got != tt.want {
				t.Errorf("ShouldDecay(%s, %s) = %v, want %v",
					last.Format("2006-01-02"), tt.now.Format("2006-01-02"), got, tt.want)
			}
		})
	}

	if ShouldDecay(nil, day("2024-06-01")) {
		t.Error("ShouldDecay(nil, ...) = true, want false")
	}
}

func TestDayKeyRoundTrip(t *testing.T) {
	d, err := ParseDay("2024-03-09")
	if err != nil {
		t.Fatalf("parse day: %v", err)
	}
	if got := DayKey(d); got != "2024-03-09" {
		t.Errorf("DayKey = %q, want %q", got, "2024-03-09")
	}
}
