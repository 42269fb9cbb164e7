package ledger

import (
	"testing"
	"time"
)

var streakLoc = time.UTC

func day(offset int) time.Time {
	base := time.Date(2025, 6, 15, 10, 30, 0, 0, streakLoc)
	return base.AddDate(0, 0, offset)
}

func TestStreak(t *testing.T) {
	t.Parallel()
	now := day(0)

	cases := []struct {
		name string
		days []time.Time
		want int
	}{
		{"no sessions", nil, 0},
		{"single session today", []time.Time{day(0)}, 1},
		{"single session yesterday", []time.Time{day(-1)}, 1},
		{"run ending before yesterday", []time.Time{day(-2), day(-3), day(-4)}, 0},
		{"three consecutive days", []time.Time{day(0), day(-1), day(-2)}, 3},
		{"gap breaks the run", []time.Time{day(0), day(-1), day(-3), day(-4)}, 2},
		{"duplicates collapse", []time.Time{day(0), day(0), day(-1)}, 2},
		{"order independent", []time.Time{day(-2), day(0), day(-1)}, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Streak(tc.days, now, streakLoc); got != tc.want {
				t.Errorf("Streak = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestStreak_SameDayDifferentHours(t *testing.T) {
	t.Parallel()
	now := day(0)
	days := []time.Time{
		time.Date(2025, 6, 15, 0, 1, 0, 0, streakLoc),
		time.Date(2025, 6, 15, 23, 59, 0, 0, streakLoc),
		time.Date(2025, 6, 14, 12, 0, 0, 0, streakLoc),
	}
	if got := Streak(days, now, streakLoc); got != 2 {
		t.Errorf("Streak = %d, want 2", got)
	}
}

func TestStreak_TimezoneChangesDayBucket(t *testing.T) {
	t.Parallel()
	// 2025-06-15 02:00 UTC is still 2025-06-14 in a UTC-5 calendar.
	west := time.FixedZone("UTC-5", -5*60*60)
	at := time.Date(2025, 6, 15, 2, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 14, 12, 0, 0, 0, west)

	if got := Streak([]time.Time{at}, now, west); got != 1 {
		t.Errorf("Streak in UTC-5 = %d, want 1 (session counts as today)", got)
	}
}
