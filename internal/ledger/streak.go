package ledger

import (
	"sort"
	"time"
)

// Streak returns the number of consecutive local calendar days with at least
// one recorded session, counted backward from the most recent day. The run
// must reach today or yesterday relative to now; otherwise the streak is 0.
//
// The calculation is idempotent and independent of the order of days: each
// timestamp is normalized to midnight in loc, duplicates collapse, and the
// result depends only on the resulting day set.
func Streak(days []time.Time, now time.Time, loc *time.Location) int {
	if len(days) == 0 {
		return 0
	}
	if loc == nil {
		loc = time.Local
	}

	seen := make(map[time.Time]struct{}, len(days))
	normalized := make([]time.Time, 0, len(days))
	for _, d := range days {
		day := midnight(d, loc)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		normalized = append(normalized, day)
	}
	sort.Slice(normalized, func(i, j int) bool { return normalized[i].After(normalized[j]) })

	today := midnight(now, loc)
	latest := normalized[0]
	if latest.Before(today.AddDate(0, 0, -1)) {
		return 0
	}

	streak := 1
	for i := 1; i < len(normalized); i++ {
		if normalized[i].Equal(normalized[i-1].AddDate(0, 0, -1)) {
			streak++
			continue
		}
		break
	}
	return streak
}

// midnight truncates t to the start of its calendar day in loc. AddDate-based
// day arithmetic keeps DST transitions from shifting day boundaries.
func midnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
