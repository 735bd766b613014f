package database

import (
	"slices"
	"time"
)

// Streak is a run of at least two consecutive ride days. Anchor is the
// most recent day of the run.
type Streak struct {
	Anchor time.Time
	Days   int
}

// DayOf truncates t to its calendar date, keeping t's wall clock
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DistinctDays reduces timestamps to their distinct calendar days, most
// recent first
func DistinctDays(stamps []time.Time) []time.Time {
	seen := make(map[time.Time]bool, len(stamps))
	var days []time.Time
	for _, t := range stamps {
		day := DayOf(t)
		if seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	slices.SortFunc(days, func(a, b time.Time) int { return b.Compare(a) })
	return days
}

// Streaks finds runs of consecutive days in days, which must be distinct
// calendar days ordered most recent first. Streaks are returned in the
// order they are found. Isolated days do not form a streak.
func Streaks(days []time.Time) []Streak {
	var streaks []Streak
	open := -1
	for i, day := range days {
		gap := 0 // the oldest day closes any open run
		if i+1 < len(days) {
			gap = daysBetween(day, days[i+1])
		}

		switch {
		case gap == 1 && open < 0:
			streaks = append(streaks, Streak{Anchor: day, Days: 1})
			open = len(streaks) - 1
		case gap == 1:
			streaks[open].Days++
		case open >= 0:
			// count the oldest day of the run
			streaks[open].Days++
			open = -1
		}
	}
	return streaks
}

// LongestStreak returns the longest streak. Ties go to the streak found
// first, i.e. the more recent one.
func LongestStreak(streaks []Streak) (Streak, bool) {
	var best Streak
	found := false
	for _, s := range streaks {
		if !found || s.Days > best.Days {
			best = s
			found = true
		}
	}
	return best, found
}

// StreakAt returns the length of the streak anchored at day, or 0
func StreakAt(streaks []Streak, day time.Time) int {
	day = DayOf(day)
	for _, s := range streaks {
		if s.Anchor.Equal(day) {
			return s.Days
		}
	}
	return 0
}

func daysBetween(newer, older time.Time) int {
	return int(DayOf(newer).Sub(DayOf(older)).Hours() / 24)
}
