// Package streak derives streaks and aggregate analytics from a user's
// habit set and completion log. Every function is a pure computation over
// its inputs: no I/O, no shared state, safe to call concurrently.
//
// Dates are treated at calendar-day granularity. Inputs are normalized to
// midnight UTC internally, so callers may pass timestamps from any source
// as long as year/month/day are what they mean.
package streak

import (
	"fmt"
	"sort"
	"time"

	"habitloop/internal/models"
)

// NoBestHabit is returned by BestPerformingHabit when there is nothing to
// rank.
const NoBestHabit = "None"

// milestoneStreaks are the streak lengths the feed calls out.
var milestoneStreaks = map[int]bool{7: true, 14: true, 30: true, 50: true, 100: true}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daySet(dates []time.Time) map[time.Time]bool {
	set := make(map[time.Time]bool, len(dates))
	for _, d := range dates {
		set[day(d)] = true
	}
	return set
}

// CurrentStreak counts consecutive completed days ending at asOf. The run
// must include asOf itself: if asOf has no completion the streak is 0, even
// when yesterday does. Duplicate same-day entries count once.
func CurrentStreak(dates []time.Time, asOf time.Time) int {
	set := daySet(dates)
	streak := 0
	for d := day(asOf); set[d]; d = d.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

// LongestStreak returns the length of the longest run of consecutive
// completed days anywhere in the history. The result is independent of
// input order and unaffected by duplicate same-day entries. Empty input
// yields 0.
func LongestStreak(dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	uniq := make([]time.Time, 0, len(dates))
	for d := range daySet(dates) {
		uniq = append(uniq, d)
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i].Before(uniq[j]) })

	longest, run := 1, 1
	for i := 1; i < len(uniq); i++ {
		if uniq[i].Equal(uniq[i-1].AddDate(0, 0, 1)) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// DailySeries buckets completion records into one count per calendar day
// over the window [asOf-(days-1), asOf], oldest first. Each record counts,
// including duplicates on the same day, since chart consumers want raw
// event volume. A non-positive window is a caller bug and fails fast.
func DailySeries(dates []time.Time, days int, asOf time.Time) ([]int, error) {
	if days <= 0 {
		return nil, fmt.Errorf("series window must be positive, got %d", days)
	}

	start := day(asOf).AddDate(0, 0, -(days - 1))
	counts := make([]int, days)
	for _, d := range dates {
		idx := int(day(d).Sub(start).Hours() / 24)
		if idx >= 0 && idx < days {
			counts[idx]++
		}
	}
	return counts, nil
}

// countWindow counts completion records with dates in [from, to] inclusive.
func countWindow(dates []time.Time, from, to time.Time) int {
	from, to = day(from), day(to)
	n := 0
	for _, d := range dates {
		dd := day(d)
		if !dd.Before(from) && !dd.After(to) {
			n++
		}
	}
	return n
}

// ImprovementRate compares completion volume in the last 7 calendar days
// [asOf-6, asOf] against the adjacent 7 days before them [asOf-13, asOf-7],
// returned as a signed percentage. A zero baseline reports 0 rather than
// blowing up the caller with a division by zero.
func ImprovementRate(dates []time.Time, asOf time.Time) float64 {
	thisWeek := countWindow(dates, asOf.AddDate(0, 0, -6), asOf)
	lastWeek := countWindow(dates, asOf.AddDate(0, 0, -13), asOf.AddDate(0, 0, -7))
	if lastWeek == 0 {
		return 0
	}
	return float64(thisWeek-lastWeek) / float64(lastWeek) * 100
}

// BestPerformingHabit returns the title of the habit with the most
// completion records. Completions referencing habits outside the given set
// are ignored. Ties resolve to the habit that reached the winning count
// first in input order, so the result is deterministic for a fixed input.
// Returns NoBestHabit when nothing qualifies.
func BestPerformingHabit(habits []models.Habit, completions []models.Completion) string {
	titles := make(map[string]string, len(habits))
	for _, h := range habits {
		titles[h.ID] = h.Title
	}

	counts := make(map[string]int, len(habits))
	best := NoBestHabit
	bestCount := 0
	for _, c := range completions {
		title, ok := titles[c.HabitID]
		if !ok {
			continue
		}
		counts[c.HabitID]++
		if counts[c.HabitID] > bestCount {
			bestCount = counts[c.HabitID]
			best = title
		}
	}
	return best
}

// IsMilestone reports whether a streak length is one the feed celebrates.
func IsMilestone(streak int) bool {
	return milestoneStreaks[streak]
}
