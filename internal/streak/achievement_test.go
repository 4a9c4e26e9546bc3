package streak

import (
	"context"
	"errors"
	"testing"
	"time"

	"habitloop/internal/models"
)

// fakeCounts is a canned CountsProvider for progress tests.
type fakeCounts struct {
	habits      int
	completions int
	recent      map[string]int // keyed by since-day
	maxStreak   int
	err         error
}

func (f *fakeCounts) CountHabits(ctx context.Context, userID string) (int, error) {
	return f.habits, f.err
}

func (f *fakeCounts) CountCompletions(ctx context.Context, userID string) (int, error) {
	return f.completions, f.err
}

func (f *fakeCounts) CountCompletionsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	return f.recent[since.Format(models.DayFormat)], f.err
}

func (f *fakeCounts) MaxCurrentStreak(ctx context.Context, userID string, asOf time.Time) (int, error) {
	return f.maxStreak, f.err
}

func achievementWith(cat models.AchievementCategory, req models.Requirements) models.Achievement {
	return models.Achievement{
		ID:           "a1",
		Title:        "Test",
		Rarity:       models.RarityCommon,
		Category:     cat,
		Requirements: req,
		IsActive:     true,
	}
}

func TestAchievementProgress(t *testing.T) {
	counts := &fakeCounts{
		habits:      7,
		completions: 42,
		maxStreak:   12,
		recent: map[string]int{
			asOf.AddDate(0, 0, -7).Format(models.DayFormat):  9,
			asOf.AddDate(0, 0, -30).Format(models.DayFormat): 25,
		},
	}

	tests := []struct {
		name string
		a    models.Achievement
		want models.Progress
	}{
		{
			// Raw count 7 exceeds the total of 5 and must be clamped.
			"milestone habit count clamps overshoot",
			achievementWith(models.AchievementMilestone, models.Requirements{Type: models.RequirementHabitCount, Count: 5}),
			models.Progress{Progress: 5, Total: 5, Percentage: 100},
		},
		{
			"milestone total completions partial",
			achievementWith(models.AchievementMilestone, models.Requirements{Type: models.RequirementTotalCompletions, Count: 100}),
			models.Progress{Progress: 42, Total: 100, Percentage: 42},
		},
		{
			"streak progress",
			achievementWith(models.AchievementStreak, models.Requirements{Days: 30}),
			models.Progress{Progress: 12, Total: 30, Percentage: 40},
		},
		{
			"weekly completions",
			achievementWith(models.AchievementWeekly, models.Requirements{Completions: 10}),
			models.Progress{Progress: 9, Total: 10, Percentage: 90},
		},
		{
			"monthly completions",
			achievementWith(models.AchievementMonthly, models.Requirements{Completions: 50}),
			models.Progress{Progress: 25, Total: 50, Percentage: 50},
		},
		{
			// Special achievements are awarded out of band; no measurable progress.
			"special has no progress",
			achievementWith(models.AchievementSpecial, models.Requirements{}),
			models.Progress{Progress: 0, Total: 1, Percentage: 0},
		},
		{
			"zero total reports zero percent",
			achievementWith(models.AchievementMilestone, models.Requirements{Type: models.RequirementHabitCount, Count: 0}),
			models.Progress{Progress: 0, Total: 0, Percentage: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AchievementProgress(context.Background(), tt.a, "u1", asOf, counts)
			if err != nil {
				t.Fatalf("AchievementProgress: %v", err)
			}
			if got != tt.want {
				t.Errorf("AchievementProgress = %+v, want %+v", got, tt.want)
			}
			if got.Progress > got.Total {
				t.Errorf("progress %d exceeds total %d", got.Progress, got.Total)
			}
			if got.Percentage > 100 {
				t.Errorf("percentage %d exceeds 100", got.Percentage)
			}
		})
	}
}

func TestAchievementProgressPropagatesError(t *testing.T) {
	counts := &fakeCounts{err: errors.New("db down")}
	a := achievementWith(models.AchievementMilestone, models.Requirements{Type: models.RequirementHabitCount, Count: 5})
	if _, err := AchievementProgress(context.Background(), a, "u1", asOf, counts); err == nil {
		t.Fatal("expected provider error to propagate")
	}
}

func TestUnlocked(t *testing.T) {
	tests := []struct {
		p    models.Progress
		want bool
	}{
		{models.Progress{Progress: 5, Total: 5, Percentage: 100}, true},
		{models.Progress{Progress: 4, Total: 5, Percentage: 80}, false},
		{models.Progress{Progress: 0, Total: 0, Percentage: 0}, false},
	}
	for _, tt := range tests {
		if got := Unlocked(tt.p); got != tt.want {
			t.Errorf("Unlocked(%+v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}
