package streak

import (
	"context"
	"math"
	"time"

	"habitloop/internal/models"
)

// CountsProvider supplies the aggregate counts achievement progress is
// measured against. The indirection keeps this package free of storage
// concerns; the production implementation queries MySQL, tests inject a
// fake.
type CountsProvider interface {
	CountHabits(ctx context.Context, userID string) (int, error)
	CountCompletions(ctx context.Context, userID string) (int, error)
	CountCompletionsSince(ctx context.Context, userID string, since time.Time) (int, error)
	MaxCurrentStreak(ctx context.Context, userID string, asOf time.Time) (int, error)
}

// AchievementProgress computes how far a user is toward one achievement.
// Progress is clamped to [0, total] and the percentage never exceeds 100;
// a zero total reports 0% instead of dividing by zero. Unknown categories
// (special achievements are awarded out of band) report no progress.
func AchievementProgress(ctx context.Context, a models.Achievement, userID string, asOf time.Time, counts CountsProvider) (models.Progress, error) {
	var (
		progress int
		total    = 1
		err      error
	)

	switch a.Category {
	case models.AchievementMilestone:
		total = a.Requirements.Count
		switch a.Requirements.Type {
		case models.RequirementHabitCount:
			progress, err = counts.CountHabits(ctx, userID)
		case models.RequirementTotalCompletions:
			progress, err = counts.CountCompletions(ctx, userID)
		}
	case models.AchievementStreak:
		total = a.Requirements.Days
		progress, err = counts.MaxCurrentStreak(ctx, userID, asOf)
	case models.AchievementWeekly:
		total = a.Requirements.Completions
		progress, err = counts.CountCompletionsSince(ctx, userID, asOf.AddDate(0, 0, -7))
	case models.AchievementMonthly:
		total = a.Requirements.Completions
		progress, err = counts.CountCompletionsSince(ctx, userID, asOf.AddDate(0, 0, -30))
	}
	if err != nil {
		return models.Progress{}, err
	}

	if progress < 0 {
		progress = 0
	}
	if progress > total {
		progress = total
	}

	percentage := 0
	if total > 0 {
		percentage = int(math.Round(float64(progress) / float64(total) * 100))
	}

	return models.Progress{Progress: progress, Total: total, Percentage: percentage}, nil
}

// Unlocked reports whether a progress value satisfies its achievement.
func Unlocked(p models.Progress) bool {
	return p.Total > 0 && p.Progress >= p.Total
}
