package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"habitloop/internal/models"
)

// seedAchievements is the built-in catalog. IDs are fixed so repeated
// startups are idempotent and earned rows keep pointing at the same entry.
var seedAchievements = []models.Achievement{
	{
		ID: "11111111-0000-0000-0000-000000000001", Title: "Getting Started",
		Description: "Create your first habit", Icon: "🌱",
		Rarity: models.RarityCommon, Category: models.AchievementMilestone,
		Requirements: models.Requirements{Type: models.RequirementHabitCount, Count: 1},
	},
	{
		ID: "11111111-0000-0000-0000-000000000002", Title: "Habit Collector",
		Description: "Track five habits at once", Icon: "📚",
		Rarity: models.RarityUncommon, Category: models.AchievementMilestone,
		Requirements: models.Requirements{Type: models.RequirementHabitCount, Count: 5},
	},
	{
		ID: "11111111-0000-0000-0000-000000000003", Title: "Centurion",
		Description: "Log 100 completions", Icon: "💯",
		Rarity: models.RarityRare, Category: models.AchievementMilestone,
		Requirements: models.Requirements{Type: models.RequirementTotalCompletions, Count: 100},
	},
	{
		ID: "11111111-0000-0000-0000-000000000004", Title: "One Week Strong",
		Description: "Keep a 7-day streak", Icon: "🔥",
		Rarity: models.RarityCommon, Category: models.AchievementStreak,
		Requirements: models.Requirements{Days: 7},
	},
	{
		ID: "11111111-0000-0000-0000-000000000005", Title: "Unbreakable",
		Description: "Keep a 30-day streak", Icon: "⛓️",
		Rarity: models.RarityEpic, Category: models.AchievementStreak,
		Requirements: models.Requirements{Days: 30},
	},
	{
		ID: "11111111-0000-0000-0000-000000000006", Title: "Century Streak",
		Description: "Keep a 100-day streak", Icon: "🏆",
		Rarity: models.RarityLegendary, Category: models.AchievementStreak,
		Requirements: models.Requirements{Days: 100},
	},
	{
		ID: "11111111-0000-0000-0000-000000000007", Title: "Busy Week",
		Description: "Complete 10 habits in a week", Icon: "📅",
		Rarity: models.RarityUncommon, Category: models.AchievementWeekly,
		Requirements: models.Requirements{Completions: 10},
	},
	{
		ID: "11111111-0000-0000-0000-000000000008", Title: "Monthly Grind",
		Description: "Complete 50 habits in a month", Icon: "🗓️",
		Rarity: models.RarityRare, Category: models.AchievementMonthly,
		Requirements: models.Requirements{Completions: 50},
	},
}

// SeedAchievements inserts the built-in catalog, skipping entries that
// already exist.
func SeedAchievements(db *sql.DB) error {
	query := `INSERT IGNORE INTO achievements (id, title, description, icon, rarity, category, requirements)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	for _, a := range seedAchievements {
		req, err := json.Marshal(a.Requirements)
		if err != nil {
			return fmt.Errorf("failed to marshal requirements for %s: %w", a.Title, err)
		}
		if _, err := db.Exec(query, a.ID, a.Title, a.Description, a.Icon, a.Rarity, a.Category, req); err != nil {
			return fmt.Errorf("failed to seed achievement %s: %w", a.Title, err)
		}
	}

	return nil
}
