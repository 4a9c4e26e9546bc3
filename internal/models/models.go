package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DayFormat is the calendar-day layout used everywhere a completion date
// crosses a boundary (SQL DATE columns, JSON payloads, cache keys).
const DayFormat = "2006-01-02"

// Category groups habits for display and filtering.
type Category string

const (
	CategoryHealth       Category = "health"
	CategoryMindfulness  Category = "mindfulness"
	CategoryProductivity Category = "productivity"
	CategoryLearning     Category = "learning"
	CategorySocial       Category = "social"
	CategoryCreative     Category = "creative"
	CategoryPersonal     Category = "personal"
	CategoryFinance      Category = "finance"
	CategoryHome         Category = "home"
	CategoryOther        Category = "other"
)

var ValidCategories = map[Category]bool{
	CategoryHealth:       true,
	CategoryMindfulness:  true,
	CategoryProductivity: true,
	CategoryLearning:     true,
	CategorySocial:       true,
	CategoryCreative:     true,
	CategoryPersonal:     true,
	CategoryFinance:      true,
	CategoryHome:         true,
	CategoryOther:        true,
}

// HabitType determines how a habit is completed. Binary habits are a simple
// done/not-done toggle; count and time habits carry a numeric target.
type HabitType string

const (
	HabitBinary HabitType = "binary"
	HabitCount  HabitType = "count"
	HabitTime   HabitType = "time"
)

var ValidHabitTypes = map[HabitType]bool{
	HabitBinary: true,
	HabitCount:  true,
	HabitTime:   true,
}

type Habit struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description,omitempty" db:"description"`
	Category    Category  `json:"category" db:"category"`
	HabitType   HabitType `json:"habit_type" db:"habit_type"`
	TargetValue *int      `json:"target_value,omitempty" db:"target_value"`
	TargetUnit  string    `json:"target_unit,omitempty" db:"target_unit"`
	Archived    bool      `json:"archived" db:"archived"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// HabitWithStatus is a habit enriched with the derived fields the home
// screen renders next to each card.
type HabitWithStatus struct {
	Habit
	CompletedToday   bool `json:"completed_today"`
	CurrentStreak    int  `json:"current_streak"`
	TotalCompletions int  `json:"total_completions"`
}

type Completion struct {
	ID          string    `json:"id" db:"id"`
	HabitID     string    `json:"habit_id" db:"habit_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	CompletedOn time.Time `json:"completed_on" db:"completed_on"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Day returns the completion date formatted as a calendar-day string.
func (c Completion) Day() string {
	return c.CompletedOn.Format(DayFormat)
}

type UserStats struct {
	UserID               string    `json:"user_id" db:"user_id"`
	TotalPoints          int       `json:"total_points" db:"total_points"`
	AchievementsCount    int       `json:"achievements_count" db:"achievements_count"`
	LongestStreak        int       `json:"longest_streak" db:"longest_streak"`
	TotalHabitsCompleted int       `json:"total_habits_completed" db:"total_habits_completed"`
	Level                int       `json:"level" db:"level"`
	ExperiencePoints     int       `json:"experience_points" db:"experience_points"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

// Rarity is a display tier on achievements. It has no effect on unlock
// logic, but it determines how many points an award is worth.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// RarityPoints maps rarity tiers to the points awarded on unlock.
var RarityPoints = map[Rarity]int{
	RarityCommon:    10,
	RarityUncommon:  20,
	RarityRare:      40,
	RarityEpic:      70,
	RarityLegendary: 100,
}

// AchievementCategory selects which requirement fields apply.
type AchievementCategory string

const (
	AchievementMilestone AchievementCategory = "milestone"
	AchievementStreak    AchievementCategory = "streak"
	AchievementWeekly    AchievementCategory = "weekly"
	AchievementMonthly   AchievementCategory = "monthly"
	AchievementSpecial   AchievementCategory = "special"
)

// Requirement types for milestone achievements.
const (
	RequirementHabitCount       = "habit_count"
	RequirementTotalCompletions = "total_completions"
)

// Requirements is the structured unlock condition stored on each catalog
// entry. Which fields are meaningful depends on the achievement category:
// milestone reads Type+Count, streak reads Days, weekly/monthly read
// Completions.
type Requirements struct {
	Type        string `json:"type,omitempty"`
	Count       int    `json:"count,omitempty"`
	Days        int    `json:"days,omitempty"`
	Completions int    `json:"completions,omitempty"`
}

type Achievement struct {
	ID           string              `json:"id" db:"id"`
	Title        string              `json:"title" db:"title"`
	Description  string              `json:"description" db:"description"`
	Icon         string              `json:"icon" db:"icon"`
	Rarity       Rarity              `json:"rarity" db:"rarity"`
	Category     AchievementCategory `json:"category" db:"category"`
	Requirements Requirements        `json:"requirements" db:"requirements"`
	IsActive     bool                `json:"is_active" db:"is_active"`
	CreatedAt    time.Time           `json:"created_at" db:"created_at"`
}

// Points returns the point value of unlocking this achievement.
func (a Achievement) Points() int {
	return RarityPoints[a.Rarity]
}

type UserAchievement struct {
	ID            string       `json:"id" db:"id"`
	UserID        string       `json:"user_id" db:"user_id"`
	AchievementID string       `json:"achievement_id" db:"achievement_id"`
	AchievedAt    time.Time    `json:"achieved_at" db:"achieved_at"`
	Achievement   *Achievement `json:"achievement,omitempty"`
}

// Progress reports how far a user is toward an achievement. Progress is
// clamped to [0, Total] and Percentage never exceeds 100.
type Progress struct {
	Progress   int `json:"progress"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

type Friendship struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	FriendID  string    `json:"friend_id" db:"friend_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type FriendWithStats struct {
	FriendID      string `json:"friend_id"`
	TotalHabits   int    `json:"total_habits"`
	LongestStreak int    `json:"longest_streak"`
}

// FeedActivity is one entry in the social feed: a friend's completion with
// the streak it extended.
type FeedActivity struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	HabitID     string    `json:"habit_id"`
	HabitTitle  string    `json:"habit_title"`
	CompletedOn time.Time `json:"completed_on"`
	Streak      int       `json:"streak"`
	IsMilestone bool      `json:"is_milestone"`
}

type AnalyticsSummary struct {
	WeeklySeries    []int   `json:"weekly_series"`
	WeeklyTotal     int     `json:"weekly_total"`
	MonthlyTotal    int     `json:"monthly_total"`
	CurrentStreak   int     `json:"current_streak"`
	LongestStreak   int     `json:"longest_streak"`
	BestHabit       string  `json:"best_habit"`
	ImprovementRate float64 `json:"improvement_rate"`
}

type ToggleResponse struct {
	Completed       bool              `json:"completed"`
	CurrentStreak   int               `json:"current_streak"`
	NewAchievements []UserAchievement `json:"new_achievements"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
	Redis     string `json:"redis"`
}

type CreateHabitRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	HabitType   HabitType `json:"habit_type"`
	TargetValue *int      `json:"target_value"`
	TargetUnit  string    `json:"target_unit"`
}

// Validate checks the payload against the habit invariants: a non-empty
// title, known enums, and a target value present iff the type is count or
// time.
func (r CreateHabitRequest) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !ValidCategories[r.Category] {
		return fmt.Errorf("invalid category %q", r.Category)
	}
	if !ValidHabitTypes[r.HabitType] {
		return fmt.Errorf("invalid habit type %q", r.HabitType)
	}
	needsTarget := r.HabitType == HabitCount || r.HabitType == HabitTime
	if needsTarget && (r.TargetValue == nil || *r.TargetValue <= 0) {
		return fmt.Errorf("habit type %q requires a positive target value", r.HabitType)
	}
	if !needsTarget && r.TargetValue != nil {
		return fmt.Errorf("habit type %q does not take a target value", r.HabitType)
	}
	return nil
}

type UpdateHabitRequest = CreateHabitRequest

type AddFriendRequest struct {
	FriendID string `json:"friend_id"`
}

// NewHabit builds a habit from a validated create request.
func NewHabit(userID string, r CreateHabitRequest) *Habit {
	return &Habit{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		HabitType:   r.HabitType,
		TargetValue: r.TargetValue,
		TargetUnit:  r.TargetUnit,
		CreatedAt:   time.Now(),
	}
}

// NewCompletion records a habit as done for the given calendar day.
func NewCompletion(userID, habitID string, day time.Time) *Completion {
	return &Completion{
		ID:          uuid.NewString(),
		HabitID:     habitID,
		UserID:      userID,
		CompletedOn: day,
		CreatedAt:   time.Now(),
	}
}
