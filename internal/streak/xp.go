package streak

import "habitloop/internal/models"

// XP rules. Achievements convert points to XP at a fixed ratio; every 100
// XP is a level, starting at level 1.
const (
	XPPerPoint     = 10
	XPPerLevel     = 100
	BaseCompleteXP = 5
	maxBonusXP     = 10
)

// CompletionXP returns the XP earned for completing a habit once. Count
// and time habits earn a bonus scaled by their target, capped at
// maxBonusXP.
func CompletionXP(h models.Habit) int {
	xp := BaseCompleteXP
	if h.TargetValue == nil {
		return xp
	}
	switch h.HabitType {
	case models.HabitCount:
		bonus := *h.TargetValue / 5
		if bonus > maxBonusXP {
			bonus = maxBonusXP
		}
		xp += bonus
	case models.HabitTime:
		bonus := *h.TargetValue / 10
		if bonus > maxBonusXP {
			bonus = maxBonusXP
		}
		xp += bonus
	}
	return xp
}

// LevelForXP maps accumulated experience to a level.
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// LevelProgress returns how far into the current level a user is: XP earned
// within the level, XP required to finish it, and the fill percentage for
// the progress bar, clamped to [0, 100].
func LevelProgress(stats models.UserStats) (current, required int, percentage float64) {
	level := stats.Level
	if level < 1 {
		level = 1
	}
	current = stats.ExperiencePoints - (level-1)*XPPerLevel
	required = XPPerLevel
	if current < 0 {
		current = 0
	}
	percentage = float64(current) / float64(required) * 100
	if percentage > 100 {
		percentage = 100
	}
	return current, required, percentage
}
