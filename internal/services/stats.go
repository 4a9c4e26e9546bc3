package services

import (
	"context"
	"database/sql"
	"fmt"

	"habitloop/internal/models"
	"habitloop/internal/streak"
)

type StatsService struct {
	db *sql.DB
}

func NewStatsService(db *sql.DB) *StatsService {
	return &StatsService{db: db}
}

// GetOrCreate returns the user's stats row, inserting the defaults on
// first contact.
func (s *StatsService) GetOrCreate(ctx context.Context, userID string) (*models.UserStats, error) {
	var stats models.UserStats
	query := `SELECT user_id, total_points, achievements_count, longest_streak, total_habits_completed, level, experience_points, created_at, updated_at
		FROM user_stats WHERE user_id = ?`

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.UserID, &stats.TotalPoints, &stats.AchievementsCount, &stats.LongestStreak,
		&stats.TotalHabitsCompleted, &stats.Level, &stats.ExperiencePoints,
		&stats.CreatedAt, &stats.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO user_stats (user_id) VALUES (?)`, userID); err != nil {
			return nil, fmt.Errorf("failed to create user stats: %w", err)
		}
		return s.GetOrCreate(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}

	return &stats, nil
}

// AddCompletionXP credits the XP for one habit completion and bumps the
// completed-habits counter, recomputing the level from the new total.
func (s *StatsService) AddCompletionXP(ctx context.Context, userID string, habit models.Habit) error {
	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin xp update: %w", err)
	}
	defer tx.Rollback()

	var xp int
	if err := tx.QueryRowContext(ctx,
		`SELECT experience_points FROM user_stats WHERE user_id = ? FOR UPDATE`, userID).Scan(&xp); err != nil {
		return fmt.Errorf("failed to read experience points: %w", err)
	}

	xp += streak.CompletionXP(habit)
	_, err = tx.ExecContext(ctx,
		`UPDATE user_stats SET experience_points = ?, level = ?, total_habits_completed = total_habits_completed + 1 WHERE user_id = ?`,
		xp, streak.LevelForXP(xp), userID)
	if err != nil {
		return fmt.Errorf("failed to update experience points: %w", err)
	}

	return tx.Commit()
}

// AddPoints credits achievement points, bumps the achievement counter, and
// recomputes XP and level from the new point total.
func (s *StatsService) AddPoints(ctx context.Context, userID string, points int) error {
	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin points update: %w", err)
	}
	defer tx.Rollback()

	var totalPoints int
	if err := tx.QueryRowContext(ctx,
		`SELECT total_points FROM user_stats WHERE user_id = ? FOR UPDATE`, userID).Scan(&totalPoints); err != nil {
		return fmt.Errorf("failed to read total points: %w", err)
	}

	totalPoints += points
	xp := totalPoints * streak.XPPerPoint
	_, err = tx.ExecContext(ctx,
		`UPDATE user_stats SET total_points = ?, achievements_count = achievements_count + 1, experience_points = ?, level = ? WHERE user_id = ?`,
		totalPoints, xp, streak.LevelForXP(xp), userID)
	if err != nil {
		return fmt.Errorf("failed to update points: %w", err)
	}

	return tx.Commit()
}

// UpdateLongestStreak raises the recorded longest streak if the given one
// beats it.
func (s *StatsService) UpdateLongestStreak(ctx context.Context, userID string, current int) error {
	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE user_stats SET longest_streak = GREATEST(longest_streak, ?) WHERE user_id = ?`,
		current, userID)
	if err != nil {
		return fmt.Errorf("failed to update longest streak: %w", err)
	}
	return nil
}
