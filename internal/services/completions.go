package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"habitloop/internal/models"
)

type CompletionService struct {
	db *sql.DB
}

func NewCompletionService(db *sql.DB) *CompletionService {
	return &CompletionService{db: db}
}

// Toggle flips the completion state of a habit for one calendar day. When
// the day already has completions they are all removed (duplicate rows are
// tolerated but mean "done once"); otherwise a single row is inserted.
// Returns true when the toggle left the habit completed.
func (s *CompletionService) Toggle(ctx context.Context, userID, habitID string, day time.Time) (bool, error) {
	var owner string
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM habits WHERE id = ?`, habitID).Scan(&owner)
	if err == sql.ErrNoRows || (err == nil && owner != userID) {
		return false, fmt.Errorf("habit %s: %w", habitID, ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("failed to check habit owner: %w", err)
	}

	dayStr := day.Format(models.DayFormat)

	var existing int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM completions WHERE habit_id = ? AND user_id = ? AND completed_on = ?`,
		habitID, userID, dayStr).Scan(&existing)
	if err != nil {
		return false, fmt.Errorf("failed to check completion: %w", err)
	}

	if existing > 0 {
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM completions WHERE habit_id = ? AND user_id = ? AND completed_on = ?`,
			habitID, userID, dayStr)
		if err != nil {
			return false, fmt.Errorf("failed to remove completion: %w", err)
		}
		return false, nil
	}

	c := models.NewCompletion(userID, habitID, day)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO completions (id, habit_id, user_id, completed_on) VALUES (?, ?, ?, ?)`,
		c.ID, c.HabitID, c.UserID, dayStr)
	if err != nil {
		return false, fmt.Errorf("failed to insert completion: %w", err)
	}
	return true, nil
}

// ListDays returns the completion dates for one habit, newest first.
func (s *CompletionService) ListDays(ctx context.Context, userID, habitID string) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT completed_on FROM completions WHERE habit_id = ? AND user_id = ? ORDER BY completed_on DESC`,
		habitID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completion days: %w", err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan completion day: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// ListByUser returns every completion the user has logged, newest first.
func (s *CompletionService) ListByUser(ctx context.Context, userID string) ([]models.Completion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, habit_id, user_id, completed_on, created_at FROM completions WHERE user_id = ? ORDER BY completed_on DESC, created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completions: %w", err)
	}
	defer rows.Close()

	var completions []models.Completion
	for rows.Next() {
		var c models.Completion
		if err := rows.Scan(&c.ID, &c.HabitID, &c.UserID, &c.CompletedOn, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		completions = append(completions, c)
	}
	return completions, rows.Err()
}
