package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"habitloop/internal/models"
	"habitloop/internal/streak"
)

// Counts is the production streak.CountsProvider, backed by MySQL.
type Counts struct {
	db          *sql.DB
	completions *CompletionService
}

func NewCounts(db *sql.DB) *Counts {
	return &Counts{db: db, completions: NewCompletionService(db)}
}

func (c *Counts) CountHabits(ctx context.Context, userID string) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM habits WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count habits: %w", err)
	}
	return n, nil
}

func (c *Counts) CountCompletions(ctx context.Context, userID string) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM completions WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return n, nil
}

func (c *Counts) CountCompletionsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM completions WHERE user_id = ? AND completed_on >= ?`,
		userID, since.Format(models.DayFormat)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent completions: %w", err)
	}
	return n, nil
}

// MaxCurrentStreak returns the best current streak across all of the
// user's habits as of the given day.
func (c *Counts) MaxCurrentStreak(ctx context.Context, userID string, asOf time.Time) (int, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id FROM habits WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list habit ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to scan habit id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	max := 0
	for _, id := range ids {
		days, err := c.completions.ListDays(ctx, userID, id)
		if err != nil {
			return 0, err
		}
		if s := streak.CurrentStreak(days, asOf); s > max {
			max = s
		}
	}
	return max, nil
}
