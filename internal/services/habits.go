package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"habitloop/internal/models"
)

// ErrNotFound marks lookups for rows that do not exist or belong to another
// user. Handlers translate it to a 404.
var ErrNotFound = errors.New("not found")

type HabitService struct {
	db *sql.DB
}

func NewHabitService(db *sql.DB) *HabitService {
	return &HabitService{db: db}
}

const habitColumns = `id, user_id, title, description, category, habit_type, target_value, target_unit, archived, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHabit(row rowScanner) (*models.Habit, error) {
	var (
		h      models.Habit
		desc   sql.NullString
		target sql.NullInt64
	)
	err := row.Scan(&h.ID, &h.UserID, &h.Title, &desc, &h.Category, &h.HabitType,
		&target, &h.TargetUnit, &h.Archived, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	h.Description = desc.String
	if target.Valid {
		v := int(target.Int64)
		h.TargetValue = &v
	}
	return &h, nil
}

func (s *HabitService) Create(ctx context.Context, userID string, req models.CreateHabitRequest) (*models.Habit, error) {
	h := models.NewHabit(userID, req)

	query := `INSERT INTO habits (id, user_id, title, description, category, habit_type, target_value, target_unit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, h.ID, h.UserID, h.Title, h.Description,
		h.Category, h.HabitType, h.TargetValue, h.TargetUnit)
	if err != nil {
		return nil, fmt.Errorf("failed to create habit: %w", err)
	}

	return h, nil
}

// List returns the user's habits, newest first. Archived habits are
// excluded unless asked for.
func (s *HabitService) List(ctx context.Context, userID string, includeArchived bool) ([]models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id = ?`
	if !includeArchived {
		query += ` AND archived = 0`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	defer rows.Close()

	var habits []models.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, *h)
	}
	return habits, rows.Err()
}

func (s *HabitService) Get(ctx context.Context, userID, id string) (*models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = ? AND user_id = ?`

	h, err := scanHabit(s.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("habit %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get habit: %w", err)
	}
	return h, nil
}

func (s *HabitService) Update(ctx context.Context, userID, id string, req models.UpdateHabitRequest) (*models.Habit, error) {
	h, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	query := `UPDATE habits SET title = ?, description = ?, category = ?, habit_type = ?, target_value = ?, target_unit = ?
		WHERE id = ? AND user_id = ?`
	_, err = s.db.ExecContext(ctx, query, req.Title, req.Description, req.Category,
		req.HabitType, req.TargetValue, req.TargetUnit, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update habit: %w", err)
	}

	h.Title = req.Title
	h.Description = req.Description
	h.Category = req.Category
	h.HabitType = req.HabitType
	h.TargetValue = req.TargetValue
	h.TargetUnit = req.TargetUnit
	return h, nil
}

// Archive soft-deletes a habit: it drops out of active lists but its
// completion history stays.
func (s *HabitService) Archive(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `UPDATE habits SET archived = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to archive habit: %w", err)
	}
	return nil
}

// Delete removes a habit and all of its completions.
func (s *HabitService) Delete(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM completions WHERE habit_id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("failed to delete completions: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM habits WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("habit %s: %w", id, ErrNotFound)
	}

	return tx.Commit()
}
