package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"habitloop/internal/models"
	"habitloop/internal/streak"
)

type AchievementService struct {
	db     *sql.DB
	counts streak.CountsProvider
	stats  *StatsService
}

func NewAchievementService(db *sql.DB, counts streak.CountsProvider, stats *StatsService) *AchievementService {
	return &AchievementService{db: db, counts: counts, stats: stats}
}

const achievementColumns = `id, title, description, icon, rarity, category, requirements, is_active, created_at`

func scanAchievement(row rowScanner) (*models.Achievement, error) {
	var (
		a    models.Achievement
		desc sql.NullString
		req  []byte
	)
	err := row.Scan(&a.ID, &a.Title, &desc, &a.Icon, &a.Rarity, &a.Category, &req, &a.IsActive, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Description = desc.String
	if err := json.Unmarshal(req, &a.Requirements); err != nil {
		return nil, fmt.Errorf("malformed requirements on achievement %s: %w", a.ID, err)
	}
	return &a, nil
}

func (s *AchievementService) Get(ctx context.Context, id string) (*models.Achievement, error) {
	query := `SELECT ` + achievementColumns + ` FROM achievements WHERE id = ?`

	a, err := scanAchievement(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("achievement %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get achievement: %w", err)
	}
	return a, nil
}

// Earned lists the user's unlocked achievements, newest first, with the
// catalog entry attached.
func (s *AchievementService) Earned(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	query := `SELECT ua.id, ua.user_id, ua.achievement_id, ua.achieved_at,
			a.id, a.title, a.description, a.icon, a.rarity, a.category, a.requirements, a.is_active, a.created_at
		FROM user_achievements ua
		JOIN achievements a ON a.id = ua.achievement_id
		WHERE ua.user_id = ?
		ORDER BY ua.achieved_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list earned achievements: %w", err)
	}
	defer rows.Close()

	var earned []models.UserAchievement
	for rows.Next() {
		var (
			ua   models.UserAchievement
			a    models.Achievement
			desc sql.NullString
			req  []byte
		)
		err := rows.Scan(&ua.ID, &ua.UserID, &ua.AchievementID, &ua.AchievedAt,
			&a.ID, &a.Title, &desc, &a.Icon, &a.Rarity, &a.Category, &req, &a.IsActive, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan earned achievement: %w", err)
		}
		a.Description = desc.String
		if err := json.Unmarshal(req, &a.Requirements); err != nil {
			return nil, fmt.Errorf("malformed requirements on achievement %s: %w", a.ID, err)
		}
		ua.Achievement = &a
		earned = append(earned, ua)
	}
	return earned, rows.Err()
}

// Available lists active catalog entries the user has not unlocked yet.
func (s *AchievementService) Available(ctx context.Context, userID string) ([]models.Achievement, error) {
	query := `SELECT a.id, a.title, a.description, a.icon, a.rarity, a.category, a.requirements, a.is_active, a.created_at
		FROM achievements a
		LEFT JOIN user_achievements ua ON ua.achievement_id = a.id AND ua.user_id = ?
		WHERE a.is_active = 1 AND ua.id IS NULL
		ORDER BY a.created_at`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list available achievements: %w", err)
	}
	defer rows.Close()

	var available []models.Achievement
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		available = append(available, *a)
	}
	return available, rows.Err()
}

// Progress reports the user's progress toward a single achievement.
func (s *AchievementService) Progress(ctx context.Context, userID, achievementID string, asOf time.Time) (*models.Progress, error) {
	a, err := s.Get(ctx, achievementID)
	if err != nil {
		return nil, err
	}

	p, err := streak.AchievementProgress(ctx, *a, userID, asOf, s.counts)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CheckAndAward evaluates every available achievement and unlocks the ones
// whose requirements are met, crediting points for each. Returns the newly
// awarded records. An award that loses a race to a concurrent check is
// skipped silently.
func (s *AchievementService) CheckAndAward(ctx context.Context, userID string, asOf time.Time) ([]models.UserAchievement, error) {
	available, err := s.Available(ctx, userID)
	if err != nil {
		return nil, err
	}

	var awarded []models.UserAchievement
	for i := range available {
		a := available[i]

		p, err := streak.AchievementProgress(ctx, a, userID, asOf, s.counts)
		if err != nil {
			return awarded, err
		}
		if !streak.Unlocked(p) {
			continue
		}

		ua := models.UserAchievement{
			ID:            uuid.NewString(),
			UserID:        userID,
			AchievementID: a.ID,
			AchievedAt:    time.Now(),
			Achievement:   &a,
		}
		res, err := s.db.ExecContext(ctx,
			`INSERT IGNORE INTO user_achievements (id, user_id, achievement_id) VALUES (?, ?, ?)`,
			ua.ID, ua.UserID, ua.AchievementID)
		if err != nil {
			return awarded, fmt.Errorf("failed to award achievement %s: %w", a.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			continue
		}

		if err := s.stats.AddPoints(ctx, userID, a.Points()); err != nil {
			return awarded, err
		}
		awarded = append(awarded, ua)
	}

	return awarded, nil
}
