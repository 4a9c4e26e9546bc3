package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"habitloop/internal/models"
	"habitloop/internal/streak"
)

type FeedService struct {
	db          *sql.DB
	completions *CompletionService
}

func NewFeedService(db *sql.DB) *FeedService {
	return &FeedService{db: db, completions: NewCompletionService(db)}
}

// AddFriend records a one-directional friendship. Adding the same friend
// twice is a no-op that returns the existing row.
func (s *FeedService) AddFriend(ctx context.Context, userID, friendID string) (*models.Friendship, error) {
	if friendID == "" {
		return nil, fmt.Errorf("friend id is required")
	}
	if friendID == userID {
		return nil, fmt.Errorf("cannot befriend yourself")
	}

	f := models.Friendship{
		ID:        uuid.NewString(),
		UserID:    userID,
		FriendID:  friendID,
		CreatedAt: time.Now(),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT IGNORE INTO friendships (id, user_id, friend_id) VALUES (?, ?, ?)`,
		f.ID, f.UserID, f.FriendID)
	if err != nil {
		return nil, fmt.Errorf("failed to add friend: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		err := s.db.QueryRowContext(ctx,
			`SELECT id, user_id, friend_id, created_at FROM friendships WHERE user_id = ? AND friend_id = ?`,
			userID, friendID).Scan(&f.ID, &f.UserID, &f.FriendID, &f.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing friendship: %w", err)
		}
	}

	return &f, nil
}

// Friends lists the user's friends with their habit count and best-ever
// streak.
func (s *FeedService) Friends(ctx context.Context, userID string) ([]models.FriendWithStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT friend_id FROM friendships WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var friendIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friendIDs = append(friendIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	friends := make([]models.FriendWithStats, 0, len(friendIDs))
	for _, fid := range friendIDs {
		stats, err := s.friendStats(ctx, fid)
		if err != nil {
			return nil, err
		}
		friends = append(friends, stats)
	}
	return friends, nil
}

func (s *FeedService) friendStats(ctx context.Context, friendID string) (models.FriendWithStats, error) {
	out := models.FriendWithStats{FriendID: friendID}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM habits WHERE user_id = ? AND archived = 0`, friendID)
	if err != nil {
		return out, fmt.Errorf("failed to list friend habits: %w", err)
	}
	defer rows.Close()

	var habitIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return out, fmt.Errorf("failed to scan friend habit: %w", err)
		}
		habitIDs = append(habitIDs, id)
	}
	if err := rows.Err(); err != nil {
		return out, err
	}

	out.TotalHabits = len(habitIDs)
	for _, hid := range habitIDs {
		days, err := s.completions.ListDays(ctx, friendID, hid)
		if err != nil {
			return out, err
		}
		if l := streak.LongestStreak(days); l > out.LongestStreak {
			out.LongestStreak = l
		}
	}
	return out, nil
}

// Feed returns the most recent completions by the user's friends, each
// annotated with the streak it extended and whether that streak is a
// milestone worth celebrating.
func (s *FeedService) Feed(ctx context.Context, userID string, limit int, asOf time.Time) ([]models.FeedActivity, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT c.id, c.user_id, c.habit_id, h.title, c.completed_on
		FROM completions c
		JOIN habits h ON h.id = c.habit_id
		JOIN friendships f ON f.friend_id = c.user_id
		WHERE f.user_id = ?
		ORDER BY c.completed_on DESC, c.created_at DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}
	defer rows.Close()

	var activities []models.FeedActivity
	for rows.Next() {
		var a models.FeedActivity
		if err := rows.Scan(&a.ID, &a.UserID, &a.HabitID, &a.HabitTitle, &a.CompletedOn); err != nil {
			return nil, fmt.Errorf("failed to scan feed entry: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The streak is computed as of the completion's own day, so old feed
	// entries keep the streak they had when logged.
	dayCache := make(map[string][]time.Time)
	for i := range activities {
		a := &activities[i]
		days, ok := dayCache[a.HabitID]
		if !ok {
			var err error
			days, err = s.completions.ListDays(ctx, a.UserID, a.HabitID)
			if err != nil {
				return nil, err
			}
			dayCache[a.HabitID] = days
		}
		a.Streak = streak.CurrentStreak(days, a.CompletedOn)
		a.IsMilestone = streak.IsMilestone(a.Streak)
	}

	return activities, nil
}
