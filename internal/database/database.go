package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
)

// NewConnection opens the MySQL pool and verifies it with a ping.
func NewConnection(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(200)
	db.SetMaxIdleConns(50)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// NewRedisConnection builds the Redis client from a URL and verifies it.
func NewRedisConnection(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.PoolSize = 100
	opts.MinIdleConns = 20
	opts.MaxRetries = 3
	opts.PoolTimeout = 4 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return rdb, nil
}

// InitSchema creates the tables the service owns.
func InitSchema(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS habits (
			id CHAR(36) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			title VARCHAR(255) NOT NULL,
			description TEXT,
			category VARCHAR(32) NOT NULL,
			habit_type VARCHAR(16) NOT NULL,
			target_value INT NULL,
			target_unit VARCHAR(32) NOT NULL DEFAULT '',
			archived TINYINT(1) NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_habits_user (user_id)
		) ENGINE=InnoDB`,

		`CREATE TABLE IF NOT EXISTS completions (
			id CHAR(36) PRIMARY KEY,
			habit_id CHAR(36) NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			completed_on DATE NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_completions_habit (habit_id, completed_on),
			INDEX idx_completions_user (user_id, completed_on),
			FOREIGN KEY (habit_id) REFERENCES habits(id) ON DELETE CASCADE
		) ENGINE=InnoDB`,

		`CREATE TABLE IF NOT EXISTS user_stats (
			user_id VARCHAR(64) PRIMARY KEY,
			total_points INT NOT NULL DEFAULT 0,
			achievements_count INT NOT NULL DEFAULT 0,
			longest_streak INT NOT NULL DEFAULT 0,
			total_habits_completed INT NOT NULL DEFAULT 0,
			level INT NOT NULL DEFAULT 1,
			experience_points INT NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		) ENGINE=InnoDB`,

		`CREATE TABLE IF NOT EXISTS achievements (
			id CHAR(36) PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			description TEXT,
			icon VARCHAR(16) NOT NULL DEFAULT '',
			rarity VARCHAR(16) NOT NULL,
			category VARCHAR(16) NOT NULL,
			requirements JSON NOT NULL,
			is_active TINYINT(1) NOT NULL DEFAULT 1,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB`,

		`CREATE TABLE IF NOT EXISTS user_achievements (
			id CHAR(36) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			achievement_id CHAR(36) NOT NULL,
			achieved_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_user_achievement (user_id, achievement_id),
			FOREIGN KEY (achievement_id) REFERENCES achievements(id) ON DELETE CASCADE
		) ENGINE=InnoDB`,

		`CREATE TABLE IF NOT EXISTS friendships (
			id CHAR(36) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			friend_id VARCHAR(64) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_friendship (user_id, friend_id),
			INDEX idx_friendships_user (user_id)
		) ENGINE=InnoDB`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}
