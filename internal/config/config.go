package config

import (
	"os"
	"strconv"
)

type Config struct {
	DSN             string
	RedisURL        string
	Port            string
	RateLimitPerMin int
}

func Load() *Config {
	return &Config{
		DSN:             getEnv("DSN", "habitloop:habitlooppassword@tcp(localhost:3306)/habitloop?parseTime=true"),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),
		Port:            getEnv("PORT", "8080"),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MIN", 100),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
