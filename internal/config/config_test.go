package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %s, want 8080", cfg.Port)
	}
	if cfg.RateLimitPerMin != 100 {
		t.Errorf("RateLimitPerMin = %d, want 100", cfg.RateLimitPerMin)
	}
	if cfg.DSN == "" || cfg.RedisURL == "" {
		t.Error("expected non-empty DSN and RedisURL defaults")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DSN", "user:pass@tcp(db:3306)/habits?parseTime=true")
	t.Setenv("RATE_LIMIT_PER_MIN", "5")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port = %s, want 9090", cfg.Port)
	}
	if cfg.DSN != "user:pass@tcp(db:3306)/habits?parseTime=true" {
		t.Errorf("DSN = %s", cfg.DSN)
	}
	if cfg.RateLimitPerMin != 5 {
		t.Errorf("RateLimitPerMin = %d, want 5", cfg.RateLimitPerMin)
	}
}

func TestLoadIgnoresBadInt(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MIN", "plenty")

	if cfg := Load(); cfg.RateLimitPerMin != 100 {
		t.Errorf("RateLimitPerMin = %d, want default 100", cfg.RateLimitPerMin)
	}
}
